// Package testutil provides an in-memory database and auth helpers for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/database"
	"growthTrackerAPI/internal/security"
)

// NewDB opens a fresh in-memory sqlite database with the production schema.
// A single connection keeps every query on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(false))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func NewTokenManager() *security.TokenManager {
	return security.NewTokenManager("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour)
}

// Token issues an access token for userID.
func Token(t *testing.T, m *security.TokenManager, userID uuid.UUID) string {
	t.Helper()
	pair, err := m.Generate(userID)
	require.NoError(t, err)
	return pair.AccessToken
}

// Clock is a settable time source for services that take a now func.
type Clock struct {
	T time.Time
}

func NewClock(day string) *Clock {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return &Clock{T: t.Add(9 * time.Hour)}
}

func (c *Clock) Now() time.Time {
	return c.T
}

func (c *Clock) Advance(days int) {
	c.T = c.T.AddDate(0, 0, days)
}
