package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/testutil"
	"growthTrackerAPI/internal/user"
)

type fixture struct {
	db         *gorm.DB
	clock      *testutil.Clock
	catalog    *CatalogService
	enrollment *EnrollmentService
	progress   *ProgressService
	tracking   *TrackingService
	seed       *SeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clock := testutil.NewClock("2026-03-02")

	catalog := NewCatalogService(db, nil)
	enrollment := NewEnrollmentService(db, catalog, time.UTC)
	enrollment.SetClock(clock.Now)
	progress := NewProgressService(db)
	tracking := NewTrackingService(db, progress, time.UTC)
	tracking.SetClock(clock.Now)

	f := &fixture{
		db:         db,
		clock:      clock,
		catalog:    catalog,
		enrollment: enrollment,
		progress:   progress,
		tracking:   tracking,
		seed:       NewSeedService(db, catalog),
	}
	_, err := f.seed.SeedAll(context.Background())
	require.NoError(t, err)
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *user.User {
	t.Helper()
	u := &user.User{Name: "Test", Email: email}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) reloadUser(t *testing.T, id uuid.UUID) *user.User {
	t.Helper()
	var u user.User
	require.NoError(t, f.db.First(&u, "id = ?", id).Error)
	return &u
}

func (f *fixture) challengeNamed(t *testing.T, name string) *challenge.ChallengeDetail {
	t.Helper()
	list, err := f.catalog.ListChallenges(context.Background())
	require.NoError(t, err)
	for _, c := range list {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("challenge %q not seeded", name)
	return nil
}

// completeAll completes every task scheduled for today and returns the last response.
func (f *fixture) completeAll(t *testing.T, userID uuid.UUID) []uuid.UUID {
	t.Helper()
	ctx := context.Background()
	daily, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(daily.Tasks))
	for _, dt := range daily.Tasks {
		_, err := f.tracking.CompleteTask(ctx, userID, dt.ID)
		require.NoError(t, err)
		ids = append(ids, dt.ID)
	}
	return ids
}
