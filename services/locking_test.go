package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/progress"
	"growthTrackerAPI/internal/tracking"
	"growthTrackerAPI/internal/user"
)

func TestUserLockOnPostgres(t *testing.T) {
	pg, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=growth dbname=growth sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	stmt := forUpdate(pg).First(&user.User{}, "id = ?", uuid.New()).Statement
	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")

	f := newFixture(t)
	stmt = forUpdate(f.db.Session(&gorm.Session{DryRun: true})).First(&user.User{}, "id = ?", uuid.New()).Statement
	assert.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestConcurrentRefreshFoldsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "racing@example.com", "Body and Soul")
	f.tracking.progress = nil
	f.completeAll(t, userID)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := f.progress.Refresh(ctx, userID)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)

	var snapshots []progress.ProgressSnapshot
	require.NoError(t, f.db.Where("user_id = ?", userID).Find(&snapshots).Error)
	require.Len(t, snapshots, 1)

	var res progress.Result
	require.NoError(t, json.Unmarshal(snapshots[0].Dimensions, &res))
	stored, err := dimensionValues(f.db, userID)
	require.NoError(t, err)
	for _, d := range res.Dimensions {
		assert.InDelta(t, d.Current, stored[d.DimensionID], 0.0001, d.Name)
	}
}

func TestConcurrentFinalCompletionsAdvanceStreakOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "twice@example.com", "Body and Soul")

	daily, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)
	require.Greater(t, len(daily.Tasks), 2)

	last := len(daily.Tasks) - 2
	for _, dt := range daily.Tasks[:last] {
		_, err := f.tracking.CompleteTask(ctx, userID, dt.ID)
		require.NoError(t, err)
	}

	var (
		wg   sync.WaitGroup
		resp = make([]*tracking.CompleteTaskResponse, 2)
	)
	for i, dt := range daily.Tasks[last:] {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			r, err := f.tracking.CompleteTask(ctx, userID, id)
			assert.NoError(t, err)
			resp[i] = r
		}(i, dt.ID)
	}
	wg.Wait()

	require.NotNil(t, resp[0])
	require.NotNil(t, resp[1])
	assert.True(t, resp[0].DayCompleted != resp[1].DayCompleted, "exactly one completion finishes the day")

	var days int64
	require.NoError(t, f.db.Model(&tracking.DayCompletion{}).Where("user_id = ?", userID).Count(&days).Error)
	assert.Equal(t, int64(1), days)

	var uc challenge.UserChallenge
	require.NoError(t, f.db.First(&uc, "user_id = ? AND active = ?", userID, true).Error)
	assert.Equal(t, 1, uc.DaysCompleted)
	assert.Equal(t, 1, f.reloadUser(t, userID).CurrentStreak)
}
