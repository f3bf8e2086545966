package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthTrackerAPI/internal/progress"
)

func valuesByName(dims []progress.DimensionProgress) map[string]progress.DimensionProgress {
	out := make(map[string]progress.DimensionProgress, len(dims))
	for _, d := range dims {
		out[d.Name] = d
	}
	return out
}

func TestProgressWithoutCompletions(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "fresh@example.com")

	resp, err := f.progress.GetProgress(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, resp.Dimensions, 5)
	for _, d := range resp.Dimensions {
		assert.Zero(t, d.Current)
	}
	assert.Nil(t, resp.UpdatedAt)
}

func TestProgressAddsTaskPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "points@example.com", "Body and Soul")
	f.tracking.progress = nil
	f.completeAll(t, userID)

	changed, err := f.progress.Refresh(ctx, userID)
	require.NoError(t, err)
	assert.True(t, changed)

	resp, err := f.progress.GetProgress(ctx, userID)
	require.NoError(t, err)
	got := valuesByName(resp.Dimensions)
	assert.Equal(t, 10.0, got["Health"].Current)
	assert.Equal(t, 10.0, got["Worship"].Current)
	assert.Equal(t, 6.0, got["Knowledge"].Current)
	assert.Equal(t, 5.0, got["Community"].Current)
	assert.Zero(t, got["Character"].Current)
	assert.ElementsMatch(t, []string{"Sleep before midnight", "Drink eight glasses of water"}, got["Health"].ContributingTasks)

	require.Len(t, resp.MostImproved, 3)
	assert.Equal(t, "Worship", resp.MostImproved[0].Name, "ties keep catalog order")
	assert.Equal(t, "Health", resp.MostImproved[1].Name)
	assert.Equal(t, "Knowledge", resp.MostImproved[2].Name)
}

func TestRefreshOnlyFoldsNewCompletions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "fold@example.com", "Body and Soul")
	f.completeAll(t, userID)

	changed, err := f.progress.Refresh(ctx, userID)
	require.NoError(t, err)
	assert.False(t, changed, "completions were folded as they happened")

	before, err := f.progress.GetProgress(ctx, userID)
	require.NoError(t, err)
	again, err := f.progress.GetProgress(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, before.Dimensions, again.Dimensions)

	var values []progress.DimensionValue
	require.NoError(t, f.db.Where("user_id = ?", userID).Find(&values).Error)
	assert.Len(t, values, 5)
}

func TestProgressIsClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "clamp@example.com", "Foundations of Faith")

	for i := 0; i < 12; i++ {
		f.completeAll(t, userID)
		f.clock.Advance(1)
	}

	resp, err := f.progress.GetProgress(ctx, userID)
	require.NoError(t, err)
	got := valuesByName(resp.Dimensions)
	assert.Equal(t, 100.0, got["Worship"].Current)
	for _, d := range resp.Dimensions {
		assert.LessOrEqual(t, d.Current, 100.0)
		assert.GreaterOrEqual(t, d.Current, 0.0)
	}
}

func TestRadarHasOneAxisPerDimension(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "radar@example.com")

	chart, err := f.progress.GetRadar(context.Background(), u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, chart.Axes, 5)
}
