package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/calendar"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/tracking"
)

func enrolledUser(t *testing.T, f *fixture, email, challengeName string) uuid.UUID {
	t.Helper()
	u := f.createUser(t, email)
	_, err := f.enrollment.Enroll(context.Background(), u.ID, f.challengeNamed(t, challengeName).ID, nil)
	require.NoError(t, err)
	return u.ID
}

func TestGetDailyTasksMaterializesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "daily@example.com", "Body and Soul")

	first, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", first.Date)
	assert.Equal(t, 1, first.DayIndex)
	require.Len(t, first.Tasks, 5)
	assert.Equal(t, "Sleep before midnight", first.Tasks[0].Name)
	assert.Equal(t, "Health", first.Tasks[0].Dimension)

	second, err := f.tracking.GetDailyTasks(ctx, userID, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, first.Tasks[0].ID, second.Tasks[0].ID)

	var count int64
	require.NoError(t, f.db.Model(&tracking.DailyTask{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}

func TestGetDailyTasksOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "window@example.com", "Body and Soul")

	_, err := f.tracking.GetDailyTasks(ctx, userID, "2026-03-01")
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
	_, err = f.tracking.GetDailyTasks(ctx, userID, "2026-03-16")
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
	_, err = f.tracking.GetDailyTasks(ctx, userID, "not-a-date")
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestGetDailyTasksWithoutChallenge(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "idle@example.com")

	_, err := f.tracking.GetDailyTasks(context.Background(), u.ID, "")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDayCompletesOnlyWhenAllTasksDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "day@example.com", "Body and Soul")

	daily, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)

	for i, dt := range daily.Tasks[:4] {
		resp, err := f.tracking.CompleteTask(ctx, userID, dt.ID)
		require.NoError(t, err, "task %d", i)
		assert.False(t, resp.DayCompleted)
		assert.Zero(t, resp.CurrentStreak)
	}

	resp, err := f.tracking.CompleteTask(ctx, userID, daily.Tasks[4].ID)
	require.NoError(t, err)
	assert.True(t, resp.DayCompleted)
	assert.Equal(t, 1, resp.CurrentStreak)
	assert.Equal(t, 1, resp.LongestStreak)

	u := f.reloadUser(t, userID)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, "2026-03-02", u.LastCompletedDay)

	after, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, after.Completed)
}

func TestRepeatCompletionDoesNotDoubleStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "repeat@example.com", "Body and Soul")
	ids := f.completeAll(t, userID)

	for _, id := range ids {
		resp, err := f.tracking.CompleteTask(ctx, userID, id)
		require.NoError(t, err)
		assert.True(t, resp.AlreadyCompleted)
		assert.False(t, resp.DayCompleted)
		assert.Equal(t, 1, resp.CurrentStreak)
	}

	var completions, days int64
	require.NoError(t, f.db.Model(&tracking.CompletedTask{}).Where("user_id = ?", userID).Count(&completions).Error)
	require.NoError(t, f.db.Model(&tracking.DayCompletion{}).Where("user_id = ?", userID).Count(&days).Error)
	assert.EqualValues(t, 5, completions)
	assert.EqualValues(t, 1, days)
	assert.Equal(t, 1, f.reloadUser(t, userID).CurrentStreak)
}

func TestStreakExtendsAndResets(t *testing.T) {
	f := newFixture(t)
	userID := enrolledUser(t, f, "streak@example.com", "Body and Soul")

	f.completeAll(t, userID)
	f.clock.Advance(1)
	f.completeAll(t, userID)

	u := f.reloadUser(t, userID)
	assert.Equal(t, 2, u.CurrentStreak)
	assert.Equal(t, 2, u.LongestStreak)

	f.clock.Advance(2)
	stats, err := f.tracking.GetStats(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak, "a missed day breaks the streak")
	assert.Equal(t, 2, stats.LongestStreak)

	f.completeAll(t, userID)
	u = f.reloadUser(t, userID)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 2, u.LongestStreak)
}

func TestCompleteTaskFromAnotherDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "late@example.com", "Body and Soul")

	daily, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)

	f.clock.Advance(1)
	_, err = f.tracking.CompleteTask(ctx, userID, daily.Tasks[0].ID)
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestCompleteTaskOwnedByAnotherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := enrolledUser(t, f, "owner@example.com", "Body and Soul")
	intruder := enrolledUser(t, f, "intruder@example.com", "Body and Soul")

	daily, err := f.tracking.GetDailyTasks(ctx, owner, "")
	require.NoError(t, err)

	_, err = f.tracking.CompleteTask(ctx, intruder, daily.Tasks[0].ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSubsetDayCompletesWithSelectedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "pick@example.com")
	c := f.challengeNamed(t, "Foundations of Faith")
	_, err := f.enrollment.Enroll(ctx, u.ID, c.ID, []uuid.UUID{c.Tasks[0].TaskID, c.Tasks[2].TaskID})
	require.NoError(t, err)

	daily, err := f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, daily.Tasks, 2)

	f.completeAll(t, u.ID)
	assert.Equal(t, 1, f.reloadUser(t, u.ID).CurrentStreak)
}

func TestFinishingLastDayCompletesChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "finish@example.com")
	dims, err := f.catalog.ListDimensions(ctx)
	require.NoError(t, err)

	_, err = f.enrollment.CreateCustomAndEnroll(ctx, u.ID, &challenge.CreateCustomChallengeRequest{
		Name:         "Two days",
		DurationDays: 2,
		Tasks:        []challenge.CustomTaskInput{{Name: "Pray", DimensionID: dims[2].ID}},
	})
	require.NoError(t, err)

	f.completeAll(t, u.ID)
	f.clock.Advance(1)

	daily, err := f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.NoError(t, err)
	resp, err := f.tracking.CompleteTask(ctx, u.ID, daily.Tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, resp.ChallengeCompleted)
	assert.Equal(t, ChallengeBonusDays, resp.BonusStreakDays)
	assert.Equal(t, 2, resp.CurrentStreak, "the bonus is not added to the stored streak")

	reloaded := f.reloadUser(t, u.ID)
	assert.Nil(t, reloaded.CurrentChallengeID)
	assert.Equal(t, 1, reloaded.ChallengesCompleted)
	assert.Equal(t, 2, reloaded.CurrentStreak)

	_, err = f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCalendarStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "cal@example.com", "Body and Soul")

	f.completeAll(t, userID)
	f.clock.Advance(1)
	daily, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)
	_, err = f.tracking.CompleteTask(ctx, userID, daily.Tasks[0].ID)
	require.NoError(t, err)
	f.clock.Advance(2)

	cal, err := f.tracking.GetCalendar(ctx, userID, 2026, 3)
	require.NoError(t, err)
	require.Len(t, cal.Days, 31)

	byDate := map[string]*calendar.CalendarDay{}
	for _, d := range cal.Days {
		byDate[d.Date] = d
	}
	assert.Equal(t, calendar.StatusNone, byDate["2026-03-01"].Status)
	assert.Equal(t, calendar.StatusComplete, byDate["2026-03-02"].Status)
	assert.Equal(t, 5, byDate["2026-03-02"].Completed)
	assert.Equal(t, calendar.StatusPartial, byDate["2026-03-03"].Status)
	assert.Equal(t, calendar.StatusMissed, byDate["2026-03-04"].Status)
	assert.Equal(t, calendar.StatusPending, byDate["2026-03-05"].Status)
	assert.True(t, byDate["2026-03-05"].IsToday)
	assert.Equal(t, calendar.StatusUpcoming, byDate["2026-03-06"].Status)
	assert.Equal(t, 14, byDate["2026-03-15"].DayIndex)
	assert.Equal(t, calendar.StatusNone, byDate["2026-03-16"].Status)
}

func TestCalendarRejectsBadMonth(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "month@example.com")

	_, err := f.tracking.GetCalendar(context.Background(), u.ID, 2026, 13)
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestStatsForToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "stats@example.com", "Body and Soul")

	daily, err := f.tracking.GetDailyTasks(ctx, userID, "")
	require.NoError(t, err)
	_, err = f.tracking.CompleteTask(ctx, userID, daily.Tasks[0].ID)
	require.NoError(t, err)

	stats, err := f.tracking.GetStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DayIndex)
	assert.Equal(t, 14, stats.DurationDays)
	assert.Equal(t, 5, stats.TodayTotal)
	assert.Equal(t, 1, stats.TodayCompleted)
	assert.False(t, stats.TodayComplete)
}

func TestChallengeWithRestDaysCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "rest@example.com")
	dims, err := f.catalog.ListDimensions(ctx)
	require.NoError(t, err)

	first, third := 1, 3
	_, err = f.enrollment.CreateCustomAndEnroll(ctx, u.ID, &challenge.CreateCustomChallengeRequest{
		Name:         "Every other day",
		DurationDays: 3,
		Tasks: []challenge.CustomTaskInput{
			{Name: "Fast", DimensionID: dims[2].ID, Day: &first},
			{Name: "Give charity", DimensionID: dims[3].ID, Day: &third},
		},
	})
	require.NoError(t, err)

	daily, err := f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, daily.Tasks, 1)
	resp, err := f.tracking.CompleteTask(ctx, u.ID, daily.Tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, resp.DayCompleted)
	assert.False(t, resp.ChallengeCompleted)

	f.clock.Advance(1)
	daily, err = f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Empty(t, daily.Tasks)

	f.clock.Advance(1)
	daily, err = f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, daily.Tasks, 1)
	resp, err = f.tracking.CompleteTask(ctx, u.ID, daily.Tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, resp.ChallengeCompleted)

	reloaded := f.reloadUser(t, u.ID)
	assert.Nil(t, reloaded.CurrentChallengeID)
	assert.Equal(t, 1, reloaded.ChallengesCompleted)
}

func TestSingleScheduledDayCompletesChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "once@example.com")
	dims, err := f.catalog.ListDimensions(ctx)
	require.NoError(t, err)

	day := 1
	_, err = f.enrollment.CreateCustomAndEnroll(ctx, u.ID, &challenge.CreateCustomChallengeRequest{
		Name:         "Opening day",
		DurationDays: 2,
		Tasks:        []challenge.CustomTaskInput{{Name: "Set an intention", DimensionID: dims[1].ID, Day: &day}},
	})
	require.NoError(t, err)

	daily, err := f.tracking.GetDailyTasks(ctx, u.ID, "")
	require.NoError(t, err)
	resp, err := f.tracking.CompleteTask(ctx, u.ID, daily.Tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, resp.DayCompleted)
	assert.True(t, resp.ChallengeCompleted)
}

func TestStatsAfterWindowClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := enrolledUser(t, f, "closed@example.com", "Body and Soul")

	f.clock.Advance(30)

	stats, err := f.tracking.GetStats(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, stats.DurationDays)
	assert.Zero(t, stats.TodayTotal)

	_, err = f.tracking.GetDailyTasks(ctx, userID, "")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
