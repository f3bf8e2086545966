package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/challenge"
)

func apply(t *testing.T, m Machine, ev Event, dims DimensionLookup) (Machine, []Effect) {
	t.Helper()
	next, effects, err := Transition(m, ev, dims)
	require.NoError(t, err)
	return next, effects
}

func detailWith(id uuid.UUID, tasks ...uuid.UUID) *challenge.ChallengeDetail {
	d := &challenge.ChallengeDetail{ID: id, Name: "Mindful Mornings", DurationDays: 7}
	for i, taskID := range tasks {
		d.Tasks = append(d.Tasks, challenge.TaskDetail{TaskID: taskID, Name: "task", Position: i})
	}
	return d
}

func TestNextFromChooseChallengeRequiresSelection(t *testing.T) {
	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	require.Equal(t, StateChooseChallenge, m.State)

	next, effects, err := Transition(m, Event{Type: EventNext}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGuard))
	assert.Equal(t, apperror.KindValidationFailed, apperror.KindOf(err))
	assert.Equal(t, StateChooseChallenge, next.State)
	assert.Empty(t, effects)
}

func TestSelectChallengeFetchesDetail(t *testing.T) {
	challengeID := uuid.New()
	taskA, taskB := uuid.New(), uuid.New()

	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	m, effects := apply(t, m, Event{Type: EventSelectChallenge, ChallengeID: &challengeID}, nil)

	assert.Equal(t, StateChallengeDetail, m.State)
	assert.Equal(t, DetailLoading, m.Context.DetailStatus)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectFetchDetail, effects[0].Type)
	assert.Equal(t, challengeID, effects[0].ChallengeID)

	m, _ = apply(t, m, Event{Type: EventDetailLoaded, Detail: detailWith(challengeID, taskA, taskB)}, nil)
	assert.Equal(t, DetailLoaded, m.Context.DetailStatus)
	assert.Equal(t, []uuid.UUID{taskA, taskB}, m.Context.SelectedTaskIDs)
}

func TestStaleDetailIsIgnored(t *testing.T) {
	first, second := uuid.New(), uuid.New()

	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	m, _ = apply(t, m, Event{Type: EventSelectChallenge, ChallengeID: &first}, nil)
	m, _ = apply(t, m, Event{Type: EventBack}, nil)
	m, _ = apply(t, m, Event{Type: EventSelectChallenge, ChallengeID: &second}, nil)

	m, _ = apply(t, m, Event{Type: EventDetailLoaded, Detail: detailWith(first, uuid.New())}, nil)

	assert.Equal(t, DetailLoading, m.Context.DetailStatus)
	assert.Nil(t, m.Context.Detail)
}

func TestDetailFailureCanBeRetried(t *testing.T) {
	challengeID := uuid.New()

	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	m, _ = apply(t, m, Event{Type: EventSelectChallenge, ChallengeID: &challengeID}, nil)
	m, _ = apply(t, m, Event{Type: EventDetailFailed, Message: "timeout"}, nil)

	assert.Equal(t, DetailFailed, m.Context.DetailStatus)
	assert.Equal(t, "timeout", m.Context.DetailError)

	_, _, err := Transition(m, Event{Type: EventNext}, nil)
	assert.True(t, errors.Is(err, ErrGuard))

	m, effects := apply(t, m, Event{Type: EventRetryDetail}, nil)
	assert.Equal(t, DetailLoading, m.Context.DetailStatus)
	assert.Len(t, effects, 1)
}

func TestPredefinedFlowCommitsSelectedTasks(t *testing.T) {
	challengeID := uuid.New()
	taskA, taskB, taskC := uuid.New(), uuid.New(), uuid.New()

	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	m, _ = apply(t, m, Event{Type: EventSelectChallenge, ChallengeID: &challengeID}, nil)
	m, _ = apply(t, m, Event{Type: EventDetailLoaded, Detail: detailWith(challengeID, taskA, taskB, taskC)}, nil)
	m, _ = apply(t, m, Event{Type: EventToggleTask, TaskID: &taskB}, nil)
	m, _ = apply(t, m, Event{Type: EventNext}, nil)
	require.Equal(t, StateChallengeSummary, m.State)

	m, effects := apply(t, m, Event{Type: EventFinish}, nil)

	assert.Equal(t, StateCompleted, m.State)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectCommit, effects[0].Type)
	assert.Equal(t, CompletionPredefined, effects[0].Completion.Kind)
	assert.Equal(t, challengeID, effects[0].Completion.ChallengeID)
	assert.Equal(t, []uuid.UUID{taskA, taskC}, effects[0].Completion.TaskIDs)
}

func TestTogglingEveryTaskOffBlocksNext(t *testing.T) {
	challengeID, taskA := uuid.New(), uuid.New()

	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	m, _ = apply(t, m, Event{Type: EventSelectChallenge, ChallengeID: &challengeID}, nil)
	m, _ = apply(t, m, Event{Type: EventDetailLoaded, Detail: detailWith(challengeID, taskA)}, nil)
	m, _ = apply(t, m, Event{Type: EventToggleTask, TaskID: &taskA}, nil)

	_, _, err := Transition(m, Event{Type: EventNext}, nil)
	assert.True(t, errors.Is(err, ErrGuard))

	stranger := uuid.New()
	_, _, err = Transition(m, Event{Type: EventToggleTask, TaskID: &stranger}, nil)
	assert.True(t, errors.Is(err, ErrGuard))
}

func TestCustomFlow(t *testing.T) {
	knowledge := uuid.New()
	dims := DimensionSet{knowledge: {}}

	m, _ := apply(t, New(), Event{Type: EventNext}, nil)
	m, _ = apply(t, m, Event{Type: EventChooseCustom}, nil)
	require.Equal(t, StateCustomBasicInfo, m.State)

	_, _, err := Transition(m, Event{Type: EventNext}, dims)
	assert.True(t, errors.Is(err, ErrGuard), "name and duration are required")

	m, _ = apply(t, m, Event{Type: EventSetBasicInfo, Name: "  Reading month ", DurationDays: 30}, dims)
	m, _ = apply(t, m, Event{Type: EventNext}, dims)
	require.Equal(t, StateCustomAddTasks, m.State)

	_, _, err = Transition(m, Event{Type: EventNext}, dims)
	assert.True(t, errors.Is(err, ErrGuard), "at least one task")

	unknown := uuid.New()
	_, _, err = Transition(m, Event{Type: EventAddTask, Name: "Read", DimensionID: &unknown}, dims)
	assert.True(t, errors.Is(err, ErrGuard))

	for _, name := range []string{"Read 10 pages", "Take notes"} {
		m, _ = apply(t, m, Event{Type: EventAddTask, Name: name, DimensionID: &knowledge}, dims)
	}
	zero := 0
	m, _ = apply(t, m, Event{Type: EventRemoveTask, Index: &zero}, dims)
	require.Len(t, m.Context.CustomTasks, 1)
	assert.Equal(t, "Take notes", m.Context.CustomTasks[0].Name)
	assert.Equal(t, DefaultTaskPoints, m.Context.CustomTasks[0].Points)

	m, _ = apply(t, m, Event{Type: EventNext}, dims)
	m, effects := apply(t, m, Event{Type: EventFinish}, dims)

	assert.Equal(t, StateCompleted, m.State)
	require.Len(t, effects, 1)
	draft := effects[0].Completion.Custom
	require.NotNil(t, draft)
	assert.Equal(t, "Reading month", draft.Name)
	assert.Equal(t, 30, draft.DurationDays)
	require.Len(t, draft.Tasks, 1)
	assert.Equal(t, knowledge, draft.Tasks[0].DimensionID)
}

func TestCustomTasksAreCapped(t *testing.T) {
	dim := uuid.New()
	dims := DimensionSet{dim: {}}
	m := Machine{State: StateCustomAddTasks, Context: New().Context}

	for i := 0; i < MaxCustomTasks; i++ {
		m, _ = apply(t, m, Event{Type: EventAddTask, Name: "task", DimensionID: &dim}, dims)
	}
	_, _, err := Transition(m, Event{Type: EventAddTask, Name: "one too many", DimensionID: &dim}, dims)
	assert.True(t, errors.Is(err, ErrGuard))
}

func TestBackFromCustomBasicInfoReturnsToChooser(t *testing.T) {
	m := Machine{State: StateCustomBasicInfo, Context: New().Context}
	m, _ = apply(t, m, Event{Type: EventBack}, nil)
	assert.Equal(t, StateChooseChallenge, m.State)
}

func TestCompletedIsTerminal(t *testing.T) {
	m := Machine{State: StateCompleted, Context: New().Context}
	for _, ev := range []EventType{EventNext, EventBack, EventFinish} {
		_, _, err := Transition(m, Event{Type: ev}, nil)
		assert.True(t, errors.Is(err, ErrTerminal))
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	dim := uuid.New()
	dims := DimensionSet{dim: {}}
	m := Machine{State: StateCustomAddTasks, Context: New().Context}
	m, _ = apply(t, m, Event{Type: EventAddTask, Name: "a", DimensionID: &dim}, dims)
	m, _ = apply(t, m, Event{Type: EventAddTask, Name: "b", DimensionID: &dim}, dims)

	zero := 0
	_, _ = apply(t, m, Event{Type: EventRemoveTask, Index: &zero}, dims)

	require.Len(t, m.Context.CustomTasks, 2)
	assert.Equal(t, "a", m.Context.CustomTasks[0].Name)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	userID := uuid.New()

	require.NoError(t, store.Save(ctx, userID, New()))
	m, ok, err := store.Load(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateWelcome, m.State)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Load(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}
