// Package wizard implements the challenge-selection onboarding flow as a finite
// state machine. Transition is pure: it never performs I/O, it only returns the
// effects (detail fetch, commit) the caller has to run.
package wizard

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/challenge"
)

const (
	MaxCustomTasks    = 5
	MinCustomTasks    = 1
	MaxDurationDays   = 365
	DefaultTaskPoints = 5
)

type State string

const (
	StateWelcome          State = "welcome"
	StateChooseChallenge  State = "choose_challenge"
	StateChallengeDetail  State = "challenge_detail"
	StateChallengeSummary State = "challenge_summary"
	StateCustomBasicInfo  State = "custom_basic_info"
	StateCustomAddTasks   State = "custom_add_tasks"
	StateCustomSummary    State = "custom_summary"
	StateCompleted        State = "completed"
)

type DetailStatus string

const (
	DetailIdle    DetailStatus = "idle"
	DetailLoading DetailStatus = "loading"
	DetailLoaded  DetailStatus = "loaded"
	DetailFailed  DetailStatus = "failed"
)

type EventType string

const (
	EventNext            EventType = "next"
	EventBack            EventType = "back"
	EventSelectChallenge EventType = "select_challenge"
	EventChooseCustom    EventType = "choose_custom"
	EventToggleTask      EventType = "toggle_task"
	EventDetailLoaded    EventType = "detail_loaded"
	EventDetailFailed    EventType = "detail_failed"
	EventRetryDetail     EventType = "retry_detail"
	EventSetBasicInfo    EventType = "set_basic_info"
	EventAddTask         EventType = "add_task"
	EventRemoveTask      EventType = "remove_task"
	EventFinish          EventType = "finish"
)

// Internal events are produced by the detail fetch, never by clients.
func (t EventType) Internal() bool {
	return t == EventDetailLoaded || t == EventDetailFailed
}

type Event struct {
	Type         EventType  `json:"type"`
	ChallengeID  *uuid.UUID `json:"challengeId,omitempty"`
	TaskID       *uuid.UUID `json:"taskId,omitempty"`
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	DurationDays int        `json:"durationDays,omitempty"`
	DimensionID  *uuid.UUID `json:"dimensionId,omitempty"`
	Points       int        `json:"points,omitempty"`
	Index        *int       `json:"index,omitempty"`

	Detail  *challenge.ChallengeDetail `json:"-"`
	Message string                     `json:"-"`
}

type CustomTask struct {
	Name        string    `json:"name"`
	DimensionID uuid.UUID `json:"dimensionId"`
	Points      int       `json:"points"`
}

type Context struct {
	SelectedChallengeID *uuid.UUID                 `json:"selectedChallengeId,omitempty"`
	DetailStatus        DetailStatus               `json:"detailStatus"`
	DetailError         string                     `json:"detailError,omitempty"`
	Detail              *challenge.ChallengeDetail `json:"detail,omitempty"`
	SelectedTaskIDs     []uuid.UUID                `json:"selectedTaskIds"`

	CustomName         string       `json:"customName,omitempty"`
	CustomDescription  string       `json:"customDescription,omitempty"`
	CustomDurationDays int          `json:"customDurationDays,omitempty"`
	CustomTasks        []CustomTask `json:"customTasks"`
}

type Machine struct {
	State   State   `json:"state"`
	Context Context `json:"context"`
}

func New() Machine {
	return Machine{
		State: StateWelcome,
		Context: Context{
			DetailStatus:    DetailIdle,
			SelectedTaskIDs: []uuid.UUID{},
			CustomTasks:     []CustomTask{},
		},
	}
}

type CompletionKind string

const (
	CompletionPredefined CompletionKind = "predefined"
	CompletionCustom     CompletionKind = "custom"
)

// Completion is what the wizard hands to its caller on reaching the end.
type Completion struct {
	Kind        CompletionKind                          `json:"kind"`
	ChallengeID uuid.UUID                               `json:"challengeId,omitempty"`
	TaskIDs     []uuid.UUID                             `json:"taskIds,omitempty"`
	Custom      *challenge.CreateCustomChallengeRequest `json:"custom,omitempty"`
}

type EffectType string

const (
	EffectFetchDetail EffectType = "fetch_detail"
	EffectCommit      EffectType = "commit"
)

type Effect struct {
	Type        EffectType  `json:"type"`
	ChallengeID uuid.UUID   `json:"challengeId,omitempty"`
	Completion  *Completion `json:"completion,omitempty"`
}

// DimensionLookup tells custom-task authoring which dimensions exist.
type DimensionLookup interface {
	HasDimension(id uuid.UUID) bool
}

type DimensionSet map[uuid.UUID]struct{}

func (s DimensionSet) HasDimension(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

var (
	ErrGuard        = errors.New("wizard guard not satisfied")
	ErrTerminal     = errors.New("wizard already completed")
	ErrUnknownEvent = errors.New("event not accepted in this step")
)

func guard(message, field string) error {
	e := &apperror.Error{Kind: apperror.KindValidationFailed, Message: message, Err: ErrGuard}
	if field != "" {
		e.Fields = map[string]string{field: message}
	}
	return e
}

func rejected(m Machine, ev Event) error {
	return &apperror.Error{
		Kind:    apperror.KindValidationFailed,
		Message: "event " + string(ev.Type) + " not accepted in step " + string(m.State),
		Err:     ErrUnknownEvent,
	}
}

// Transition applies ev to m. On error the returned machine is m unchanged.
func Transition(m Machine, ev Event, dims DimensionLookup) (Machine, []Effect, error) {
	if m.State == StateCompleted {
		return m, nil, &apperror.Error{Kind: apperror.KindValidationFailed, Message: ErrTerminal.Error(), Err: ErrTerminal}
	}

	next := m.clone()
	var effects []Effect
	var err error

	switch m.State {
	case StateWelcome:
		err = next.welcome(ev)
	case StateChooseChallenge:
		effects, err = next.chooseChallenge(ev)
	case StateChallengeDetail:
		effects, err = next.challengeDetail(ev)
	case StateChallengeSummary:
		effects, err = next.challengeSummary(ev)
	case StateCustomBasicInfo:
		err = next.customBasicInfo(ev)
	case StateCustomAddTasks:
		err = next.customAddTasks(ev, dims)
	case StateCustomSummary:
		effects, err = next.customSummary(ev)
	default:
		err = rejected(m, ev)
	}

	if err != nil {
		return m, nil, err
	}
	return next, effects, nil
}

func (m *Machine) welcome(ev Event) error {
	if ev.Type != EventNext {
		return rejected(*m, ev)
	}
	m.State = StateChooseChallenge
	return nil
}

func (m *Machine) chooseChallenge(ev Event) ([]Effect, error) {
	switch ev.Type {
	case EventSelectChallenge:
		if ev.ChallengeID == nil || *ev.ChallengeID == uuid.Nil {
			return nil, guard("a challenge must be selected", "challengeId")
		}
		id := *ev.ChallengeID
		m.Context.SelectedChallengeID = &id
		return m.openDetail(), nil
	case EventNext:
		if m.Context.SelectedChallengeID == nil {
			return nil, guard("select a challenge or create a custom one first", "challengeId")
		}
		return m.openDetail(), nil
	case EventChooseCustom:
		m.State = StateCustomBasicInfo
		return nil, nil
	case EventBack:
		m.State = StateWelcome
		return nil, nil
	}
	return nil, rejected(*m, ev)
}

func (m *Machine) openDetail() []Effect {
	id := *m.Context.SelectedChallengeID
	m.State = StateChallengeDetail
	if m.Context.Detail != nil && m.Context.Detail.ID == id && m.Context.DetailStatus == DetailLoaded {
		return nil
	}
	m.Context.Detail = nil
	m.Context.DetailError = ""
	m.Context.DetailStatus = DetailLoading
	m.Context.SelectedTaskIDs = []uuid.UUID{}
	return []Effect{{Type: EffectFetchDetail, ChallengeID: id}}
}

func (m *Machine) challengeDetail(ev Event) ([]Effect, error) {
	switch ev.Type {
	case EventDetailLoaded:
		if ev.Detail == nil || m.Context.SelectedChallengeID == nil || ev.Detail.ID != *m.Context.SelectedChallengeID {
			// a late result for a challenge the user moved away from
			return nil, nil
		}
		m.Context.Detail = ev.Detail
		m.Context.DetailStatus = DetailLoaded
		m.Context.DetailError = ""
		m.Context.SelectedTaskIDs = ev.Detail.TaskIDs()
		return nil, nil
	case EventDetailFailed:
		if ev.ChallengeID != nil && m.Context.SelectedChallengeID != nil && *ev.ChallengeID != *m.Context.SelectedChallengeID {
			return nil, nil
		}
		m.Context.DetailStatus = DetailFailed
		m.Context.DetailError = ev.Message
		if m.Context.DetailError == "" {
			m.Context.DetailError = "challenge details could not be loaded"
		}
		return nil, nil
	case EventRetryDetail:
		if m.Context.DetailStatus != DetailFailed {
			return nil, guard("challenge details are not in a failed state", "")
		}
		return m.openDetail(), nil
	case EventToggleTask:
		if m.Context.DetailStatus != DetailLoaded {
			return nil, guard("challenge details are not loaded yet", "")
		}
		if ev.TaskID == nil || !containsID(m.Context.Detail.TaskIDs(), *ev.TaskID) {
			return nil, guard("task does not belong to the selected challenge", "taskId")
		}
		m.Context.SelectedTaskIDs = toggle(m.Context.Detail.TaskIDs(), m.Context.SelectedTaskIDs, *ev.TaskID)
		return nil, nil
	case EventNext:
		if m.Context.DetailStatus != DetailLoaded {
			return nil, guard("challenge details are not loaded yet", "")
		}
		if len(m.Context.SelectedTaskIDs) == 0 {
			return nil, guard("keep at least one task", "selectedTaskIds")
		}
		m.State = StateChallengeSummary
		return nil, nil
	case EventBack:
		m.State = StateChooseChallenge
		return nil, nil
	}
	return nil, rejected(*m, ev)
}

func (m *Machine) challengeSummary(ev Event) ([]Effect, error) {
	switch ev.Type {
	case EventBack:
		m.State = StateChallengeDetail
		return nil, nil
	case EventNext, EventFinish:
		completion := &Completion{
			Kind:        CompletionPredefined,
			ChallengeID: *m.Context.SelectedChallengeID,
			TaskIDs:     append([]uuid.UUID(nil), m.Context.SelectedTaskIDs...),
		}
		m.State = StateCompleted
		return []Effect{{Type: EffectCommit, Completion: completion}}, nil
	}
	return nil, rejected(*m, ev)
}

func (m *Machine) customBasicInfo(ev Event) error {
	switch ev.Type {
	case EventSetBasicInfo:
		if ev.DurationDays < 0 || ev.DurationDays > MaxDurationDays {
			return guard("duration must be between 1 and 365 days", "durationDays")
		}
		m.Context.CustomName = strings.TrimSpace(ev.Name)
		m.Context.CustomDescription = strings.TrimSpace(ev.Description)
		m.Context.CustomDurationDays = ev.DurationDays
		return nil
	case EventNext:
		if m.Context.CustomName == "" {
			return guard("challenge name is required", "name")
		}
		if m.Context.CustomDurationDays < 1 {
			return guard("duration must be between 1 and 365 days", "durationDays")
		}
		m.State = StateCustomAddTasks
		return nil
	case EventBack:
		// skips straight back to the challenge list
		m.State = StateChooseChallenge
		return nil
	}
	return rejected(*m, ev)
}

func (m *Machine) customAddTasks(ev Event, dims DimensionLookup) error {
	switch ev.Type {
	case EventAddTask:
		if len(m.Context.CustomTasks) >= MaxCustomTasks {
			return guard("a custom challenge has at most 5 tasks", "tasks")
		}
		name := strings.TrimSpace(ev.Name)
		if name == "" {
			return guard("task name is required", "name")
		}
		if ev.DimensionID == nil || dims == nil || !dims.HasDimension(*ev.DimensionID) {
			return guard("task must belong to a known dimension", "dimensionId")
		}
		if ev.Points < 0 || ev.Points > 100 {
			return guard("points must be between 0 and 100", "points")
		}
		points := ev.Points
		if points == 0 {
			points = DefaultTaskPoints
		}
		m.Context.CustomTasks = append(m.Context.CustomTasks, CustomTask{
			Name:        name,
			DimensionID: *ev.DimensionID,
			Points:      points,
		})
		return nil
	case EventRemoveTask:
		if ev.Index == nil || *ev.Index < 0 || *ev.Index >= len(m.Context.CustomTasks) {
			return guard("no task at that position", "index")
		}
		i := *ev.Index
		m.Context.CustomTasks = append(m.Context.CustomTasks[:i], m.Context.CustomTasks[i+1:]...)
		return nil
	case EventNext:
		if len(m.Context.CustomTasks) < MinCustomTasks {
			return guard("add at least one task", "tasks")
		}
		m.State = StateCustomSummary
		return nil
	case EventBack:
		m.State = StateCustomBasicInfo
		return nil
	}
	return rejected(*m, ev)
}

func (m *Machine) customSummary(ev Event) ([]Effect, error) {
	switch ev.Type {
	case EventBack:
		m.State = StateCustomAddTasks
		return nil, nil
	case EventNext, EventFinish:
		m.State = StateCompleted
		return []Effect{{Type: EffectCommit, Completion: &Completion{Kind: CompletionCustom, Custom: m.Context.Draft()}}}, nil
	}
	return nil, rejected(*m, ev)
}

// Draft is the custom challenge authored so far.
func (c Context) Draft() *challenge.CreateCustomChallengeRequest {
	req := &challenge.CreateCustomChallengeRequest{
		Name:         c.CustomName,
		Description:  c.CustomDescription,
		DurationDays: c.CustomDurationDays,
		Tasks:        make([]challenge.CustomTaskInput, 0, len(c.CustomTasks)),
	}
	for _, t := range c.CustomTasks {
		req.Tasks = append(req.Tasks, challenge.CustomTaskInput{
			Name:        t.Name,
			DimensionID: t.DimensionID,
			Points:      t.Points,
		})
	}
	return req
}

func (m Machine) clone() Machine {
	c := m
	c.Context.SelectedTaskIDs = append([]uuid.UUID{}, m.Context.SelectedTaskIDs...)
	c.Context.CustomTasks = append([]CustomTask{}, m.Context.CustomTasks...)
	if m.Context.SelectedChallengeID != nil {
		id := *m.Context.SelectedChallengeID
		c.Context.SelectedChallengeID = &id
	}
	return c
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// toggle flips id in selected, keeping the result in the detail's task order.
func toggle(order, selected []uuid.UUID, id uuid.UUID) []uuid.UUID {
	on := make(map[uuid.UUID]bool, len(selected))
	for _, s := range selected {
		on[s] = true
	}
	on[id] = !on[id]

	out := []uuid.UUID{}
	for _, o := range order {
		if on[o] {
			out = append(out, o)
		}
	}
	return out
}
