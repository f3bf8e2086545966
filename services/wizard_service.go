package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/metrics"
	"growthTrackerAPI/internal/wizard"
)

const defaultDetailTimeout = 5 * time.Second

type WizardResponse struct {
	State      wizard.State               `json:"state"`
	Context    wizard.Context             `json:"context"`
	Effects    []wizard.Effect            `json:"effects,omitempty"`
	Enrollment *challenge.SessionResponse `json:"enrollment,omitempty"`
}

// WizardService drives one challenge-selection wizard per user. The machine
// itself is pure; this service performs its effects and persists it.
type WizardService struct {
	store      wizard.Store
	catalog    *CatalogService
	enrollment *EnrollmentService
	timeout    time.Duration
}

func NewWizardService(store wizard.Store, catalog *CatalogService, enrollment *EnrollmentService) *WizardService {
	return &WizardService{store: store, catalog: catalog, enrollment: enrollment, timeout: defaultDetailTimeout}
}

func (s *WizardService) SetDetailTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func newWizardResponse(m wizard.Machine) *WizardResponse {
	return &WizardResponse{State: m.State, Context: m.Context}
}

// Start discards any wizard in progress and begins a new one.
func (s *WizardService) Start(ctx context.Context, userID uuid.UUID) (*WizardResponse, error) {
	m := wizard.New()
	if err := s.store.Save(ctx, userID, m); err != nil {
		return nil, apperror.Upstream("failed to save wizard session", err)
	}
	return newWizardResponse(m), nil
}

// Get returns the user's wizard, starting one if none is in progress.
func (s *WizardService) Get(ctx context.Context, userID uuid.UUID) (*WizardResponse, error) {
	m, ok, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, apperror.Upstream("failed to load wizard session", err)
	}
	if !ok {
		return s.Start(ctx, userID)
	}
	return newWizardResponse(m), nil
}

func (s *WizardService) Cancel(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return apperror.Upstream("failed to delete wizard session", err)
	}
	return nil
}

// Apply feeds a client event to the user's wizard and runs whatever the
// transition asks for. When the final commit fails the stored wizard is left
// as it was so the user can retry.
func (s *WizardService) Apply(ctx context.Context, userID uuid.UUID, ev wizard.Event) (*WizardResponse, error) {
	if ev.Type == "" {
		return nil, apperror.Field("type", "is required")
	}
	if ev.Type.Internal() {
		return nil, apperror.Field("type", fmt.Sprintf("%s cannot be sent by clients", ev.Type))
	}

	m, ok, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, apperror.Upstream("failed to load wizard session", err)
	}
	if !ok {
		m = wizard.New()
	}

	var dims wizard.DimensionLookup = wizard.DimensionSet{}
	if ev.Type == wizard.EventAddTask {
		set, err := s.catalog.DimensionSet(ctx)
		if err != nil {
			return nil, err
		}
		dims = set
	}

	from := m.State
	next, effects, err := wizard.Transition(m, ev, dims)
	if err != nil {
		metrics.WizardTransitions.WithLabelValues(string(from), string(ev.Type), "rejected").Inc()
		return nil, err
	}
	metrics.WizardTransitions.WithLabelValues(string(from), string(ev.Type), "accepted").Inc()

	resp := &WizardResponse{}
	for len(effects) > 0 {
		effect := effects[0]
		effects = effects[1:]
		resp.Effects = append(resp.Effects, effect)

		switch effect.Type {
		case wizard.EffectFetchDetail:
			result := s.fetchDetail(ctx, effect.ChallengeID)
			var more []wizard.Effect
			next, more, err = wizard.Transition(next, result, dims)
			if err != nil {
				return nil, err
			}
			effects = append(effects, more...)

		case wizard.EffectCommit:
			session, err := s.commit(ctx, userID, effect.Completion)
			if err != nil {
				return nil, err
			}
			if err := s.store.Delete(ctx, userID); err != nil {
				log.Printf("Apply: failed to clear wizard session for %s: %v", userID, err)
			}
			resp.State = next.State
			resp.Context = next.Context
			resp.Enrollment = session
			return resp, nil
		}
	}

	if err := s.store.Save(ctx, userID, next); err != nil {
		return nil, apperror.Upstream("failed to save wizard session", err)
	}
	resp.State = next.State
	resp.Context = next.Context
	return resp, nil
}

// fetchDetail turns a detail lookup into the event the machine expects back.
func (s *WizardService) fetchDetail(ctx context.Context, challengeID uuid.UUID) wizard.Event {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id := challengeID
	detail, err := s.catalog.GetChallengeDetail(ctx, challengeID)
	if err != nil {
		log.Printf("fetchDetail: challenge %s: %v", challengeID, err)
		return wizard.Event{Type: wizard.EventDetailFailed, ChallengeID: &id, Message: err.Error()}
	}
	return wizard.Event{Type: wizard.EventDetailLoaded, ChallengeID: &id, Detail: detail}
}

func (s *WizardService) commit(ctx context.Context, userID uuid.UUID, c *wizard.Completion) (*challenge.SessionResponse, error) {
	if c == nil {
		return nil, apperror.Internal("wizard finished without a result", nil)
	}
	switch c.Kind {
	case wizard.CompletionPredefined:
		return s.enrollment.Enroll(ctx, userID, c.ChallengeID, c.TaskIDs)
	case wizard.CompletionCustom:
		return s.enrollment.CreateCustomAndEnroll(ctx, userID, c.Custom)
	}
	return nil, apperror.Internal("unknown wizard result "+string(c.Kind), nil)
}
