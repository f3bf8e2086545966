package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/internal/wizard"
	"growthTrackerAPI/services"
)

func (s *testServer) wizardEvent(t *testing.T, token string, ev map[string]any) *services.WizardResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/onboarding/wizard/events", token, ev)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[services.WizardResponse](t, rec)
	return &resp
}

func TestWizardPredefinedFlow(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, "wizard@example.com")
	id := s.challengeID(t, "Foundations of Faith")

	rec := s.do(t, http.MethodPost, "/api/v1/onboarding/wizard", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, wizard.StateWelcome, decode[services.WizardResponse](t, rec).State)

	resp := s.wizardEvent(t, token, map[string]any{"type": "next"})
	assert.Equal(t, wizard.StateChooseChallenge, resp.State)

	rec = s.do(t, http.MethodPost, "/api/v1/onboarding/wizard/events", token, map[string]any{"type": "next"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/onboarding/wizard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wizard.StateChooseChallenge, decode[services.WizardResponse](t, rec).State)

	resp = s.wizardEvent(t, token, map[string]any{"type": "select_challenge", "challengeId": id})
	assert.Equal(t, wizard.StateChallengeDetail, resp.State)
	assert.Equal(t, wizard.DetailLoaded, resp.Context.DetailStatus)
	require.NotNil(t, resp.Context.Detail)
	assert.Len(t, resp.Context.SelectedTaskIDs, 5)

	toggled := resp.Context.SelectedTaskIDs[0]
	resp = s.wizardEvent(t, token, map[string]any{"type": "toggle_task", "taskId": toggled})
	assert.Len(t, resp.Context.SelectedTaskIDs, 4)

	resp = s.wizardEvent(t, token, map[string]any{"type": "next"})
	assert.Equal(t, wizard.StateChallengeSummary, resp.State)

	resp = s.wizardEvent(t, token, map[string]any{"type": "finish"})
	assert.Equal(t, wizard.StateCompleted, resp.State)
	require.NotNil(t, resp.Enrollment)
	assert.Equal(t, id, resp.Enrollment.Challenge.ID)
	assert.Len(t, resp.Enrollment.Challenge.Tasks, 4)

	rec = s.do(t, http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[challenge.SessionResponse](t, rec).Challenge.ID)

	// a finished wizard is cleared, so the next read starts over
	rec = s.do(t, http.MethodGet, "/api/v1/onboarding/wizard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wizard.StateWelcome, decode[services.WizardResponse](t, rec).State)
}

func TestWizardRejectsBadEvents(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, "wizard-bad@example.com")

	for _, ev := range []map[string]any{
		{},
		{"type": "detail_loaded"},
	} {
		rec := s.do(t, http.MethodPost, "/api/v1/onboarding/wizard/events", token, ev)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, apperror.KindValidationFailed, errorBody(t, rec).Kind)
		assert.Contains(t, errorBody(t, rec).Fields, "type")
	}

	s.wizardEvent(t, token, map[string]any{"type": "next"})
	resp := s.wizardEvent(t, token, map[string]any{"type": "select_challenge", "challengeId": uuid.New()})
	assert.Equal(t, wizard.StateChallengeDetail, resp.State)
	assert.Equal(t, wizard.DetailFailed, resp.Context.DetailStatus)
	assert.NotEmpty(t, resp.Context.DetailError)

	rec := s.do(t, http.MethodDelete, "/api/v1/onboarding/wizard", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
