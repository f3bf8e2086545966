package handlers

import (
	"context"
	"net/http"
	"time"

	"growthTrackerAPI/internal/wizard"
	"growthTrackerAPI/services"
)

// WizardHandler exposes the challenge-selection onboarding flow. Each user has
// at most one wizard in progress.
type WizardHandler struct {
	wizardService *services.WizardService
}

func NewWizardHandler(wizardService *services.WizardService) *WizardHandler {
	return &WizardHandler{wizardService: wizardService}
}

// POST /api/v1/onboarding/wizard
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	resp, err := h.wizardService.Start(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/onboarding/wizard
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	resp, err := h.wizardService.Get(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/onboarding/wizard/events
func (h *WizardHandler) Apply(w http.ResponseWriter, r *http.Request) {
	// detail fetches and the final commit run inside this request
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	var ev wizard.Event
	if !decodeJSON(w, r, &ev) {
		return
	}

	resp, err := h.wizardService.Apply(ctx, userID, ev)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/onboarding/wizard
func (h *WizardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	if err := h.wizardService.Cancel(ctx, userID); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
