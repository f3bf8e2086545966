package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/challenge"
	"growthTrackerAPI/services"
)

type CatalogHandler struct {
	catalogService    *services.CatalogService
	enrollmentService *services.EnrollmentService
}

func NewCatalogHandler(catalogService *services.CatalogService, enrollmentService *services.EnrollmentService) *CatalogHandler {
	return &CatalogHandler{
		catalogService:    catalogService,
		enrollmentService: enrollmentService,
	}
}

// GET /api/v1/dimensions
func (h *CatalogHandler) GetDimensions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dims, err := h.catalogService.ListDimensions(ctx)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dims)
}

// GET /api/v1/dimensions/{id}
func (h *CatalogHandler) GetDimension(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := pathUUID(w, mux.Vars(r)["id"], "id")
	if !ok {
		return
	}

	dim, err := h.catalogService.GetDimension(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dim)
}

// GET /api/v1/challenges
func (h *CatalogHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	challenges, err := h.catalogService.ListChallenges(ctx)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

// GET /api/v1/challenges/{id}
func (h *CatalogHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := pathUUID(w, mux.Vars(r)["id"], "id")
	if !ok {
		return
	}

	detail, err := h.catalogService.GetChallengeDetail(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// POST /api/v1/challenges/custom
func (h *CatalogHandler) CreateCustomChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	var req challenge.CreateCustomChallengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	detail, err := h.catalogService.CreateCustomChallenge(ctx, userID, &req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	log.Printf("CreateCustomChallenge: %s created %q", userID, detail.Name)
	respondWithJSON(w, http.StatusCreated, detail)
}

// GET /api/v1/session
func (h *CatalogHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	session, err := h.enrollmentService.GetSession(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// POST /api/v1/user/challenges
func (h *CatalogHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	var req challenge.EnrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := apperror.ValidateStruct(&req); err != nil {
		respondWithAppError(w, err)
		return
	}

	session, err := h.enrollmentService.Enroll(ctx, userID, req.ChallengeID, req.TaskIDs)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}
