package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"growthTrackerAPI/services"
)

// SeedHandler loads the reference catalog. Routes sit behind the seed secret.
type SeedHandler struct {
	seedService *services.SeedService
}

func NewSeedHandler(seedService *services.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

func (h *SeedHandler) run(w http.ResponseWriter, r *http.Request, name string, seed func(context.Context) (*services.SeedResult, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := seed(ctx)
	if err != nil {
		log.Printf("%s: %v", name, err)
		respondWithAppError(w, err)
		return
	}

	log.Printf("%s: %d dimensions, %d challenges, %d created", name, result.Dimensions, result.Challenges, result.Created)
	respondWithJSON(w, http.StatusOK, result)
}

// GET /api/seed
func (h *SeedHandler) SeedAll(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "SeedAll", h.seedService.SeedAll)
}

// GET /api/seed/dimensions
func (h *SeedHandler) SeedDimensions(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "SeedDimensions", h.seedService.SeedDimensions)
}

// GET /api/seed/challenges
func (h *SeedHandler) SeedChallenges(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "SeedChallenges", h.seedService.SeedChallenges)
}
