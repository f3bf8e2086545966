package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/services"
)

type TrackingHandler struct {
	trackingService *services.TrackingService
	now             func() time.Time
}

func NewTrackingHandler(trackingService *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService, now: time.Now}
}

// GET /api/v1/user/daily-tasks?date=YYYY-MM-DD
func (h *TrackingHandler) GetDailyTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	resp, err := h.trackingService.GetDailyTasks(ctx, userID, r.URL.Query().Get("date"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/user/daily-tasks/{id}/complete
func (h *TrackingHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	dailyTaskID, ok := pathUUID(w, mux.Vars(r)["id"], "id")
	if !ok {
		return
	}

	resp, err := h.trackingService.CompleteTask(ctx, userID, dailyTaskID)
	if err != nil {
		log.Printf("CompleteTask: user %s task %s: %v", userID, dailyTaskID, err)
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// queryInt reads an optional integer query parameter, using def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Field(name, "must be a number")
	}
	return v, nil
}

// GET /api/v1/user/calendar?year=&month=
func (h *TrackingHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	now := h.now()
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	resp, err := h.trackingService.GetCalendar(ctx, userID, year, month)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/user/stats
func (h *TrackingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	stats, err := h.trackingService.GetStats(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
