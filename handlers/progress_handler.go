package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/feed"
	"growthTrackerAPI/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type ProgressHandler struct {
	progressService *services.ProgressService
	hub             *feed.Hub
}

func NewProgressHandler(progressService *services.ProgressService, hub *feed.Hub) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, hub: hub}
}

// GET /api/v1/user/progress
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	resp, err := h.progressService.GetProgress(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/user/progress/radar?size=
func (h *ProgressHandler) GetRadar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUser(w, ctx)
	if !ok {
		return
	}

	var size float64
	if raw := r.URL.Query().Get("size"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 4096 {
			respondWithAppError(w, apperror.Field("size", "must be a number between 0 and 4096"))
			return
		}
		size = v
	}

	chart, err := h.progressService.GetRadar(ctx, userID, size)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, chart)
}

// GET /api/v1/user/feed/ws
func (h *ProgressHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r.Context())
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Feed: could not upgrade connection for %s: %v", userID, err)
		return
	}

	client := feed.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
