package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/user"
	"growthTrackerAPI/middleware"
	"growthTrackerAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithAppError(w, apperror.Unauthenticated("User not authenticated"))
		return
	}

	u, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithAppError(w, apperror.Unauthenticated("User not authenticated"))
		return
	}

	var req user.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.userService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		log.Printf("UpdateProfile: user %s: %v", userID, err)
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

// Helper functions

// currentUser writes a 401 and reports false when the request carries no user.
func currentUser(w http.ResponseWriter, ctx context.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithAppError(w, apperror.Unauthenticated("User not authenticated"))
	}
	return userID, ok
}

func pathUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		respondWithAppError(w, apperror.Field(field, "must be a valid id"))
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// signInURL is attached to every 401 so clients know where to send the user.
var signInURL = "/api/v1/auth/login"

func SetSignInURL(url string) {
	if url != "" {
		signInURL = url
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   apperror.Kind     `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
	SignIn string            `json:"signIn,omitempty"`
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case apperror.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError maps service errors onto the JSON error contract.
// Internal and upstream causes are logged, never sent to the client.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		log.Printf("respondWithAppError: unexpected error: %v", err)
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Internal server error",
			Kind:  apperror.KindInternal,
		})
		return
	}

	resp := errorResponse{Error: appErr.Message, Kind: appErr.Kind, Fields: appErr.Fields}
	switch appErr.Kind {
	case apperror.KindUnauthenticated:
		resp.SignIn = signInURL
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	case apperror.KindInternal, apperror.KindUpstreamUnavailable:
		log.Printf("respondWithAppError: %v", err)
	}
	if resp.Error == "" {
		resp.Error = http.StatusText(statusFor(appErr.Kind))
	}
	respondWithJSON(w, statusFor(appErr.Kind), resp)
}
