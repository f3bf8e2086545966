package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/feed"
	"growthTrackerAPI/internal/security"
	"growthTrackerAPI/internal/testutil"
	"growthTrackerAPI/internal/user"
	"growthTrackerAPI/internal/wizard"
	"growthTrackerAPI/middleware"
	"growthTrackerAPI/services"
)

const (
	testSeedSecret    = "seed-secret"
	testWebhookSecret = "whsec_dGVzdC13ZWJob29rLXNlY3JldA=="
)

type testServer struct {
	router   *mux.Router
	db       *gorm.DB
	tokens   *security.TokenManager
	clock    *testutil.Clock
	hub      *feed.Hub
	webhook  *WebhookHandler
	tracking *services.TrackingService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	clock := testutil.NewClock("2026-03-02")
	tokens := testutil.NewTokenManager()

	catalog := services.NewCatalogService(db, nil)
	enrollment := services.NewEnrollmentService(db, catalog, time.UTC)
	enrollment.SetClock(clock.Now)
	progress := services.NewProgressService(db)
	tracking := services.NewTrackingService(db, progress, time.UTC)
	tracking.SetClock(clock.Now)
	seed := services.NewSeedService(db, catalog)
	_, err := seed.SeedAll(context.Background())
	require.NoError(t, err)

	notifications := services.NewNotificationService(db)
	t.Cleanup(notifications.Stop)

	hub := feed.NewHub()
	tracking.SetFeed(hub)

	users := services.NewUserService(db)
	auth := services.NewAuthService(db, security.NewPasswordHasher(bcrypt.MinCost), tokens, security.NewMemoryRefreshStore())
	wizards := services.NewWizardService(wizard.NewMemoryStore(time.Hour), catalog, enrollment)

	trackingHandler := NewTrackingHandler(tracking)
	trackingHandler.now = clock.Now
	webhook := NewWebhookHandler(users, testWebhookSecret)
	webhook.now = clock.Now

	routes := &Routes{
		Auth:         NewAuthHandler(auth),
		User:         NewUserHandler(users),
		Catalog:      NewCatalogHandler(catalog, enrollment),
		Wizard:       NewWizardHandler(wizards),
		Tracking:     trackingHandler,
		Progress:     NewProgressHandler(progress, hub),
		Notification: NewNotificationHandler(notifications),
		Seed:         NewSeedHandler(seed),
		Webhook:      webhook,
	}

	r := mux.NewRouter()
	authn := middleware.NewAuthenticator(tokens, "/api/v1/auth/login")
	routes.Register(r, authn.Middleware, middleware.HeaderSecret("X-Seed-Secret", testSeedSecret))

	return &testServer{
		router:   r,
		db:       db,
		tokens:   tokens,
		clock:    clock,
		hub:      hub,
		webhook:  webhook,
		tracking: tracking,
	}
}

// newUser inserts a user directly and returns it with an access token.
func (s *testServer) newUser(t *testing.T, email string) (*user.User, string) {
	t.Helper()
	u := &user.User{Name: "Test", Email: email}
	require.NoError(t, s.db.Create(u).Error)
	return u, testutil.Token(t, s.tokens, u.ID)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	return decode[errorResponse](t, rec)
}

func (s *testServer) challengeID(t *testing.T, name string) uuid.UUID {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/v1/challenges", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range decode[[]struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}](t, rec) {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("challenge %q not found", name)
	return uuid.Nil
}
