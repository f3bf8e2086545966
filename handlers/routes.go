package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes bundles every handler so main and the handler tests mount the same API.
type Routes struct {
	Auth         *AuthHandler
	User         *UserHandler
	Catalog      *CatalogHandler
	Wizard       *WizardHandler
	Tracking     *TrackingHandler
	Progress     *ProgressHandler
	Notification *NotificationHandler
	Seed         *SeedHandler
	Webhook      *WebhookHandler
}

// Register mounts the API on r. requireAuth guards /api/v1 user routes and
// seedGuard guards /api/seed.
func (rt *Routes) Register(r *mux.Router, requireAuth, seedGuard mux.MiddlewareFunc) {
	r.HandleFunc("/webhooks/clerk", rt.Webhook.HandleClerkWebhook).Methods(http.MethodPost)

	seed := r.PathPrefix("/api/seed").Subrouter()
	seed.Use(seedGuard)
	seed.HandleFunc("", rt.Seed.SeedAll).Methods(http.MethodGet)
	seed.HandleFunc("/dimensions", rt.Seed.SeedDimensions).Methods(http.MethodGet)
	seed.HandleFunc("/challenges", rt.Seed.SeedChallenges).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", rt.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", rt.Auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", rt.Auth.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", rt.Auth.Logout).Methods(http.MethodPost)

	api.HandleFunc("/dimensions", rt.Catalog.GetDimensions).Methods(http.MethodGet)
	api.HandleFunc("/dimensions/{id}", rt.Catalog.GetDimension).Methods(http.MethodGet)
	api.HandleFunc("/challenges", rt.Catalog.GetChallenges).Methods(http.MethodGet)
	api.HandleFunc("/challenges/{id}", rt.Catalog.GetChallenge).Methods(http.MethodGet)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(requireAuth)

	protected.HandleFunc("/challenges/custom", rt.Catalog.CreateCustomChallenge).Methods(http.MethodPost)
	protected.HandleFunc("/session", rt.Catalog.GetSession).Methods(http.MethodGet)

	protected.HandleFunc("/user", rt.User.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/user", rt.User.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/user/challenges", rt.Catalog.Enroll).Methods(http.MethodPost)
	protected.HandleFunc("/user/daily-tasks", rt.Tracking.GetDailyTasks).Methods(http.MethodGet)
	protected.HandleFunc("/user/daily-tasks/{id}/complete", rt.Tracking.CompleteTask).Methods(http.MethodPost)
	protected.HandleFunc("/user/calendar", rt.Tracking.GetCalendar).Methods(http.MethodGet)
	protected.HandleFunc("/user/stats", rt.Tracking.GetStats).Methods(http.MethodGet)
	protected.HandleFunc("/user/progress", rt.Progress.GetProgress).Methods(http.MethodGet)
	protected.HandleFunc("/user/progress/radar", rt.Progress.GetRadar).Methods(http.MethodGet)
	protected.HandleFunc("/user/feed/ws", rt.Progress.Feed).Methods(http.MethodGet)

	protected.HandleFunc("/onboarding/wizard", rt.Wizard.Start).Methods(http.MethodPost)
	protected.HandleFunc("/onboarding/wizard", rt.Wizard.Get).Methods(http.MethodGet)
	protected.HandleFunc("/onboarding/wizard", rt.Wizard.Cancel).Methods(http.MethodDelete)
	protected.HandleFunc("/onboarding/wizard/events", rt.Wizard.Apply).Methods(http.MethodPost)

	protected.HandleFunc("/notifications", rt.Notification.GetNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/unread-count", rt.Notification.GetUnreadCount).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/read-all", rt.Notification.MarkAllAsRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/preferences", rt.Notification.GetPreferences).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/preferences", rt.Notification.UpdatePreferences).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/register-device", rt.Notification.RegisterDevice).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/test", rt.Notification.SendTestNotification).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/{id}/read", rt.Notification.MarkAsRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/{id}", rt.Notification.DeleteNotification).Methods(http.MethodDelete)
}
