package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"growthTrackerAPI/handlers"
	"growthTrackerAPI/internal/cache"
	"growthTrackerAPI/internal/config"
	"growthTrackerAPI/internal/database"
	"growthTrackerAPI/internal/feed"
	"growthTrackerAPI/internal/metrics"
	"growthTrackerAPI/internal/notification"
	"growthTrackerAPI/internal/security"
	"growthTrackerAPI/internal/wizard"
	"growthTrackerAPI/middleware"
	"growthTrackerAPI/services"
)

func serve(ctx context.Context, cfg *config.Config) error {
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.Open(startCtx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db.DB); err != nil {
		return err
	}

	redisClient, err := cache.NewRedisClient(startCtx, cfg.RedisAddr)
	if err != nil {
		log.Printf("Warning: Could not connect to redis at %s, using in-memory stores: %v", cfg.RedisAddr, err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	var (
		wizardStore  wizard.Store
		refreshStore security.RefreshStore
	)
	if redisClient != nil {
		wizardStore = wizard.NewRedisStore(redisClient, cfg.WizardTTL)
		refreshStore = security.NewRedisRefreshStore(redisClient)
	} else {
		wizardStore = wizard.NewMemoryStore(cfg.WizardTTL)
		refreshStore = security.NewMemoryRefreshStore()
	}

	loc := cfg.Location()
	tokens := security.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	notificationService := services.NewNotificationService(db.DB)
	defer notificationService.Stop()

	fcmService, err := notification.NewFCMService(startCtx, cfg.FCMCredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	hub := feed.NewHub()
	go hub.Run(ctx)

	catalogService := services.NewCatalogService(db.DB, cache.NewCatalogCache(redisClient, cfg.CatalogCacheTTL))
	enrollmentService := services.NewEnrollmentService(db.DB, catalogService, loc)
	progressService := services.NewProgressService(db.DB)
	trackingService := services.NewTrackingService(db.DB, progressService, loc)
	trackingService.SetNotifier(notificationService)
	trackingService.SetFeed(hub)
	wizardService := services.NewWizardService(wizardStore, catalogService, enrollmentService)
	wizardService.SetDetailTimeout(cfg.DetailFetchTimeout)
	userService := services.NewUserService(db.DB)
	authService := services.NewAuthService(db.DB, security.NewPasswordHasher(bcrypt.DefaultCost), tokens, refreshStore)
	seedService := services.NewSeedService(db.DB, catalogService)

	authenticator := middleware.NewAuthenticator(tokens, cfg.SignInURL)
	if cfg.ClerkSecretKey != "" {
		clerk.SetKey(cfg.ClerkSecretKey)
		authenticator.EnableClerk(userService)
		log.Println("Clerk initialized successfully")
	}
	handlers.SetSignInURL(cfg.SignInURL)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	metrics.Register(prometheus.DefaultRegisterer)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.CleanupVisitors(ctx)

	routes := &handlers.Routes{
		Auth:         handlers.NewAuthHandler(authService),
		User:         handlers.NewUserHandler(userService),
		Catalog:      handlers.NewCatalogHandler(catalogService, enrollmentService),
		Wizard:       handlers.NewWizardHandler(wizardService),
		Tracking:     handlers.NewTrackingHandler(trackingService),
		Progress:     handlers.NewProgressHandler(progressService, hub),
		Notification: handlers.NewNotificationHandler(notificationService),
		Seed:         handlers.NewSeedHandler(seedService),
		Webhook:      handlers.NewWebhookHandler(userService, cfg.ClerkWebhookSecret),
	}

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.HeaderSecret("X-Pprof-Secret", cfg.PprofSecret)(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "growth-tracker-api"}`))
	}).Methods(http.MethodGet)

	routes.Register(standardRouter, authenticator.Middleware, middleware.HeaderSecret("X-Seed-Secret", cfg.SeedSecret))

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret", "X-Seed-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", "WWW-Authenticate"}),
	)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     corsHandler(r),
		ReadTimeout: 5 * time.Second,
		// websocket feed connections outlive any write timeout, the pumps set their own deadlines
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
	return nil
}
