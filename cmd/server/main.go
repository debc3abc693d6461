package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"lingopal/internal/api"
	"lingopal/internal/audio"
	"lingopal/internal/config"
	"lingopal/internal/database"
	"lingopal/internal/game"
	"lingopal/internal/handlers"
	"lingopal/internal/livekit"
	"lingopal/internal/localstore"
	"lingopal/internal/realtime"
	"lingopal/internal/security"
	"lingopal/internal/service"
	"lingopal/internal/session"
	"lingopal/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", db.GetDialect().Name())

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	var local localstore.Store = localstore.NewSQLStore(db)
	if cfg.StorageSecret != "" {
		local = localstore.NewSealed(local, cfg.StorageSecret)
		log.Println("Persisted session values are sealed at rest")
	}

	// Load templates
	templates, err := web.Templates()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	// The api client reads the credential from the session store it helps build
	var sessions *session.Store
	client := api.NewClient(api.Options{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.APITimeout,
		Fallback: cfg.SampleFallback,
	}, api.CredentialFunc(func() string { return sessions.Credential() }))
	sessions = session.NewStore(local, api.NewAuthAPI(client))
	children := api.NewChildrenAPI(client)
	records := api.NewSessionsAPI(client)
	gameStore := game.NewStore()

	if cfg.SampleFallback {
		log.Println("Sample fallback enabled: reads degrade to sample data while the backend is unavailable")
	}

	// Restore the persisted session before serving
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sessions.Restore(ctx); err != nil {
		log.Printf("Warning: Failed to restore session: %v", err)
	}
	cancel()

	appBaseURL := "http://localhost:" + cfg.ServerPort
	emailService, err := service.NewEmailService(context.Background(), cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, appBaseURL, cfg.EmailDebug)
	if err != nil {
		log.Printf("Warning: Failed to initialize email service: %v", err)
		emailService = nil
	}

	ttsService := audio.NewTTSService(cfg.AudioPath)
	if clips, err := ttsService.Cached(); err != nil {
		log.Printf("Warning: Failed to read audio cache: %v", err)
	} else {
		log.Printf("Audio cache holds %d clips", len(clips))
	}

	csrfSecret := cfg.CSRFSecret
	if csrfSecret == "" {
		csrfSecret = uuid.NewString()
		log.Println("CSRF_SECRET not set; tokens will not survive a restart")
	}
	limiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer limiter.Close()

	tokens := realtime.NewTokenClient(cfg.TokenEndpoint(), cfg.APITimeout)
	newController := func() *realtime.Controller {
		return realtime.NewController(cfg.LiveKitURL, tokens, realtime.NewWSRoom(realtime.DefaultWSRoomConfig()), realtime.DefaultMediaOptions())
	}
	if cfg.LiveKitURL == "" {
		log.Println("Warning: LIVEKIT_WS_URL not set; the agent room will report a configuration error")
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(sessions, gameStore, security.NewCSRFGenerator(csrfSecret), limiter, templates, cfg.SampleFallback)
	authHandler := handlers.NewAuthHandler(sessions, emailService, middleware)
	dashboardHandler := handlers.NewDashboardHandler(sessions, gameStore, children, middleware)
	profileHandler := handlers.NewProfileHandler(gameStore, children, middleware)
	historyHandler := handlers.NewHistoryHandler(sessions, gameStore, records, emailService, middleware)
	playHandler := handlers.NewPlayHandler(gameStore)
	agentHandler := handlers.NewAgentHandler(gameStore, newController, middleware)
	defer agentHandler.Close()
	audioHandler := handlers.NewAudioHandler(ttsService)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /", authHandler.Home)
	mux.HandleFunc("GET /login", authHandler.ShowLogin)
	mux.HandleFunc("POST /login", middleware.RateLimit(middleware.CSRFProtect(authHandler.Login)))
	mux.HandleFunc("GET /register", authHandler.ShowRegister)
	mux.HandleFunc("POST /register", middleware.RateLimit(middleware.CSRFProtect(authHandler.Register)))
	mux.HandleFunc("POST /logout", middleware.CSRFProtect(authHandler.Logout))

	// Protected routes
	mux.HandleFunc("GET /dashboard", middleware.RequireAuth(dashboardHandler.Dashboard))
	mux.HandleFunc("POST /dashboard/select/{id}", middleware.RequireAuth(middleware.CSRFProtect(dashboardHandler.SelectChild)))
	mux.HandleFunc("POST /dashboard/agent", middleware.RequireAuth(middleware.CSRFProtect(dashboardHandler.TalkToAgent)))
	mux.HandleFunc("GET /profile", middleware.RequireAuth(profileHandler.ShowProfile))
	mux.HandleFunc("POST /profile", middleware.RequireAuth(middleware.CSRFProtect(profileHandler.SaveProfile)))
	mux.HandleFunc("GET /history", middleware.RequireAuth(historyHandler.History))
	mux.HandleFunc("POST /history/email", middleware.RequireAuth(middleware.CSRFProtect(historyHandler.EmailReport)))

	// Play events
	mux.HandleFunc("GET /play/state", middleware.RequireAuth(playHandler.State))
	mux.HandleFunc("POST /play/start", middleware.RequireAuth(middleware.CSRFProtect(playHandler.Start)))
	mux.HandleFunc("POST /play/end", middleware.RequireAuth(middleware.CSRFProtect(playHandler.End)))
	mux.HandleFunc("POST /play/score", middleware.RequireAuth(middleware.CSRFProtect(playHandler.Score)))
	mux.HandleFunc("POST /play/life", middleware.RequireAuth(middleware.CSRFProtect(playHandler.LoseLife)))
	mux.HandleFunc("POST /play/level", middleware.RequireAuth(middleware.CSRFProtect(playHandler.AdvanceLevel)))

	// Agent room
	mux.HandleFunc("GET /agent", middleware.RequireAuth(agentHandler.ShowAgent))
	mux.HandleFunc("GET /agent/state", middleware.RequireAuth(agentHandler.State))
	mux.HandleFunc("POST /agent/retry", middleware.RequireAuth(middleware.CSRFProtect(agentHandler.Retry)))
	mux.HandleFunc("POST /agent/leave", middleware.RequireAuth(middleware.CSRFProtect(agentHandler.Leave)))

	mux.HandleFunc("GET /audio/{word}", middleware.RequireAuth(audioHandler.Word))

	// Room credentials, when this process holds the API key pair
	if cfg.TokenIssuerEnabled() {
		issuer := livekit.NewTokenIssuer(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitTokenTTL)
		mux.Handle("/api/livekit-token/", livekit.NewHandler(issuer))
		log.Println("Serving room credentials at /api/livekit-token/")
	}

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
