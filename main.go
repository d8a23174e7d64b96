package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"evote-api/internal/config"
	"evote-api/internal/container"
	"evote-api/internal/handler"
	"evote-api/internal/middleware"
	"evote-api/internal/repository"
	"evote-api/internal/service"
	"evote-api/pkg/database"
	"evote-api/pkg/logger"
	"evote-api/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db           *database.PostgresDB
	redisClient  *redis.Client
	statsService *service.StatsService
	server       *http.Server
	log          *logger.Logger
	mu           sync.Mutex
	closed       bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// Stop the stats service (saves a final turnout snapshot)
	if r.statsService != nil {
		if err := r.statsService.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop stats service")
			errs = append(errs, fmt.Errorf("stats service shutdown: %w", err))
		}
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("Redis close: %w", err))
		}
	}

	if r.db != nil {
		r.db.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":         cfg.Port,
		"log_level":    cfg.LogLevel,
		"environment":  cfg.Environment,
		"self_service": cfg.SelfServiceVoters,
	}).Info("Starting evote-api server")

	// Create dependency injection container
	deps, err := container.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize repositories and services
	candidateRepo := repository.NewPgCandidateRepository(db)
	voterRepo := repository.NewPgVoterRepository(db)
	settingsRepo := repository.NewPgSettingsRepository(db)
	turnoutRepo := repository.NewPgTurnoutRepository(db)

	settingsService := service.NewSettingsService(settingsRepo, deps.Cache, log.Logger)
	candidateService := service.NewCandidateService(candidateRepo, deps.Cache, log.Logger)
	voterService := service.NewVoterService(voterRepo, settingsService, deps.Cache, log.Logger)
	votingService := service.NewVotingService(candidateRepo, voterRepo, turnoutRepo, settingsService, deps.Cache, log.Logger, cfg.SelfServiceVoters)
	statsService := service.NewStatsService(voterRepo, turnoutRepo, settingsService, log)

	// Start the turnout snapshot routine
	if err := statsService.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start stats service")
	}

	// Setup router
	router := setupRouter(deps, db, votingService, candidateService, voterService, settingsService, statsService)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:           db,
		redisClient:  deps.RedisClient,
		statsService: statsService,
		server:       server,
		log:          log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(
	deps *container.Container,
	db *database.PostgresDB,
	votingService *service.VotingService,
	candidateService *service.CandidateService,
	voterService *service.VoterService,
	settingsService *service.SettingsService,
	statsService *service.StatsService,
) *chi.Mux {
	cfg := deps.GetConfig()
	log := deps.GetLogger()

	r := chi.NewRouter()

	// Setup CORS middleware
	corsConfig := &middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	// Setup middlewares
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(deps, db)
	votingHandler := handler.NewVotingHandler(votingService, candidateService, voterService, settingsService, log)
	adminHandler := handler.NewAdminHandler(deps.Auth, candidateService, voterService, settingsService, votingService, statsService, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		// Public voting surface
		r.Get("/candidates", votingHandler.GetCandidates)
		r.Get("/results", votingHandler.GetResults)
		r.Get("/session", votingHandler.GetSession)
		r.Get("/voter-status", votingHandler.GetVoterStatus)
		r.Post("/vote", votingHandler.CastVote)

		// Admin surface
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(deps.Auth, log))

				r.Post("/candidates", adminHandler.CreateCandidate)
				r.Put("/candidates/{candidateId}", adminHandler.UpdateCandidate)
				r.Delete("/candidates/{candidateId}", adminHandler.DeleteCandidate)

				r.Get("/voters", adminHandler.ListVoters)
				r.Post("/voters/tokens", adminHandler.ImportVoterTokens)

				r.Put("/settings/voting", adminHandler.SetVotingStatus)
				r.Put("/settings/results", adminHandler.SetShowResults)

				r.Post("/reset/votes", adminHandler.ResetVotes)
				r.Post("/reset/all", adminHandler.ResetData)
				r.Post("/reconcile", adminHandler.Reconcile)

				r.Get("/stats", adminHandler.GetStats)
				r.Get("/stats/history", adminHandler.GetStatsHistory)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
