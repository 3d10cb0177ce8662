package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/liga-hub/tabellen-service/config"
	"github.com/liga-hub/tabellen-service/db"
	"github.com/liga-hub/tabellen-service/handlers"
	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/queue"
	"github.com/liga-hub/tabellen-service/repositories"
	api "github.com/liga-hub/tabellen-service/routes"
	"github.com/liga-hub/tabellen-service/services"
	"github.com/liga-hub/tabellen-service/storage"
	"github.com/liga-hub/tabellen-service/tabellen"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("automation", cfg.AutomationEnabled))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Snapshot storage is optional: without R2 settings the calculation
	// service simply skips the pre-replace archive step.
	var snapshotService services.SnapshotService
	if cfg.SnapshotsEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		snapshotService = services.NewSnapshotService(uploader, logger)
		logger.Info("table snapshot storage initialized")
	} else {
		logger.Info("table snapshots disabled (no R2 configuration)")
	}

	hub := tabellen.NewHub()
	go hub.Run()
	logger.Info("table update hub started")

	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	clubRepo := repositories.NewPostgresClubRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	tableRepo := repositories.NewPostgresTableEntryRepository(dbConn)
	logger.Info("repositories initialized")

	validationService := services.NewValidationService(clubRepo, teamRepo, seasonRepo, logger)
	calculationService := services.NewCalculationService(
		matchRepo,
		clubRepo,
		teamRepo,
		tableRepo,
		validationService,
		snapshotService,
		hub,
		logger,
	)

	queueManager := queue.NewManager(calculationService, queue.Config{
		MaxAttempts:   cfg.MaxAttempts,
		BackoffBase:   cfg.BackoffBase,
		BackoffFactor: cfg.BackoffFactor,
		BackoffCap:    cfg.BackoffCap,
		JobTimeout:    cfg.JobTimeout,
	}, logger)

	lifecycleService := services.NewLifecycleService(services.LifecycleConfig{
		AutomationEnabled: cfg.AutomationEnabled,
		Priorities: services.TriggerPriorities{
			Create:    cfg.PriorityCreate,
			Update:    cfg.PriorityUpdate,
			Delete:    cfg.PriorityDelete,
			Migration: cfg.PriorityMigration,
		},
	}, queueManager, validationService, logger)
	logger.Info("services initialized")

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go queueManager.Run(workerCtx)

	// Reconciliation repairs drift when a lifecycle hook was missed: every
	// league of the active season is re-enqueued at low priority.
	if cfg.ReconcileInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReconcileInterval)
			defer ticker.Stop()
			logger.Info("reconciliation scheduler started", slog.Duration("interval", cfg.ReconcileInterval))

			for {
				select {
				case <-workerCtx.Done():
					return
				case <-ticker.C:
					reconcile(workerCtx, leagueRepo, seasonRepo, queueManager, logger)
				}
			}
		}()
	}

	calculationHandler := handlers.NewCalculationHandler(queueManager)
	tableHandler := handlers.NewTableHandler(calculationService)
	hookHandler := handlers.NewHookHandler(lifecycleService)
	webSocketHandler := handlers.NewWebSocketHandler(hub)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, calculationHandler, tableHandler, hookHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		stopWorker()
		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

func reconcile(
	ctx context.Context,
	leagueRepo repositories.LeagueRepository,
	seasonRepo repositories.SeasonRepository,
	queueManager *queue.Manager,
	logger *slog.Logger,
) {
	season, err := seasonRepo.GetActive(ctx)
	if err != nil {
		logger.Warn("reconciliation skipped, no active season", slog.Any("error", err))
		return
	}
	leagues, err := leagueRepo.List(ctx)
	if err != nil {
		logger.Error("reconciliation failed to list leagues", slog.Any("error", err))
		return
	}
	for _, league := range leagues {
		queueManager.Enqueue(league.ID, season.ID, models.PriorityLow)
	}
	logger.Info("reconciliation enqueued league recalculations",
		slog.Int("season_id", season.ID), slog.Int("leagues", len(leagues)))
}
