package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climatescope/internal/config"
	"climatescope/internal/dataset"
	"climatescope/internal/handlers"
	"climatescope/internal/insights"
	"climatescope/internal/models"
	"climatescope/internal/repository"
	"climatescope/internal/services"
	"climatescope/pkg/database"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climatescope-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting ClimateScope API server", logging.Fields{
		"version":        version,
		"server_host":    cfg.Server.Host,
		"server_port":    cfg.Server.Port,
		"dataset_source": cfg.Dataset.Source,
		"dataset_path":   cfg.Dataset.Path,
	})

	metricsCollector := metrics.NewCollector("climatescope")
	router := mux.NewRouter()
	router.Use(handlers.RequestLogging(logger))

	// The raw observation API and the postgres dataset source share one pool
	var repo repository.ObservationRepository
	if cfg.Dataset.Source == "postgres" {
		db, err := database.NewPostgresDB(ctx, cfg.Database.Postgres(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		repo = repository.NewObservationRepository(db, logger, metricsCollector)
		observationService := services.NewObservationService(repo, logger, metricsCollector)
		handlers.NewObservationHandler(observationService, logger, metricsCollector).RegisterRoutes(router)
	}

	// A failed load is not fatal: the server starts on an empty dataset and
	// every view reports that no data is available.
	loader := dataset.NewLoader(logger, metricsCollector)
	ds, err := loadDataset(ctx, cfg, repo, loader)
	if err != nil {
		logger.Error(ctx, "[STARTUP_DATASET_ERROR] Dataset load failed, serving empty dataset", logging.Fields{
			"dataset_source": cfg.Dataset.Source,
			"dataset_path":   cfg.Dataset.Path,
		}, err)
		ds = models.EmptyDataset()
	}

	dashboardService := services.NewDashboardService(ds, cfg.Pipeline, insights.NewReporter(nil), logger, metricsCollector)
	handlers.NewDashboardHandler(dashboardService, logger, metricsCollector).RegisterRoutes(router)
	handlers.RegisterDocsRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address":      server.Addr,
			"dataset_rows": ds.Len(),
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// SIGHUP reloads the dataset in place; SIGINT/SIGTERM shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig != syscall.SIGHUP {
			break
		}
		reloaded, err := loadDataset(ctx, cfg, repo, loader)
		if err != nil {
			logger.Error(ctx, "[RELOAD_ERROR] Dataset reload failed, keeping current dataset", logging.Fields{
				"dataset_source": cfg.Dataset.Source,
				"dataset_path":   cfg.Dataset.Path,
			}, err)
			continue
		}
		dashboardService.SetDataset(reloaded)
		logger.Info(ctx, "[RELOAD] Dataset reloaded", logging.Fields{
			"dataset_rows": reloaded.Len(),
		})
	}

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

func loadDataset(ctx context.Context, cfg *config.Config, repo repository.ObservationRepository, loader *dataset.Loader) (*models.Dataset, error) {
	if cfg.Dataset.Source == "postgres" {
		// rows are stored under the base name of the file they came from;
		// an empty path reads every ingested source
		source := &dataset.PostgresSource{Repo: repo}
		if cfg.Dataset.Path != "" {
			source.SourceFile = filepath.Base(cfg.Dataset.Path)
		}
		return loader.Load(ctx, source)
	}
	return loader.LoadFile(ctx, cfg.Dataset.Path, cfg.Dataset.Sheet)
}
