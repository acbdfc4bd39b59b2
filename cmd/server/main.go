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

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/api"
	"github.com/jimdaga/weatherapp/internal/config"
	"github.com/jimdaga/weatherapp/internal/database"
	"github.com/jimdaga/weatherapp/internal/events"
	"github.com/jimdaga/weatherapp/internal/logging"
	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/jimdaga/weatherapp/internal/services"
	"github.com/jimdaga/weatherapp/internal/tracing"
	"github.com/jimdaga/weatherapp/internal/worker"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled() {
		shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
			Endpoint:      cfg.OTLPEndpoint,
			ServiceName:   cfg.ServiceName,
			Environment:   cfg.Env,
			SamplingRatio: cfg.TraceSamplingRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Error("Tracer shutdown failed", "error", err)
			}
		}()
		logger.Info("Tracing enabled", "endpoint", cfg.OTLPEndpoint, "ratio", cfg.TraceSamplingRatio)
	}

	db, err := database.Init(cfg.DatabaseURL, database.Options{
		ReplicaURLs: cfg.DatabaseReplicaURLs,
		Tracing:     cfg.TracingEnabled(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("Database close failed", "error", err)
		}
	}()

	clock := clockwork.NewRealClock()
	prepareDatabase(ctx, cfg, db, clock, logger)

	m := metrics.NewMetrics()

	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	publisher = events.Instrument(publisher, m)
	defer publisher.Close()
	logger.Info("Alert events configured", "backend", cfg.EventsBackend)

	cityRepo := repository.NewCityRepository(db)
	recordRepo := repository.NewWeatherRecordRepository(db)
	alertRepo := repository.NewWeatherAlertRepository(db)

	router := api.NewRouter(api.Deps{
		Cities:  services.NewCityService(cityRepo, clock, logger, m),
		Records: services.NewWeatherRecordService(recordRepo, cityRepo, clock, logger, m),
		Alerts:  services.NewWeatherAlertService(alertRepo, cityRepo, publisher, clock, logger, m),
		Ready: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		Logger:  logger,
		Metrics: m,
	})

	var handler http.Handler = router
	if cfg.TracingEnabled() {
		handler = tracing.Handler(router, cfg.ServiceName)
	}

	// Embedded expiry worker: failure to start only disables the sweep.
	if cfg.WorkerEnabled() {
		rdb, err := worker.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Error("Expiry worker disabled", "error", err)
		} else {
			defer rdb.Close()
			sweeper := worker.NewSweeper(alertRepo, worker.NewRedisCheckpoint(rdb), publisher, clock, logger, m)
			stopWorker, err := worker.Embed(cfg, sweeper, logger)
			if err != nil {
				logger.Error("Expiry worker disabled", "error", err)
			} else {
				defer stopWorker()
			}
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// prepareDatabase migrates and optionally seeds. Failures are logged and the
// server still starts; /readyz reports the database state.
func prepareDatabase(ctx context.Context, cfg *config.Config, db *gorm.DB, clock clockwork.Clock, logger *slog.Logger) {
	if err := database.Ping(ctx, db); err != nil {
		logger.Error("Database unreachable at startup", "error", err)
		return
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(db, logger); err != nil {
			logger.Error("Migrations failed", "error", err)
			return
		}
	}

	if cfg.SeedDevData {
		if err := database.SeedDevData(ctx, db, clock.Now(), logger); err != nil {
			logger.Error("Seeding failed", "error", err)
		}
	}
}
