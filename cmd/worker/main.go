// Command worker runs the alert expiry sweep (asynq server and scheduler)
// without the HTTP API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jimdaga/weatherapp/internal/config"
	"github.com/jimdaga/weatherapp/internal/database"
	"github.com/jimdaga/weatherapp/internal/events"
	"github.com/jimdaga/weatherapp/internal/logging"
	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/jimdaga/weatherapp/internal/worker"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	sweepNow := flag.Bool("sweep-now", false, "enqueue one expiry sweep immediately and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.WorkerEnabled() {
		return errors.New("REDIS_URL is required to run the worker")
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if *sweepNow {
		if err := worker.InitClient(cfg.RedisURL); err != nil {
			return fmt.Errorf("failed to create asynq client: %w", err)
		}
		defer worker.CloseClient()
		if err := worker.EnqueueExpirySweep(); err != nil {
			return fmt.Errorf("failed to enqueue sweep: %w", err)
		}
		logger.Info("Expiry sweep enqueued")
		return nil
	}

	db, err := database.Init(cfg.DatabaseURL, database.Options{ReplicaURLs: cfg.DatabaseReplicaURLs})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	rdb, err := worker.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	m := metrics.NewMetrics()
	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	publisher = events.Instrument(publisher, m)
	defer publisher.Close()

	sweeper := worker.NewSweeper(
		repository.NewWeatherAlertRepository(db),
		worker.NewRedisCheckpoint(rdb),
		publisher,
		clockwork.NewRealClock(),
		logger,
		m,
	)

	stopScheduler, err := worker.StartScheduler(cfg, logger)
	if err != nil {
		return err
	}
	defer stopScheduler()

	// Run blocks and handles SIGINT/SIGTERM itself.
	return worker.Run(cfg, sweeper, logger)
}
