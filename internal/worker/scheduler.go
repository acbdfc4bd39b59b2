package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/weatherapp/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler for the periodic
// expiry sweep. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	// Unique keeps two schedulers (API + standalone worker) from
	// double-enqueueing the same tick.
	task := newSweepTask(asynq.Unique(30 * time.Second))

	entryID, err := scheduler.Register(cfg.AlertSweepSchedule, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register sweep schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", cfg.AlertSweepSchedule,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}
