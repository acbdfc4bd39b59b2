package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/weatherapp/internal/events"
	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/jimdaga/weatherapp/internal/repository"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// firstSweepLookback bounds the window of the very first sweep, before any
// checkpoint exists.
const firstSweepLookback = 15 * time.Minute

const checkpointKey = "weather:alerts:expiry-sweep:last-run"

// ExpiredAlertLister finds alerts still flagged active whose end time has passed.
type ExpiredAlertLister interface {
	ListExpiredBetween(ctx context.Context, from, to time.Time) ([]repository.AlertWithCities, error)
}

// Checkpoint remembers when the sweep last completed.
type Checkpoint interface {
	LastRun(ctx context.Context) (time.Time, bool, error)
	Save(ctx context.Context, at time.Time) error
}

// EventPublisher delivers alert lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.AlertEvent) error
}

// RedisCheckpoint stores the last sweep time under a single Redis key.
type RedisCheckpoint struct {
	rdb *redis.Client
	key string
}

// NewRedisClient opens a go-redis client for the sweep checkpoint, separate
// from the connection asynq manages internally.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisCheckpoint(rdb *redis.Client) *RedisCheckpoint {
	return &RedisCheckpoint{rdb: rdb, key: checkpointKey}
}

func (c *RedisCheckpoint) LastRun(ctx context.Context) (time.Time, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read sweep checkpoint: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A corrupt checkpoint is treated as missing.
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (c *RedisCheckpoint) Save(ctx context.Context, at time.Time) error {
	if err := c.rdb.Set(ctx, c.key, at.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to write sweep checkpoint: %w", err)
	}
	return nil
}

// Sweeper emits alert.expired for every alert whose end time passed since
// the previous run. Alerts are not modified.
type Sweeper struct {
	alerts     ExpiredAlertLister
	checkpoint Checkpoint
	publisher  EventPublisher
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewSweeper(alerts ExpiredAlertLister, checkpoint Checkpoint, publisher EventPublisher, clock clockwork.Clock, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Sweeper{
		alerts:     alerts,
		checkpoint: checkpoint,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
		metrics:    m,
	}
}

// HandleTask adapts Sweep to asynq.
func (s *Sweeper) HandleTask(ctx context.Context, _ *asynq.Task) error {
	return s.Sweep(ctx)
}

// Sweep publishes events for alerts that expired in (last run, now]. The
// checkpoint only advances once every event is out, so a failed run is
// retried over the same window.
func (s *Sweeper) Sweep(ctx context.Context) error {
	n, err := s.sweep(ctx)
	if err != nil {
		s.metrics.ExpirySweeps.WithLabelValues("error").Inc()
		return err
	}
	s.metrics.ExpirySweeps.WithLabelValues("success").Inc()
	s.metrics.AlertsExpired.Add(float64(n))
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()

	from, ok, err := s.checkpoint.LastRun(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		from = now.Add(-firstSweepLookback)
	}
	if !from.Before(now) {
		s.logger.Debug("Expiry sweep skipped, checkpoint is not in the past", "checkpoint", from)
		return 0, nil
	}

	expired, err := s.alerts.ListExpiredBetween(ctx, from, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired alerts: %w", err)
	}

	for _, alert := range expired {
		event := events.NewAlertEvent(events.TypeAlertExpired, alert, now)
		if err := s.publisher.Publish(ctx, event); err != nil {
			return 0, fmt.Errorf("failed to publish expiry of alert %d: %w", alert.ID, err)
		}
	}

	if err := s.checkpoint.Save(ctx, now); err != nil {
		return 0, err
	}

	s.logger.Info("Expiry sweep completed",
		"from", from.Format(time.RFC3339),
		"to", now.Format(time.RFC3339),
		"expired", len(expired),
	)
	return len(expired), nil
}
