// Command alertwatch tails weather alert lifecycle events from the configured
// backend and logs each one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jimdaga/weatherapp/internal/config"
	"github.com/jimdaga/weatherapp/internal/events"
	"github.com/jimdaga/weatherapp/internal/logging"
)

type consumer interface {
	Consume(ctx context.Context, handler events.Handler) error
	Close() error
}

func main() {
	if err := run(); err != nil {
		slog.Error("alertwatch exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	group := flag.String("group", events.GroupAlertWatchers, "consumer group")
	name := flag.String("name", defaultConsumerName(), "consumer name within the group (redis only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var c consumer
	switch cfg.EventsBackend {
	case config.EventsRedis:
		c, err = events.NewRedisConsumer(ctx, cfg.RedisURL, *group, *name, logger)
		if err != nil {
			return err
		}
	case config.EventsKafka:
		c = events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, *group, logger)
	default:
		return errors.New("EVENTS_BACKEND must be redis or kafka")
	}
	defer c.Close()

	logger.Info("Watching alert events", "backend", cfg.EventsBackend, "group", *group)

	err = c.Consume(ctx, events.LogHandler(logger))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil {
		return "alertwatch"
	}
	return "alertwatch-" + host
}
