package events

import (
	"fmt"

	"github.com/jimdaga/weatherapp/internal/config"
)

// NewPublisher returns the publisher selected by EVENTS_BACKEND.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		return NewRedisPublisher(cfg.RedisURL)
	case config.EventsKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertsTopic), nil
	case config.EventsNone, "":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}
