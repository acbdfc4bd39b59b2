package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jimdaga/weatherapp/internal/metrics"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher delivers alert events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event AlertEvent) error
	Close() error
}

// RedisPublisher appends alert events to a Redis Stream.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
}

// NewRedisPublisher creates a RedisPublisher writing to StreamAlerts.
func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisPublisher{rdb: redis.NewClient(opts), stream: StreamAlerts}, nil
}

// Publish adds the event to the stream, trimming it to roughly 10k entries.
func (p *RedisPublisher) Publish(ctx context.Context, event AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type":           event.Type,
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		return fmt.Errorf("failed to publish to stream: %w", result.Err())
	}
	return nil
}

// Close closes the Redis client connection
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// KafkaPublisher produces alert events to a Kafka topic keyed by alert id, so
// every event for one alert lands on the same partition in order.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher creates a Kafka producer for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		// Events are written one at a time from request handlers.
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: 2 * time.Second,
	}
	return &KafkaPublisher{writer: w}
}

// Publish writes one message for event.
func (p *KafkaPublisher) Publish(ctx context.Context, event AlertEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(event AlertEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("alert-%d", event.AlertID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "schema_version", Value: []byte(SchemaVersionV1)},
			{Key: "occurred_at", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AlertEvent) error { return nil }
func (NopPublisher) Close() error                             { return nil }

// instrumented counts published events by type and outcome.
type instrumented struct {
	Publisher
	metrics *metrics.Metrics
}

// Instrument wraps p so every Publish is counted in m.
func Instrument(p Publisher, m *metrics.Metrics) Publisher {
	return &instrumented{Publisher: p, metrics: m}
}

func (i *instrumented) Publish(ctx context.Context, event AlertEvent) error {
	err := i.Publisher.Publish(ctx, event)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	i.metrics.EventsPublished.WithLabelValues(event.Type, outcome).Inc()
	return err
}
