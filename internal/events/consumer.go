package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes one alert event. A non-nil error leaves the event
// unacknowledged so it is redelivered.
type Handler func(ctx context.Context, event AlertEvent) error

const (
	// reclaimIdle is how long a delivered message may stay unacknowledged
	// before a consumer takes it over and retries it.
	reclaimIdle     = time.Minute
	reclaimInterval = 30 * time.Second
)

// streamClient is the part of *redis.Client the consumer uses.
type streamClient interface {
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	Close() error
}

// RedisConsumer reads alert events from a Redis Stream through a consumer group.
type RedisConsumer struct {
	rdb          streamClient
	stream       string
	groupName    string
	consumerName string
	logger       *slog.Logger
}

// NewRedisConsumer creates a RedisConsumer and its consumer group if needed.
func NewRedisConsumer(ctx context.Context, redisURL, groupName, consumerName string, logger *slog.Logger) (*RedisConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	// Start ID "0" means read from beginning if group is new
	err = client.XGroupCreateMkStream(ctx, StreamAlerts, groupName, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RedisConsumer{
		rdb:          client,
		stream:       StreamAlerts,
		groupName:    groupName,
		consumerName: consumerName,
		logger:       logger,
	}, nil
}

// Consume runs a blocking loop handing each event to handler until ctx ends.
// Messages left pending by a failed handler are retried every reclaimInterval.
func (c *RedisConsumer) Consume(ctx context.Context, handler Handler) error {
	var lastReclaim time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(lastReclaim) >= reclaimInterval {
			c.reclaim(ctx, handler)
			lastReclaim = time.Now()
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads time out when the stream is idle.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			c.logger.Error("Failed to read from stream", "error", err)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.handleMessage(ctx, message, handler)
			}
		}
	}
}

func (c *RedisConsumer) handleMessage(ctx context.Context, message redis.XMessage, handler Handler) {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		c.logger.Error("Invalid message payload", "message_id", message.ID)
		c.ack(ctx, message.ID)
		return
	}

	var event AlertEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Error("Failed to unmarshal event", "error", err, "message_id", message.ID)
		c.ack(ctx, message.ID)
		return
	}

	if err := handler(ctx, event); err != nil {
		// Left pending; reclaim retries it once it has been idle for reclaimIdle
		c.logger.Error("Handler failed", "error", err, "event_id", event.ID)
		return
	}
	c.ack(ctx, message.ID)
}

// reclaim claims messages that have been pending longer than reclaimIdle,
// from any consumer in the group, and hands them to handler again.
func (c *RedisConsumer) reclaim(ctx context.Context, handler Handler) {
	start := "0-0"
	for {
		messages, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.groupName,
			Consumer: c.consumerName,
			MinIdle:  reclaimIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("Failed to reclaim pending messages", "error", err)
			}
			return
		}

		for _, message := range messages {
			c.logger.Info("Retrying pending message", "message_id", message.ID)
			c.handleMessage(ctx, message, handler)
		}
		if next == "" || next == "0-0" || len(messages) == 0 {
			return
		}
		start = next
	}
}

func (c *RedisConsumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.stream, c.groupName, id).Err(); err != nil {
		c.logger.Error("Failed to ACK message", "error", err, "message_id", id)
	}
}

// Close closes the Redis client connection
func (c *RedisConsumer) Close() error {
	return c.rdb.Close()
}

// KafkaConsumer reads alert events from a Kafka topic as part of a consumer group.
type KafkaConsumer struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewKafkaConsumer creates a KafkaConsumer for topic in groupID.
func NewKafkaConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *KafkaConsumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &KafkaConsumer{reader: r, logger: logger}
}

// Consume fetches messages until ctx ends, committing each one the handler accepts.
func (c *KafkaConsumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		event, err := deserializeMessage(msg)
		if err != nil {
			c.logger.Error("Failed to decode event", "error", err, "offset", msg.Offset, "partition", msg.Partition)
		} else if err := handler(ctx, event); err != nil {
			// Leave uncommitted so the group redelivers after a restart
			c.logger.Error("Handler failed", "error", err, "event_id", event.ID)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message", "error", err, "offset", msg.Offset)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func deserializeMessage(msg kafkago.Message) (AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return AlertEvent{}, fmt.Errorf("deserialize alert event: %w", err)
	}
	return event, nil
}
