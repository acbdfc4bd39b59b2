package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream serves queued XAUTOCLAIM batches and records acknowledgements.
type fakeStream struct {
	pending [][]redis.XMessage
	claims  []*redis.XAutoClaimArgs
	acked   []string
}

func (f *fakeStream) XReadGroup(context.Context, *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
}

func (f *fakeStream) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	f.claims = append(f.claims, a)
	cmd := redis.NewXAutoClaimCmd(ctx)
	if len(f.pending) == 0 {
		cmd.SetVal(nil, "0-0")
		return cmd
	}
	batch := f.pending[0]
	f.pending = f.pending[1:]
	next := "0-0"
	if len(f.pending) > 0 {
		next = batch[len(batch)-1].ID
	}
	cmd.SetVal(batch, next)
	return cmd
}

func (f *fakeStream) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeStream) Close() error { return nil }

func streamMessage(t *testing.T, id string, alertID int) redis.XMessage {
	t.Helper()
	alert := sampleAlert()
	alert.ID = alertID
	payload, err := json.Marshal(NewAlertEvent(TypeAlertCreated, alert, time.Now()))
	require.NoError(t, err)
	return redis.XMessage{ID: id, Values: map[string]interface{}{"type": TypeAlertCreated, "payload": string(payload)}}
}

func TestRedisConsumer_ReclaimRetriesPendingMessages(t *testing.T) {
	stream := &fakeStream{pending: [][]redis.XMessage{
		{streamMessage(t, "1-0", 1), streamMessage(t, "2-0", 2)},
		{streamMessage(t, "3-0", 3)},
	}}
	c := &RedisConsumer{
		rdb:          stream,
		stream:       StreamAlerts,
		groupName:    GroupAlertWatchers,
		consumerName: "watcher-1",
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var seen []int
	c.reclaim(context.Background(), func(_ context.Context, event AlertEvent) error {
		seen = append(seen, event.AlertID)
		if event.AlertID == 2 {
			return errors.New("still failing")
		}
		return nil
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []string{"1-0", "3-0"}, stream.acked)

	require.Len(t, stream.claims, 2)
	first := stream.claims[0]
	assert.Equal(t, "0-0", first.Start)
	assert.Equal(t, reclaimIdle, first.MinIdle)
	assert.Equal(t, GroupAlertWatchers, first.Group)
	assert.Equal(t, "watcher-1", first.Consumer)
	assert.Equal(t, "2-0", stream.claims[1].Start)
}

func TestRedisConsumer_ConsumeReclaimsBeforeReading(t *testing.T) {
	stream := &fakeStream{pending: [][]redis.XMessage{{streamMessage(t, "9-0", 9)}}}
	c := &RedisConsumer{
		rdb:          stream,
		stream:       StreamAlerts,
		groupName:    GroupAlertWatchers,
		consumerName: "watcher-1",
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Consume(ctx, func(context.Context, AlertEvent) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"9-0"}, stream.acked)
}
