package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskAlertExpirySweep = "alert:expiry-sweep"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

func newSweepTask(extra ...asynq.Option) *asynq.Task {
	opts := append([]asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(2 * time.Minute),
		asynq.Retention(time.Hour),
	}, extra...)
	return asynq.NewTask(TaskAlertExpirySweep, nil, opts...)
}

// EnqueueExpirySweep enqueues a one-off sweep outside the periodic schedule.
func EnqueueExpirySweep() error {
	_, err := client.Enqueue(newSweepTask())
	return err
}
