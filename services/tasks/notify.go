package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"clinicbook/config"
	"clinicbook/models"

	"github.com/hibiken/asynq"
)

const TypeAvailabilityNotify = "availability:notify"

// NewAvailabilityNotifyTask wraps a notification request for the queue.
func NewAvailabilityNotifyTask(req models.AvailabilityNotificationRequest) (*asynq.Task, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAvailabilityNotify, b), nil
}

// AsynqNotificationQueue enqueues availability-notification requests for the
// background worker; delivery to the backend is retried by asynq.
type AsynqNotificationQueue struct {
	client *asynq.Client
}

// NewAsynqNotificationQueue builds a queue client on the configured Redis.
func NewAsynqNotificationQueue() *AsynqNotificationQueue {
	return &AsynqNotificationQueue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisNotifyQueueDB,
		}),
	}
}

// Enqueue files one request.
func (q *AsynqNotificationQueue) Enqueue(ctx context.Context, req models.AvailabilityNotificationRequest) error {
	task, err := NewAvailabilityNotifyTask(req)
	if err != nil {
		return fmt.Errorf("failed to build notify task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue notify task: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (q *AsynqNotificationQueue) Close() error {
	return q.client.Close()
}
