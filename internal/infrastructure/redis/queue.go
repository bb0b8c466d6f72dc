package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

const DefaultNotifyQueue = "approval:notifications"

var _ ports.Notifier = (*NotificationQueue)(nil)

// NotificationQueue is the outbox the email/notification services drain.
type NotificationQueue struct {
	client    *redis.Client
	queueName string
}

func NewNotificationQueue(client *redis.Client, queueName string) *NotificationQueue {
	if queueName == "" {
		queueName = DefaultNotifyQueue
	}
	return &NotificationQueue{client: client, queueName: queueName}
}

// Notify appends the event to the end of the list.
func (q *NotificationQueue) Notify(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.queueName, payload).Err()
}

// Pop waits up to timeout for an event and removes it from the front of the
// list. A zero timeout blocks until one arrives. redis.Nil means the wait expired.
func (q *NotificationQueue) Pop(ctx context.Context, timeout time.Duration) (domain.NotificationEvent, error) {
	var event domain.NotificationEvent
	// BLPop returns a slice: [QueueName, Element]
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		return event, err
	}
	err = json.Unmarshal([]byte(result[1]), &event)
	return event, err
}
