package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

const DefaultAuditChannel = "approval:audit"

var _ ports.AuditSink = (*AuditBus)(nil)

// AuditBus publishes audit events on a pub/sub channel for the audit-log writer.
type AuditBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewAuditBus(client *redis.Client, channel string, logger *zap.Logger) *AuditBus {
	if channel == "" {
		channel = DefaultAuditChannel
	}
	return &AuditBus{client: client, channel: channel, logger: logger.Named("audit-bus")}
}

// Record broadcasts the event as JSON.
func (b *AuditBus) Record(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe streams audit events until ctx is done. Malformed payloads are
// logged and skipped.
func (b *AuditBus) Subscribe(ctx context.Context) (<-chan domain.AuditEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan domain.AuditEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.AuditEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed audit payload", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
