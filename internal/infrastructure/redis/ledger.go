package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viridial-group/realestate-sub003/internal/core/ports"
)

const ledgerPrefix = "approval:notified:"

var _ ports.NotificationLedger = (*Ledger)(nil)

// Ledger records sent scanner notifications with SET NX so concurrent
// scanners on different nodes send each one once.
type Ledger struct {
	client *redis.Client
}

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func (l *Ledger) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, ledgerPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (l *Ledger) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, ledgerPrefix+key).Err()
}
