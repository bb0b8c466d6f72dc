package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

var (
	_ ports.AuditSink          = (*AuditLog)(nil)
	_ ports.Notifier           = (*Outbox)(nil)
	_ ports.NotificationLedger = (*Ledger)(nil)
)

// AuditLog keeps audit events in memory.
type AuditLog struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewAuditLog() *AuditLog { return &AuditLog{} }

func (a *AuditLog) Record(_ context.Context, event domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *AuditLog) Events() []domain.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditEvent, len(a.events))
	copy(out, a.events)
	return out
}

// Outbox keeps notification events in memory.
type Outbox struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func NewOutbox() *Outbox { return &Outbox{} }

func (o *Outbox) Notify(_ context.Context, event domain.NotificationEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *Outbox) Events() []domain.NotificationEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.NotificationEvent, len(o.events))
	copy(out, o.events)
	return out
}

// Ledger is a TTL set of notification keys.
type Ledger struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now, entries: make(map[string]time.Time)}
}

func (l *Ledger) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.entries[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	l.entries[key] = exp
	return true, nil
}

func (l *Ledger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
