package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/domain"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisAdapters(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("ledger marks once", func(t *testing.T) {
		l := NewLedger(client)
		first, err := l.MarkOnce(ctx, "task:REMINDER:1", time.Minute)
		require.NoError(t, err)
		again, err := l.MarkOnce(ctx, "task:REMINDER:1", time.Minute)
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, again)

		require.NoError(t, l.Release(ctx, "task:REMINDER:1"))
		rearmed, err := l.MarkOnce(ctx, "task:REMINDER:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, rearmed)
	})

	t.Run("notification queue round trip", func(t *testing.T) {
		q := NewNotificationQueue(client, "")
		event := domain.NotificationEvent{
			ID:     "01HZX",
			Kind:   domain.NotifyReminder,
			TaskID: uuid.New(),
			Title:  "Review listing",
		}
		require.NoError(t, q.Notify(ctx, event))

		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, event.TaskID, got.TaskID)
		assert.Equal(t, domain.NotifyReminder, got.Kind)

		_, err = q.Pop(ctx, 100*time.Millisecond)
		assert.ErrorIs(t, err, redis.Nil)
	})

	t.Run("audit bus delivers to subscribers", func(t *testing.T) {
		bus := NewAuditBus(client, "", zap.NewNop())
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		events, err := bus.Subscribe(subCtx)
		require.NoError(t, err)

		sent := domain.AuditEvent{ID: "01HZY", Action: domain.AuditTaskCompleted, TargetID: uuid.New()}
		require.NoError(t, bus.Record(ctx, sent))

		select {
		case got := <-events:
			assert.Equal(t, sent.TargetID, got.TargetID)
			assert.Equal(t, domain.AuditTaskCompleted, got.Action)
		case <-time.After(5 * time.Second):
			t.Fatal("audit event not delivered")
		}
	})
}
