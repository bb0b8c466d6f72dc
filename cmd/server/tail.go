package main

import (
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/viridial-group/realestate-sub003/internal/infrastructure/redis"
)

// newTailCmd prints audit events or queued notifications as JSON lines.
func newTailCmd(configPath *string) *cobra.Command {
	var notifications bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the audit channel, or drain the notification queue with --notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cfg.Redis.Addr == "" {
				return errors.New("tail needs redis.addr")
			}
			client, err := redis.NewRedisClient(ctx, cfg.RedisOptions())
			if err != nil {
				return err
			}
			defer client.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			if notifications {
				queue := redis.NewNotificationQueue(client, cfg.Redis.NotifyQueue)
				for ctx.Err() == nil {
					event, err := queue.Pop(ctx, 5*time.Second)
					if errors.Is(err, goredis.Nil) {
						continue
					}
					if err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
					if err := enc.Encode(event); err != nil {
						return err
					}
				}
				return nil
			}

			events, err := redis.NewAuditBus(client, cfg.Redis.AuditChannel, logger).Subscribe(ctx)
			if err != nil {
				return err
			}
			for event := range events {
				if err := enc.Encode(event); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notifications, "notifications", false, "pop from the notification queue instead")
	return cmd
}
