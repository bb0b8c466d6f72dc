package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/viridial-group/realestate-sub003/internal/config"
	"github.com/viridial-group/realestate-sub003/internal/core/memory"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/core/postgres/repository"
	"github.com/viridial-group/realestate-sub003/internal/definition"
	"github.com/viridial-group/realestate-sub003/internal/infrastructure/redis"
	"github.com/viridial-group/realestate-sub003/internal/logging"
	"github.com/viridial-group/realestate-sub003/internal/permission"
	"github.com/viridial-group/realestate-sub003/internal/resolver"
	"github.com/viridial-group/realestate-sub003/internal/scanner"
	"github.com/viridial-group/realestate-sub003/internal/sequencer"
	"github.com/viridial-group/realestate-sub003/internal/service"
)

// app holds every wired component of one process.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db    *gorm.DB
	redis *goredis.Client

	definitions ports.DefinitionRepository
	tasks       ports.TaskRepository
	audit       ports.AuditSink
	notifier    ports.Notifier
	ledger      ports.NotificationLedger
	permissions ports.PermissionProvider

	sequencer *sequencer.Sequencer
	scanner   *scanner.Scanner
	service   *service.WorkflowService
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStorage(); err != nil {
		return nil, err
	}
	if err := a.openMessaging(ctx); err != nil {
		a.close()
		return nil, err
	}
	if a.permissions, err = seedDirectory(cfg.Directory, logger); err != nil {
		a.close()
		return nil, err
	}

	a.sequencer = sequencer.New(a.tasks, a.audit, a.notifier, logger)
	a.scanner = scanner.New(a.sequencer, a.notifier, a.ledger, cfg.ScannerConfig(), logger)
	a.service = service.NewWorkflowService(
		resolver.New(a.definitions, logger),
		definition.NewStore(a.definitions, a.tasks, logger),
		a.sequencer,
		a.tasks,
		logger,
	)
	return a, nil
}

func (a *app) openStorage() error {
	switch a.cfg.Storage {
	case config.StorageMemory:
		a.logger.Warn("using in-memory storage, state is lost on restart")
		store := memory.NewStore()
		a.definitions, a.tasks = store, store
		return nil
	default:
		db, err := openDatabase(a.cfg)
		if err != nil {
			return err
		}
		a.db = db
		a.definitions = repository.NewWorkflowRepository(db)
		a.tasks = repository.NewTaskRepository(db)
		return nil
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := repository.Open(cfg.Database().DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// openMessaging wires redis when an address is configured and falls back
// to in-process sinks otherwise.
func (a *app) openMessaging(ctx context.Context) error {
	if a.cfg.Redis.Addr == "" {
		a.logger.Info("redis not configured, audit and notifications stay in process")
		a.audit = memory.NewAuditLog()
		a.notifier = memory.NewOutbox()
		a.ledger = memory.NewLedger()
		return nil
	}
	client, err := redis.NewRedisClient(ctx, a.cfg.RedisOptions())
	if err != nil {
		return err
	}
	a.redis = client
	a.audit = redis.NewAuditBus(client, a.cfg.Redis.AuditChannel, a.logger)
	a.notifier = redis.NewNotificationQueue(client, a.cfg.Redis.NotifyQueue)
	a.ledger = redis.NewLedger(client)
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.logger.Sync()
}

// seedDirectory builds the in-process organization tree and user directory.
func seedDirectory(d config.Directory, logger *zap.Logger) (ports.PermissionProvider, error) {
	tree := permission.NewTree()
	for _, o := range d.Organizations {
		id, err := config.ParseID(o.ID)
		if err != nil {
			return nil, fmt.Errorf("directory organization %q: %w", o.ID, err)
		}
		parent, err := config.ParseID(o.Parent)
		if err != nil {
			return nil, fmt.Errorf("directory organization %q parent: %w", o.ID, err)
		}
		tree.AddOrganization(id, parent)
	}

	users := permission.NewDirectory()
	for _, u := range d.Users {
		id, err := config.ParseID(u.ID)
		if err != nil {
			return nil, fmt.Errorf("directory user %q: %w", u.ID, err)
		}
		for _, o := range u.Organizations {
			orgID, err := config.ParseID(o)
			if err != nil {
				return nil, fmt.Errorf("directory user %q organization: %w", u.ID, err)
			}
			tree.AddMember(id, orgID)
		}
		users.Put(ports.UserProfile{
			UserID:     id,
			RoleNames:  u.Roles,
			SuperAdmin: u.SuperAdmin,
			Admin:      u.Admin,
			UserType:   u.Type,
		})
	}
	logger.Info("directory loaded",
		zap.Int("organizations", len(d.Organizations)),
		zap.Int("users", len(d.Users)),
	)
	return permission.NewBuilder(users, tree, logger), nil
}
