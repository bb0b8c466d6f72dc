// Package config loads approvald settings from an optional YAML file and
// APPROVAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/viridial-group/realestate-sub003/internal/core/postgres/repository"
	"github.com/viridial-group/realestate-sub003/internal/infrastructure/redis"
	"github.com/viridial-group/realestate-sub003/internal/scanner"
)

const envPrefix = "APPROVAL"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP struct {
		Addr            string        `mapstructure:"addr"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Storage string `mapstructure:"storage"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	Redis struct {
		// Empty Addr keeps audit, notifications and dedup in process.
		Addr         string        `mapstructure:"addr"`
		Password     string        `mapstructure:"password"`
		DB           int           `mapstructure:"db"`
		NotifyQueue  string        `mapstructure:"notify_queue"`
		AuditChannel string        `mapstructure:"audit_channel"`
		DedupTTL     time.Duration `mapstructure:"dedup_ttl"`
	} `mapstructure:"redis"`

	Scanner struct {
		Enabled     bool          `mapstructure:"enabled"`
		Interval    time.Duration `mapstructure:"interval"`
		GracePeriod time.Duration `mapstructure:"grace_period"`
		Concurrency int           `mapstructure:"concurrency"`
	} `mapstructure:"scanner"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	// Directory seeds the built-in organization tree and user directory used
	// when no external identity service is wired.
	Directory Directory `mapstructure:"directory"`
}

type Directory struct {
	Organizations []Organization `mapstructure:"organizations"`
	Users         []User         `mapstructure:"users"`
}

type Organization struct {
	ID     string `mapstructure:"id"`
	Parent string `mapstructure:"parent"`
}

type User struct {
	ID            string   `mapstructure:"id"`
	Roles         []string `mapstructure:"roles"`
	Admin         bool     `mapstructure:"admin"`
	SuperAdmin    bool     `mapstructure:"super_admin"`
	Type          string   `mapstructure:"type"`
	Organizations []string `mapstructure:"organizations"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage", StoragePostgres)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "approval")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.notify_queue", redis.DefaultNotifyQueue)
	v.SetDefault("redis.audit_channel", redis.DefaultAuditChannel)
	v.SetDefault("redis.dedup_ttl", 7*24*time.Hour)

	v.SetDefault("scanner.enabled", true)
	v.SetDefault("scanner.interval", time.Minute)
	v.SetDefault("scanner.grace_period", 24*time.Hour)
	v.SetDefault("scanner.concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads path when non-empty, then environment overrides such as
// APPROVAL_DB_HOST for db.host.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage %q, want %s or %s", c.Storage, StorageMemory, StoragePostgres)
	}
	if c.Scanner.Interval <= 0 {
		return errors.New("scanner.interval must be positive")
	}
	return nil
}

func (c *Config) Database() repository.Options {
	return repository.Options{
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		User:     c.DB.User,
		Password: c.DB.Password,
		Name:     c.DB.Name,
		SSLMode:  c.DB.SSLMode,
	}
}

func (c *Config) RedisOptions() redis.Options {
	return redis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB}
}

func (c *Config) ScannerConfig() scanner.Config {
	return scanner.Config{
		Interval:    c.Scanner.Interval,
		GracePeriod: c.Scanner.GracePeriod,
		Concurrency: c.Scanner.Concurrency,
		DedupTTL:    c.Redis.DedupTTL,
	}
}

// ParseID accepts an empty string as uuid.Nil.
func ParseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
