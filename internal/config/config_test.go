package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "approval:notifications", cfg.Redis.NotifyQueue)
	assert.Equal(t, time.Minute, cfg.Scanner.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Scanner.GracePeriod)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage: memory
db:
  host: db.internal
scanner:
  interval: 30s
  concurrency: 8
directory:
  organizations:
    - id: 6f1b7a1e-0000-4000-8000-000000000001
    - id: 6f1b7a1e-0000-4000-8000-000000000002
      parent: 6f1b7a1e-0000-4000-8000-000000000001
  users:
    - id: 6f1b7a1e-0000-4000-8000-0000000000aa
      roles: [MANAGER]
      organizations: [6f1b7a1e-0000-4000-8000-000000000001]
`), 0o600))
	t.Setenv("APPROVAL_DB_HOST", "override.internal")
	t.Setenv("APPROVAL_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "override.internal", cfg.DB.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 8, cfg.ScannerConfig().Concurrency)
	require.Len(t, cfg.Directory.Organizations, 2)
	assert.Equal(t, "6f1b7a1e-0000-4000-8000-000000000001", cfg.Directory.Organizations[1].Parent)
	require.Len(t, cfg.Directory.Users, 1)
	assert.Equal(t, []string{"MANAGER"}, cfg.Directory.Users[0].Roles)

	assert.Contains(t, cfg.Database().DSN(), "host=override.internal")
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("APPROVAL_STORAGE", "sqlite")
	_, err := Load("")
	assert.ErrorContains(t, err, "unknown storage")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
