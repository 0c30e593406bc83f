package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "Asia/Jakarta", cfg.Sync.Timezone)
	assert.Equal(t, 17, cfg.Sync.Hour)
	assert.Equal(t, 10, cfg.Sync.Workers)
	assert.Equal(t, 25, cfg.Sync.BatchSize)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	cfg := Load()
	assert.Equal(t, "projecttracker", cfg.DB.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
db:
  host: db.internal
  name: tracker_prod
sync:
  hour: 8
  minute: 30
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "tracker_prod", cfg.DB.Name)
	assert.Equal(t, 8, cfg.Sync.Hour)
	assert.Equal(t, 30, cfg.Sync.Minute)
	assert.Equal(t, 5432, cfg.DB.Port, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  host: from-file\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_HOST", "from-env")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("CLICKUP_TOKEN", "pk_secret")
	t.Setenv("SYNC_TZ", "UTC")
	t.Setenv("SYNC_WORKERS", "4")
	t.Setenv("SYNC_BATCH_SIZE", "50")

	cfg := Load()
	assert.Equal(t, "from-env", cfg.DB.Host)
	assert.Equal(t, 15432, cfg.DB.Port)
	assert.Equal(t, "pk_secret", cfg.ClickUp.Token)
	assert.Equal(t, "UTC", cfg.Sync.Timezone)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
}

func TestEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("SYNC_WORKERS", "-3")
	t.Setenv("SYNC_BATCH_SIZE", "0")

	cfg := Load()
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 10, cfg.Sync.Workers)
	assert.Equal(t, 25, cfg.Sync.BatchSize)
}
