package model_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/model"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 72*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, int64(10<<20), cfg.Attachments.MaxBytes)
	assert.Equal(t, "admin@tasktracker.com", cfg.Seed.AdminEmail)
	assert.False(t, cfg.Notify.Enabled)
	assert.Equal(t, 60, cfg.Notify.PollIntervalSec)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TASKTRACKER_DATABASE_DRIVER", "postgres")
	t.Setenv("TASKTRACKER_SERVER_ADDR", ":9090")

	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: postgres://tracker@localhost/tracker
server:
  token_ttl: 2h
notify:
  enabled: true
  host: imap.example.com
  poll_interval_sec: 0
log:
  format: text
`), 0o644))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://tracker@localhost/tracker", cfg.Database.DSN)
	assert.Equal(t, 2*time.Hour, cfg.Server.TokenTTL)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, "imap.example.com", cfg.Notify.Host)
	assert.Equal(t, 60, cfg.Notify.PollIntervalSec)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o644))

	_, err := model.LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	cfg.Server.Addr = ":7000"
	cfg.Server.TokenTTL = 90 * time.Minute
	cfg.Seed.AdminName = "Root"

	require.NoError(t, model.SaveConfig(path, cfg))

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", loaded.Server.Addr)
	assert.Equal(t, 90*time.Minute, loaded.Server.TokenTTL)
	assert.Equal(t, "Root", loaded.Seed.AdminName)
}

func TestDefaultAppConfigIgnoresEnvironment(t *testing.T) {
	t.Setenv("TASKTRACKER_SERVER_ADDR", ":9090")
	assert.Equal(t, ":8080", model.DefaultAppConfig().Server.Addr)
}
