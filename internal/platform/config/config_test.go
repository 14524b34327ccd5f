package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Saves.LocalBackend)
	assert.Equal(t, "eastend_game_saves", cfg.Saves.KeyPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Saves.MinLoading)
	assert.Equal(t, time.Second, cfg.Saves.ConflictTolerance)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Same(t, Cfg, cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
  cors:
    allowedOrigins: ["https://game.example.com"]
database:
  driver: postgres
  dsn: "host=db user=game"
saves:
  localBackend: sql
  minLoading: 250ms
session:
  idleTTL: 5m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"https://game.example.com"}, cfg.Server.Cors.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "sql", cfg.Saves.LocalBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.Saves.MinLoading)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTTL)
	// 未出现在文件中的项保留默认值
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SAVES_LOCALBACKEND", "memory")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Saves.LocalBackend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
