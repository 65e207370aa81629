package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"), nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, StoreBackendPostgres, cfg.App.StoreBackend)
	assert.Equal(t, 180*time.Second, cfg.Waiting.ReadyToConfirmWindow)
	assert.Equal(t, 600*time.Second, cfg.Waiting.ConfirmedWindow)
	assert.Equal(t, time.Second, cfg.Waiting.ExpiryGrace)
	assert.Equal(t, 20, cfg.Waiting.MaxPartySize)
	assert.Equal(t, SchedulerBackendLocal, cfg.Scheduler.Backend)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "@every 30s", cfg.Reconciler.Spec)
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "app.env")
	content := "JWT_SECRET=from-file\nPORT=9000\nWAITING_CONFIRMED_WINDOW=5m\nSTORE_BACKEND=memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SCHEDULER_BACKEND", "redis")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "7000"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "7000", cfg.App.Port)
	assert.Equal(t, 5*time.Minute, cfg.Waiting.ConfirmedWindow)
	assert.Equal(t, StoreBackendMemory, cfg.App.StoreBackend)
	assert.Equal(t, SchedulerBackendRedis, cfg.Scheduler.Backend)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SCHEDULER_BACKEND", "kafka")

	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SCHEDULER_BACKEND")
}
