package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblescafe/storyapi/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, []string{"localhost:19092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.SyncPages)
	assert.Equal(t, 12*time.Hour, cfg.ContentCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("SYNC_PER_PAGE", "50")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, 50, cfg.SyncPerPage)
}

func TestGetSyncBackoffConfig_TestEnvShortens(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := config.Load()
	require.NoError(t, err)
	maxElapsed, initial, maxIvl, mult := cfg.GetSyncBackoffConfig()
	assert.Equal(t, 2*time.Second, maxElapsed)
	assert.Equal(t, 50*time.Millisecond, initial)
	assert.Equal(t, 500*time.Millisecond, maxIvl)
	assert.Equal(t, 2.0, mult)
}

func TestGetSyncBackoffConfig_ProdUsesConfigured(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SYNC_BACKOFF_MAX_ELAPSED_TIME", "90s")
	cfg, err := config.Load()
	require.NoError(t, err)
	maxElapsed, _, _, _ := cfg.GetSyncBackoffConfig()
	assert.Equal(t, 90*time.Second, maxElapsed)
}
