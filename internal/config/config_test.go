package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CKS_JWT_SECRET", "secret")
	t.Setenv("CKS_APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 2*time.Minute, cfg.EcosystemCacheTTL)
	require.Equal(t, 45*time.Second, cfg.FeedCacheTTL)
	require.Equal(t, 5, cfg.ClearRateLimit)
	require.Equal(t, "cks:events", cfg.EventChannel)
	require.False(t, cfg.SeedEnabled)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CKS_JWT_SECRET", "secret")
	t.Setenv("CKS_FEED_CACHE_TTL", "10s")
	t.Setenv("CKS_SEED_ENABLED", "true")
	t.Setenv("CKS_SEED_TOKEN", "seed")
	t.Setenv("CKS_CORS_ALLOW_ORIGINS", "https://portal.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.FeedCacheTTL)
	require.True(t, cfg.SeedEnabled)
	require.Equal(t, "seed", cfg.SeedToken)
	require.Equal(t, "https://portal.example.com", cfg.CORSAllowOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CKS_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CKS_JWT_SECRET", "secret")
	t.Setenv("CKS_ECOSYSTEM_CACHE_TTL", "soon")
	_, err = Load()
	require.Error(t, err)
}
