package app

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadFrom(newViper(nil))
	require.NoError(t, err)

	require.Equal(t, "tabauth", cfg.Issuer)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 3*time.Second, cfg.StoreTimeout)
	require.Equal(t, "sqlite", cfg.SessionStore)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, httpx.StrictLimit, cfg.StrictLimit)
	require.Equal(t, httpx.ModerateLimit, cfg.ModerateLimit)
	require.True(t, cfg.IsDev())
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadFrom(newViper(map[string]any{
		"ENV":                       "prod",
		"AUTH_SIGNING_SECRET":       testSecret,
		"AUTH_ACCESS_TTL":           "5m",
		"AUTH_REFRESH_TTL":          "24h",
		"SESSION_STORE":             " Redis ",
		"REDIS_ADDR":                "localhost:6379",
		"PORT":                      "9090",
		"RATELIMIT_STRICT_REQUESTS": "1000",
		"RATELIMIT_STRICT_BURST":    "1000",
	}))
	require.NoError(t, err)

	require.False(t, cfg.IsDev())
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, "redis", cfg.SessionStore)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 1000, cfg.StrictLimit.Requests)
	require.Equal(t, 1000, cfg.StrictLimit.Burst)
	require.Equal(t, time.Minute, cfg.StrictLimit.Window)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{
			name:      "secret required outside dev",
			overrides: map[string]any{"ENV": "prod"},
			wantErr:   "AUTH_SIGNING_SECRET must be set",
		},
		{
			name:      "short secret",
			overrides: map[string]any{"AUTH_SIGNING_SECRET": "short"},
			wantErr:   "at least 32 bytes",
		},
		{
			name:      "access ttl not shorter than refresh",
			overrides: map[string]any{"AUTH_ACCESS_TTL": "2h", "AUTH_REFRESH_TTL": "1h"},
			wantErr:   "must be shorter",
		},
		{
			name:      "zero ttl",
			overrides: map[string]any{"AUTH_ACCESS_TTL": "0s"},
			wantErr:   "must be positive",
		},
		{
			name:      "redis without address",
			overrides: map[string]any{"SESSION_STORE": "redis"},
			wantErr:   "REDIS_ADDR",
		},
		{
			name:      "unknown session store",
			overrides: map[string]any{"SESSION_STORE": "memcached"},
			wantErr:   "unknown SESSION_STORE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadFrom(newViper(tc.overrides))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestInitCodec(t *testing.T) {
	t.Run("configured secret", func(t *testing.T) {
		cfg := Config{SigningSecret: testSecret, Issuer: "tabauth", Env: "prod"}
		codec, err := InitCodec(&cfg, slogx.Discard())
		require.NoError(t, err)
		require.NotNil(t, codec)
		require.False(t, cfg.GeneratedSecret)
	})

	t.Run("ephemeral secret in dev", func(t *testing.T) {
		cfg := Config{Issuer: "tabauth", Env: "dev"}
		codec, err := InitCodec(&cfg, slogx.Discard())
		require.NoError(t, err)
		require.NotNil(t, codec)
		require.True(t, cfg.GeneratedSecret)
	})
}
