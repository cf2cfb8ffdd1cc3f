package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "ENV", "OUTBOUND_TIMEOUT", "GARMIN_AUTH_URL", "DB_PATH",
	"LOOKUP_RETENTION", "PRUNE_SCHEDULE", "RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.OutboundTimeout)
	assert.Equal(t, DefaultGarminAuthURL, cfg.GarminAuthURL)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, 720*time.Hour, cfg.LookupRetention)
	assert.Equal(t, "@hourly", cfg.PruneSchedule)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.True(t, cfg.IsDev())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("OUTBOUND_TIMEOUT", "2s")
	t.Setenv("DB_PATH", "/tmp/lookups.db")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 2*time.Second, cfg.OutboundTimeout)
	assert.Equal(t, "/tmp/lookups.db", cfg.DBPath)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTBOUND_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_BURST", "ten")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.OutboundTimeout)
	assert.Equal(t, 10, cfg.RateLimitBurst)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{"zero timeout", func(c *Config) { c.OutboundTimeout = 0 }, "OUTBOUND_TIMEOUT"},
		{"negative rate", func(c *Config) { c.RateLimitPerMinute = -1 }, "RATE_LIMIT_PER_MINUTE"},
		{"zero burst", func(c *Config) { c.RateLimitBurst = 0 }, "RATE_LIMIT_BURST"},
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"retention with db", func(c *Config) { c.DBPath = "x.db"; c.LookupRetention = 0 }, "LOOKUP_RETENTION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
