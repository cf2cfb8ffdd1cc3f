package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const DefaultGarminAuthURL = "https://connect.garmin.com/services/auth/token/public"

type Config struct {
	Port            string
	Env             string
	OutboundTimeout time.Duration
	GarminAuthURL   string

	// Lookup log; an empty DBPath disables it.
	DBPath          string
	LookupRetention time.Duration
	PruneSchedule   string

	RateLimitPerMinute int
	RateLimitBurst     int
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		Env:                getEnv("ENV", "dev"),
		OutboundTimeout:    getEnvDuration("OUTBOUND_TIMEOUT", 5*time.Second),
		GarminAuthURL:      getEnv("GARMIN_AUTH_URL", DefaultGarminAuthURL),
		DBPath:             os.Getenv("DB_PATH"),
		LookupRetention:    getEnvDuration("LOOKUP_RETENTION", 30*24*time.Hour),
		PruneSchedule:      getEnv("PRUNE_SCHEDULE", "@hourly"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// IsDev reports whether console logging and gin debug mode should be used.
func (c *Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.OutboundTimeout <= 0 {
		return fmt.Errorf("OUTBOUND_TIMEOUT must be positive, got %s", c.OutboundTimeout)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	if c.DBPath != "" && c.LookupRetention <= 0 {
		return fmt.Errorf("LOOKUP_RETENTION must be positive when DB_PATH is set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
