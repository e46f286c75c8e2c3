package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	goCred "github.com/MrEthical07/goCred"
)

// cliConfig holds the environment-driven settings of credctl.
type cliConfig struct {
	Env      string
	LogLevel string

	DatabaseURL string
	RedisAddr   string

	CodecKey []byte

	MinimumAgeMinutes int
	MaximumAgeDays    int
	LockoutAttempts   int
	LockoutDuration   time.Duration
	HistoryDepth      int

	AcceptIdentityHashes bool
}

func loadConfig() (*cliConfig, error) {
	cfg := &cliConfig{
		Env:      getEnv("CREDCTL_ENV", "development"),
		LogLevel: getEnv("CREDCTL_LOG_LEVEL", "info"),

		DatabaseURL: getEnv("CREDCTL_DATABASE_URL", ""),
		RedisAddr:   getEnv("CREDCTL_REDIS_ADDR", ""),

		MinimumAgeMinutes: getEnvInt("CREDCTL_MIN_PASSWORD_AGE_MINUTES", 1),
		MaximumAgeDays:    getEnvInt("CREDCTL_MAX_PASSWORD_AGE_DAYS", 90),
		LockoutAttempts:   getEnvInt("CREDCTL_LOCKOUT_ATTEMPTS", 5),
		LockoutDuration:   getEnvDuration("CREDCTL_LOCKOUT_DURATION", 3*time.Minute),
		HistoryDepth:      getEnvInt("CREDCTL_HISTORY_DEPTH", 2),

		AcceptIdentityHashes: getEnv("CREDCTL_ACCEPT_IDENTITY_HASHES", "") == "true",
	}

	if raw := getEnv("CREDCTL_CODEC_KEY", ""); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("CREDCTL_CODEC_KEY must be base64: %w", err)
		}
		cfg.CodecKey = key
	}

	return cfg, nil
}

// engineConfig maps the CLI settings onto the engine defaults.
func (c *cliConfig) engineConfig() goCred.Config {
	cfg := goCred.DefaultConfig()
	cfg.PasswordAge.MinimumAgeMinutes = c.MinimumAgeMinutes
	cfg.PasswordAge.MaximumAgeDays = float64(c.MaximumAgeDays)
	cfg.Lockout.MaxFailedAttempts = c.LockoutAttempts
	cfg.Lockout.Duration = c.LockoutDuration
	cfg.History.Depth = c.HistoryDepth
	cfg.Codec.Key = c.CodecKey
	cfg.Password.AcceptIdentityHashes = c.AcceptIdentityHashes
	cfg.Audit.Enabled = true
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
