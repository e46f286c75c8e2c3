package goCred

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/storage/memstore"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.PasswordAge.MinimumAgeMinutes != 1 || cfg.PasswordAge.MaximumAgeDays != 90 || cfg.PasswordAge.WarningWindowDays != 14 {
		t.Fatalf("unexpected age defaults: %+v", cfg.PasswordAge)
	}
	if cfg.Lockout.MaxFailedAttempts != 5 || cfg.Lockout.Duration != 3*time.Minute {
		t.Fatalf("unexpected lockout defaults: %+v", cfg.Lockout)
	}
	if cfg.History.Depth != 2 || cfg.OTP.TTL != 5*time.Minute || cfg.PasswordReset.TokenTTL != 30*time.Minute {
		t.Fatal("unexpected history, code or token defaults")
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min age", func(c *Config) { c.PasswordAge.MinimumAgeMinutes = -1 }},
		{"max age overflows", func(c *Config) { c.PasswordAge.MaximumAgeDays = 200000 }},
		{"zero lockout attempts", func(c *Config) { c.Lockout.MaxFailedAttempts = 0 }},
		{"zero lockout duration", func(c *Config) { c.Lockout.Duration = 0 }},
		{"negative history", func(c *Config) { c.History.Depth = -1 }},
		{"zero otp ttl", func(c *Config) { c.OTP.TTL = 0 }},
		{"zero reset ttl", func(c *Config) { c.PasswordReset.TokenTTL = 0 }},
		{"throttle without window", func(c *Config) { c.PasswordReset.Window = 0 }},
		{"bad codec key", func(c *Config) { c.Codec.Key = []byte("short") }},
		{"grant without key", func(c *Config) { c.Grant.Enabled = true }},
		{"weak argon2 memory", func(c *Config) { c.Password.Memory = 1024 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigIsCopied(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	cfg := DefaultConfig()
	cfg.Codec.Key = key

	engine, err := New().WithConfig(cfg).WithStorage(memstore.New()).WithHasher(plainHasher{}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	key[0] = 'X'
	if got := engine.Config().Codec.Key[0]; got != '0' {
		t.Fatalf("engine config shares the caller's key slice: %q", got)
	}
}

func TestBuilderRules(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected storage to be required")
	}

	b := New().WithStorage(memstore.New()).WithHasher(plainHasher{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected a builder to build only once")
	}
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine, err := New().
		WithStorage(memstore.New()).
		WithHasher(plainHasher{}).
		WithClock(newFakeClock()).
		WithMetricsRegisterer(reg).
		WithLogger(zaptest.NewLogger(t)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	te := &testEngine{Engine: engine}
	te.enroll(t)
	for i := 0; i < 5; i++ {
		_, _ = engine.Login(context.Background(), testEmail, "Wr0ng!Password")
	}

	if got := testutil.ToFloat64(engine.metrics.Lockouts); got != 1 {
		t.Fatalf("expected one lockout, got %v", got)
	}
	if got := testutil.ToFloat64(engine.metrics.Logins.WithLabelValues(metrics.StageLogin, metrics.OutcomeRejected)); got != 4 {
		t.Fatalf("expected 4 rejected logins, got %v", got)
	}
}
