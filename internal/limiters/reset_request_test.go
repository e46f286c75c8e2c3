package limiters

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg ResetRequestConfig) (*ResetRequestLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewResetRequestLimiter(rdb, cfg), mr
}

func TestResetRequestLimiterIdentifierWindow(t *testing.T) {
	l, mr := newLimiter(t, ResetRequestConfig{
		EnableIdentifierThrottle: true,
		Window:                   time.Minute,
		MaxRequests:              3,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, "alice@example.com", ""); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := l.Check(ctx, "alice@example.com", ""); !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if err := l.Check(ctx, "bob@example.com", ""); err != nil {
		t.Fatalf("other identifiers must not be limited: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.Check(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestResetRequestLimiterIPWindow(t *testing.T) {
	l, _ := newLimiter(t, ResetRequestConfig{
		EnableIPThrottle: true,
		Window:           time.Minute,
		MaxRequests:      1,
	})
	ctx := context.Background()

	if err := l.Check(ctx, "a@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := l.Check(ctx, "b@example.com", "10.0.0.1"); !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected ip limit, got %v", err)
	}
}

func TestResetRequestLimiterUnavailable(t *testing.T) {
	l, mr := newLimiter(t, ResetRequestConfig{EnableIdentifierThrottle: true, Window: time.Minute, MaxRequests: 1})
	mr.Close()
	if err := l.Check(context.Background(), "a@example.com", ""); !errors.Is(err, ErrResetRedisUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestNilResetRequestLimiter(t *testing.T) {
	var l *ResetRequestLimiter
	if err := l.Check(context.Background(), "a", "b"); err != nil {
		t.Fatalf("nil limiter must allow, got %v", err)
	}
}

func TestResetRequestLimiterReportsScopeAndRetry(t *testing.T) {
	l, mr := newLimiter(t, ResetRequestConfig{
		EnableIdentifierThrottle: true,
		EnableIPThrottle:         true,
		Window:                   10 * time.Minute,
		MaxRequests:              1,
	})
	ctx := context.Background()

	if err := l.Check(ctx, "alice@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	mr.FastForward(4 * time.Minute)

	err := l.Check(ctx, "alice@example.com", "10.0.0.2")
	var throttled *Throttled
	if !errors.As(err, &throttled) {
		t.Fatalf("expected *Throttled, got %v", err)
	}
	if throttled.Scope != ScopeEmail {
		t.Fatalf("expected email scope, got %q", throttled.Scope)
	}
	if throttled.RetryAfter <= 5*time.Minute || throttled.RetryAfter > 6*time.Minute {
		t.Fatalf("expected about 6m retry, got %s", throttled.RetryAfter)
	}
}

func TestResetRequestLimiterHashesEmailKeys(t *testing.T) {
	l, mr := newLimiter(t, ResetRequestConfig{
		EnableIdentifierThrottle: true,
		Window:                   time.Minute,
		MaxRequests:              3,
		Prefix:                   "test:reset",
	})
	if err := l.Check(context.Background(), "alice@example.com", ""); err != nil {
		t.Fatalf("check: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %v", keys)
	}
	if !strings.HasPrefix(keys[0], "test:reset:email:") || strings.Contains(keys[0], "alice") {
		t.Fatalf("unexpected key %q", keys[0])
	}
	if ttl := mr.TTL(keys[0]); ttl != time.Minute {
		t.Fatalf("expected window ttl, got %s", ttl)
	}
}
