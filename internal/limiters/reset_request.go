package limiters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetRateLimited      = errors.New("reset rate limited")
	ErrResetRedisUnavailable = errors.New("reset redis unavailable")
)

// DefaultPrefix namespaces reset throttle keys.
const DefaultPrefix = "gocred:reset"

// Scope names the budget a reset request was charged against.
type Scope string

const (
	ScopeEmail   Scope = "email"
	ScopeAddress Scope = "addr"
)

type ResetRequestConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxRequests              int
	Prefix                   string
}

// Throttled reports a spent budget. It matches ErrResetRateLimited.
type Throttled struct {
	Scope      Scope
	RetryAfter time.Duration
}

func (t *Throttled) Error() string {
	return fmt.Sprintf("reset rate limited by %s, retry in %s", t.Scope, t.RetryAfter)
}

func (t *Throttled) Unwrap() error { return ErrResetRateLimited }

// ResetRequestLimiter keeps one fixed-window counter per email and one per
// client address. Emails are stored hashed so Redis never holds addresses of
// account holders.
type ResetRequestLimiter struct {
	redis  redis.UniversalClient
	window time.Duration
	limit  int64
	prefix string
	email  bool
	addr   bool
}

func NewResetRequestLimiter(redisClient redis.UniversalClient, cfg ResetRequestConfig) *ResetRequestLimiter {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &ResetRequestLimiter{
		redis:  redisClient,
		window: cfg.Window,
		limit:  int64(cfg.MaxRequests),
		prefix: prefix,
		email:  cfg.EnableIdentifierThrottle,
		addr:   cfg.EnableIPThrottle,
	}
}

// Check charges one request to the email and address budgets. Each enabled
// budget is charged even when an earlier one is already spent.
func (l *ResetRequestLimiter) Check(ctx context.Context, email, addr string) error {
	if l == nil {
		return nil
	}

	var throttled *Throttled
	if l.email && email != "" {
		t, err := l.charge(ctx, ScopeEmail, l.emailKey(email))
		if err != nil {
			return err
		}
		throttled = t
	}
	if l.addr && addr != "" {
		t, err := l.charge(ctx, ScopeAddress, l.prefix+":addr:"+addr)
		if err != nil {
			return err
		}
		if t != nil && (throttled == nil || t.RetryAfter > throttled.RetryAfter) {
			throttled = t
		}
	}
	if throttled != nil {
		return throttled
	}
	return nil
}

func (l *ResetRequestLimiter) emailKey(email string) string {
	sum := sha256.Sum256([]byte(email))
	return l.prefix + ":email:" + hex.EncodeToString(sum[:16])
}

// charge increments key and reads its remaining lifetime in one round trip.
// A counter without a lifetime is the first of its window and gets one.
func (l *ResetRequestLimiter) charge(ctx context.Context, scope Scope, key string) (*Throttled, error) {
	var (
		count *redis.IntCmd
		ttl   *redis.DurationCmd
	)
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		if err := l.redis.PExpire(ctx, key, l.window).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
		}
		remaining = l.window
	}

	if count.Val() > l.limit {
		return &Throttled{Scope: scope, RetryAfter: remaining}, nil
	}
	return nil, nil
}
