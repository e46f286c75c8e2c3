package otp

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var issueTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, now *time.Time) *Manager {
	t.Helper()
	store := stores.NewMemoryOTPChallengeStore(func() time.Time { return *now })
	return NewManager(store, Config{MaxAttempts: 5})
}

func TestIssueProducesSixDigitCode(t *testing.T) {
	now := issueTime
	m := newTestManager(t, &now)

	ch, err := m.Issue(context.Background(), "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	n, err := strconv.Atoi(ch.Code)
	if err != nil || n < 100000 || n > 999999 {
		t.Fatalf("unexpected code %q", ch.Code)
	}
	if !ch.ExpiresAt.Equal(issueTime.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", ch.ExpiresAt)
	}
	if ch.PendingID == "" {
		t.Fatal("expected pending id")
	}
}

func TestVerifyValidExactlyOnce(t *testing.T) {
	now := issueTime
	m := newTestManager(t, &now)
	ctx := context.Background()

	ch, err := m.Issue(ctx, "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = issueTime.Add(5 * time.Minute)
	result, got, err := m.Verify(ctx, ch.PendingID, ch.Code, now)
	if err != nil || result != Valid {
		t.Fatalf("expected valid, got %v err=%v", result, err)
	}
	if got.UserID != "u1" || got.Subject != "alice@example.com" {
		t.Fatalf("unexpected challenge %+v", got)
	}

	result, _, err = m.Verify(ctx, ch.PendingID, ch.Code, now)
	if err != nil || result != NotFound {
		t.Fatalf("expected not found on replay, got %v err=%v", result, err)
	}
}

func TestVerifyExpiredAfterWindow(t *testing.T) {
	now := issueTime
	m := newTestManager(t, &now)
	ctx := context.Background()

	ch, err := m.Issue(ctx, "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = issueTime.Add(5*time.Minute + time.Second)
	result, _, err := m.Verify(ctx, ch.PendingID, ch.Code, now)
	if err != nil || result != Expired {
		t.Fatalf("expected expired, got %v err=%v", result, err)
	}
	result, _, _ = m.Verify(ctx, ch.PendingID, ch.Code, now)
	if result != NotFound {
		t.Fatalf("expired challenge must be discarded, got %v", result)
	}
}

func TestVerifyMismatchKeepsChallengeUntilCeiling(t *testing.T) {
	now := issueTime
	m := newTestManager(t, &now)
	ctx := context.Background()

	ch, err := m.Issue(ctx, "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	wrong := "000000"

	for i := 0; i < 4; i++ {
		if result, _, err := m.Verify(ctx, ch.PendingID, wrong, now); err != nil || result != Mismatch {
			t.Fatalf("attempt %d: expected mismatch, got %v err=%v", i, result, err)
		}
	}
	if result, _, _ := m.Verify(ctx, ch.PendingID, ch.Code, now); result != Valid {
		t.Fatalf("expected correct code to still verify, got %v", result)
	}

	ch, err = m.Issue(ctx, "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	for i := 0; i < 5; i++ {
		m.Verify(ctx, ch.PendingID, wrong, now)
	}
	if result, _, _ := m.Verify(ctx, ch.PendingID, ch.Code, now); result != NotFound {
		t.Fatalf("expected challenge discarded after attempt ceiling, got %v", result)
	}
}

func TestReissueInvalidatesPrevious(t *testing.T) {
	now := issueTime
	m := newTestManager(t, &now)
	ctx := context.Background()

	first, err := m.Issue(ctx, "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := m.Issue(ctx, "alice@example.com", "u1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if result, _, _ := m.Verify(ctx, first.PendingID, first.Code, now); result != NotFound {
		t.Fatalf("expected first challenge invalidated, got %v", result)
	}
	if result, _, _ := m.Verify(ctx, second.PendingID, second.Code, now); result != Valid {
		t.Fatalf("expected second challenge valid, got %v", result)
	}
}

func TestCheckPure(t *testing.T) {
	ch := &Challenge{Code: "123456", ExpiresAt: issueTime}
	if Check(nil, "123456", issueTime) != NotFound {
		t.Fatal("nil challenge is NotFound")
	}
	if Check(ch, "123456", issueTime) != Valid {
		t.Fatal("expected valid at expiry instant")
	}
	if Check(ch, "12345", issueTime) != Mismatch {
		t.Fatal("expected mismatch for short code")
	}
	if Check(ch, "123456", issueTime.Add(time.Nanosecond)) != Expired {
		t.Fatal("expected expired after expiry instant")
	}
}

func TestVerifyConcurrentSingleUseRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	m := NewManager(stores.NewRedisOTPChallengeStore(rdb, "t"), Config{MaxAttempts: 5})
	ctx := context.Background()
	ch, err := m.Issue(ctx, "alice@example.com", "u1", issueTime)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var (
		wg    sync.WaitGroup
		valid atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _, err := m.Verify(ctx, ch.PendingID, ch.Code, issueTime)
			if err != nil {
				t.Errorf("Verify: %v", err)
				return
			}
			if result == Valid {
				valid.Add(1)
			}
		}()
	}
	wg.Wait()

	if valid.Load() != 1 {
		t.Fatalf("expected exactly one valid verification, got %d", valid.Load())
	}
}
