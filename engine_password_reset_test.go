package goCred

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/MrEthical07/goCred/storage/memstore"
)

func TestPasswordResetRoundTrip(t *testing.T) {
	te := newTestEngine(t)
	te.enroll(t)
	ctx := context.Background()

	ticket, err := te.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if ticket.Token == "" || !ticket.ExpiresAt.Equal(te.clock.Now().Add(30*time.Minute)) {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if rec := te.record(t, "user-1"); rec.PasswordResetToken == ticket.Token {
		t.Fatal("the raw token must never be stored")
	}

	if err := te.ValidateResetToken(ctx, testEmail, ticket.Token); err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if err := te.ResetPassword(ctx, testEmail, ticket.Token, testPassword2); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	rec := te.record(t, "user-1")
	if rec.PasswordHash != "plain$"+testPassword2 {
		t.Fatalf("expected new hash, got %q", rec.PasswordHash)
	}
	if rec.PasswordResetToken != "" || rec.PasswordResetTokenExpiry != nil {
		t.Fatal("expected token to be consumed")
	}
	history, err := te.store.LoadRecentHistory(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}

	err = te.ResetPassword(ctx, testEmail, ticket.Token, testPassword3)
	expectSentinel(t, err, ErrResetTokenNotFound)
}

func TestPasswordResetSkipsReuseCheck(t *testing.T) {
	te := newTestEngine(t)
	te.enroll(t)
	ctx := context.Background()

	ticket, err := te.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if err := te.ResetPassword(ctx, testEmail, ticket.Token, testPassword); err != nil {
		t.Fatalf("reset to the current password: %v", err)
	}
}

func TestPasswordResetRejectsWeakPassword(t *testing.T) {
	te := newTestEngine(t)
	te.enroll(t)
	ctx := context.Background()

	ticket, err := te.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	err = te.ResetPassword(ctx, testEmail, ticket.Token, "weak")
	expectSentinel(t, err, ErrPasswordPolicy)

	if err := te.ValidateResetToken(ctx, testEmail, ticket.Token); err != nil {
		t.Fatalf("a policy rejection must not consume the token: %v", err)
	}
}

func TestPasswordResetTokenFailures(t *testing.T) {
	te := newTestEngine(t)
	te.enroll(t)
	ctx := context.Background()

	err := te.ValidateResetToken(ctx, testEmail, "anything")
	expectSentinel(t, err, ErrResetTokenNotFound)

	first, err := te.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := te.RequestPasswordReset(ctx, testEmail)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	err = te.ValidateResetToken(ctx, testEmail, first.Token)
	expectSentinel(t, err, ErrResetTokenMismatch)
	if UserMessage(err) != "This password reset link is invalid." {
		t.Fatalf("unexpected message %q", UserMessage(err))
	}

	te.clock.Advance(31 * time.Minute)
	err = te.ResetPassword(ctx, testEmail, second.Token, testPassword2)
	expectSentinel(t, err, ErrResetTokenExpired)
	if KindOf(err) != KindExpired {
		t.Fatalf("expected expired kind, got %v", KindOf(err))
	}
}

func TestPasswordResetUnknownEmailIsIndistinguishable(t *testing.T) {
	sink := NewChannelSink(16)
	te := newAuditedTestEngine(t, sink)
	engine := te.Engine

	ctx := WithClientIP(context.Background(), "198.51.100.4")
	ticket, err := engine.RequestPasswordReset(ctx, "ghost@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if ticket.Token == "" || ticket.ExpiresAt.IsZero() {
		t.Fatalf("expected a ticket of the usual shape, got %+v", ticket)
	}

	if err := engine.ResetPassword(ctx, "ghost@example.com", ticket.Token, testPassword2); err == nil {
		t.Fatal("a ticket for an unknown email must never work")
	}

	events := collectEvents(sink, 1, time.Second)
	if len(events) != 1 {
		t.Fatalf("expected an audit event, got %d", len(events))
	}
	ev := events[0]
	if ev.Action != AuditActionResetUnknownAccount || ev.Outcome != AuditSecurityEvent {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.SourceAddress != "198.51.100.4" {
		t.Fatalf("expected client ip on the event, got %q", ev.SourceAddress)
	}
}

func TestPasswordResetRequestsAreThrottled(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memstore.New()
	engine, err := New().
		WithStorage(store).
		WithHasher(plainHasher{}).
		WithClock(newFakeClock()).
		WithRedis(rdb).
		WithLogger(zaptest.NewLogger(t)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.Enroll(ctx, EnrollRequest{Email: testEmail, Password: testPassword}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := engine.RequestPasswordReset(ctx, testEmail); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	_, err = engine.RequestPasswordReset(ctx, testEmail)
	expectSentinel(t, err, ErrResetRateLimited)

	mr.FastForward(16 * time.Minute)
	if _, err := engine.RequestPasswordReset(ctx, testEmail); err != nil {
		t.Fatalf("request after window: %v", err)
	}
}

func TestResetTokenTTL(t *testing.T) {
	te := newTestEngine(t, func(cfg *Config) {
		cfg.PasswordReset.TokenTTL = 10 * time.Minute
	})
	if te.ResetTokenTTL() != 10*time.Minute {
		t.Fatalf("unexpected ttl %v", te.ResetTokenTTL())
	}
}

type stuckSink struct {
	release chan struct{}
}

func (s stuckSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

func TestUnknownEmailResetsNeverWaitOnAudit(t *testing.T) {
	sink := stuckSink{release: make(chan struct{})}
	te := newAuditedTestEngine(t, sink, func(c *Config) {
		c.Audit.BufferSize = 1
		c.Audit.DropIfFull = true
	})
	t.Cleanup(func() { close(sink.release) })

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 40; i++ {
			if _, err := te.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("request reset: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reset requests stalled behind a stuck audit sink")
	}
	if te.AuditDropped() == 0 {
		t.Fatal("expected overflowing audit events to be dropped")
	}
}
