package goCred

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditEventsCarryRequestContext(t *testing.T) {
	sink := NewChannelSink(32)
	te := newAuditedTestEngine(t, sink)
	te.enroll(t)

	ctx := WithUserAgent(WithClientIP(context.Background(), "192.0.2.10"), "curl/8.0")
	_, err := te.Login(ctx, testEmail, "Wr0ng!Password")
	expectSentinel(t, err, ErrInvalidCredentials)

	var failed *AuditEvent
	for _, ev := range collectEvents(sink, 2, time.Second) {
		if ev.Action == AuditActionLoginFailed {
			failed = &ev
		}
	}
	if failed == nil {
		t.Fatal("expected a login_failed event")
	}
	if failed.UserID != "user-1" || failed.Outcome != AuditFailed {
		t.Fatalf("unexpected event: %+v", failed)
	}
	if failed.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected error code %q", failed.Error)
	}
	if failed.SourceAddress != "192.0.2.10" || failed.UserAgent != "curl/8.0" {
		t.Fatalf("request context missing: %+v", failed)
	}
	if !failed.Timestamp.Equal(te.clock.Now()) {
		t.Fatalf("expected the engine clock on events, got %v", failed.Timestamp)
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{rejection(ErrAccountLocked, "", 0), auditErrAccountLocked},
		{rejection(ErrOTPNotFound, "", 0), auditErrCodeInvalid},
		{rejection(ErrResetTokenExpired, "", 0), auditErrTokenExpired},
		{internalFailure(context.Canceled), auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.want, got)
		}
	}
}

func TestZapSinkWritesEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	te := newAuditedTestEngine(t, NewZapSink(zap.New(core)))
	te.enroll(t)
	te.Close()

	entries := logs.FilterField(zap.String("action", AuditActionAccountEnrolled)).All()
	if len(entries) != 1 {
		t.Fatalf("expected one enrollment log line, got %d", len(entries))
	}
	if entries[0].LoggerName != "audit" {
		t.Fatalf("unexpected logger name %q", entries[0].LoggerName)
	}
}
