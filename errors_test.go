package goCred

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorKindsAndMessages(t *testing.T) {
	err := rejection(ErrAccountLocked, "Account is locked. Please try again in 2 minute(s).", 2*time.Minute)

	if !errors.Is(err, ErrAccountLocked) {
		t.Fatal("expected errors.Is to match the sentinel")
	}
	if KindOf(err) != KindValidationRejected {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	if RemainingOf(err) != 2*time.Minute {
		t.Fatalf("unexpected remaining %v", RemainingOf(err))
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if UserMessage(wrapped) != "Account is locked. Please try again in 2 minute(s)." {
		t.Fatalf("unexpected message %q", UserMessage(wrapped))
	}
}

func TestInternalFailureHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := internalFailure(cause)

	if KindOf(err) != KindInternalFailure {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	if !errors.Is(err, ErrInternal) || !errors.Is(err, cause) {
		t.Fatal("expected both ErrInternal and the cause in the chain")
	}
	if UserMessage(err) != GenericFailureMessage {
		t.Fatalf("cause leaked into the message: %q", UserMessage(err))
	}
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != KindInternalFailure || UserMessage(err) != GenericFailureMessage {
		t.Fatal("errors not produced by the engine must be treated as internal")
	}
	if UserMessage(nil) != "" || RemainingOf(nil) != 0 {
		t.Fatal("nil error must have no message or wait")
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		KindInternalFailure:    "internal_failure",
		KindValidationRejected: "validation_rejected",
		KindExpired:            "expired",
		KindMismatch:           "mismatch",
		KindNotFound:           "not_found",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Fatalf("%d: expected %q, got %q", kind, want, kind.String())
		}
	}
}
