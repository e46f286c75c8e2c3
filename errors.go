package goCred

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures returned by the Engine.
type ErrorKind int

const (
	// KindInternalFailure covers storage, hasher, cache and other unexpected failures.
	KindInternalFailure ErrorKind = iota
	// KindValidationRejected covers policy rejections: lockout, minimum age, reuse, strength.
	KindValidationRejected
	// KindExpired covers expired codes and reset tokens.
	KindExpired
	// KindMismatch covers wrong passwords, codes and tokens.
	KindMismatch
	// KindNotFound covers missing challenges, tokens and accounts.
	KindNotFound
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidationRejected:
		return "validation_rejected"
	case KindExpired:
		return "expired"
	case KindMismatch:
		return "mismatch"
	case KindNotFound:
		return "not_found"
	default:
		return "internal_failure"
	}
}

// GenericFailureMessage is shown for every internal failure.
const GenericFailureMessage = "Something went wrong. Please try again."

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountNotFound is returned when an operation names an unknown user.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by Enroll for a taken email or user ID.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidEmail is returned by Enroll for a malformed address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordTooRecent is returned when the minimum password age has not elapsed.
	ErrPasswordTooRecent = errors.New("password changed too recently")
	// ErrPasswordReused is returned when the new password matches the current or a recent one.
	ErrPasswordReused = errors.New("password reused")
	// ErrPasswordPolicy is returned when the new password fails the strength rules.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrOTPExpired is returned for a verification code past its expiry.
	ErrOTPExpired = errors.New("verification code expired")
	// ErrOTPMismatch is returned for a wrong verification code.
	ErrOTPMismatch = errors.New("verification code mismatch")
	// ErrOTPNotFound is returned when no challenge exists for the pending login.
	ErrOTPNotFound = errors.New("verification challenge not found")
	// ErrResetTokenExpired is returned for a reset token past its expiry.
	ErrResetTokenExpired = errors.New("reset token expired")
	// ErrResetTokenMismatch is returned for a reset token that does not match.
	ErrResetTokenMismatch = errors.New("reset token mismatch")
	// ErrResetTokenNotFound is returned when no reset token is outstanding.
	ErrResetTokenNotFound = errors.New("reset token not found")
	// ErrResetRateLimited is returned when reset requests are throttled.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrSessionInvalid is returned by ValidateSession for a bad or superseded grant.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrGrantDisabled is returned by ValidateSession when no grant manager is configured.
	ErrGrantDisabled = errors.New("session grants disabled")
	// ErrCodecNotConfigured is returned when protected fields are used without a codec key.
	ErrCodecNotConfigured = errors.New("codec not configured")
	// ErrInternal wraps every internal failure.
	ErrInternal = errors.New("internal failure")
	// ErrEngineNotReady is returned by operations on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

var sentinelKinds = map[error]ErrorKind{
	ErrInvalidCredentials: KindMismatch,
	ErrAccountLocked:      KindValidationRejected,
	ErrAccountNotFound:    KindNotFound,
	ErrAccountExists:      KindValidationRejected,
	ErrInvalidEmail:       KindValidationRejected,
	ErrPasswordTooRecent:  KindValidationRejected,
	ErrPasswordReused:     KindValidationRejected,
	ErrPasswordPolicy:     KindValidationRejected,
	ErrOTPExpired:         KindExpired,
	ErrOTPMismatch:        KindMismatch,
	ErrOTPNotFound:        KindNotFound,
	ErrResetTokenExpired:  KindExpired,
	ErrResetTokenMismatch: KindMismatch,
	ErrResetTokenNotFound: KindNotFound,
	ErrResetRateLimited:   KindValidationRejected,
	ErrSessionInvalid:     KindMismatch,
}

// Error is the failure type returned by Engine operations.
//
// Message is safe to display. Remaining is set for lockouts and minimum-age
// rejections. Err is the matching sentinel, so errors.Is works against the
// package-level Err values.
type Error struct {
	Kind      ErrorKind
	Err       error
	Message   string
	Remaining time.Duration
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap returns the wrapped sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

func rejection(sentinel error, message string, remaining time.Duration) error {
	kind, ok := sentinelKinds[sentinel]
	if !ok {
		kind = KindInternalFailure
	}
	return &Error{Kind: kind, Err: sentinel, Message: message, Remaining: remaining}
}

func internalFailure(cause error) error {
	return &Error{
		Kind:    KindInternalFailure,
		Err:     fmt.Errorf("%w: %w", ErrInternal, cause),
		Message: GenericFailureMessage,
	}
}

// KindOf returns the kind of err. Errors not produced by the Engine are
// internal failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalFailure
}

// UserMessage returns the display message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return GenericFailureMessage
}

// RemainingOf returns the wait time carried by err, or zero.
func RemainingOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.Remaining
	}
	return 0
}
