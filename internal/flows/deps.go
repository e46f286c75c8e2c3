package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/policy"
)

const genericCredentialsMessage = "Invalid email or password"

// Events carries the audit action names emitted by the flows.
type Events struct {
	LoginFailed          string
	LoginBlocked         string
	AccountLocked        string
	PasswordVerified     string
	OTPFailed            string
	LoginSucceeded       string
	PasswordChanged      string
	PasswordChangeFailed string
	ResetRequested       string
	ResetUnknownAccount  string
	ResetRateLimited     string
	ResetFailed          string
	ResetCompleted       string
	AccountEnrolled      string
}

// Errors carries the host-level sentinel errors used by the flows.
type Errors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountLocked      error
	AccountNotFound    error
	AccountExists      error
	InvalidEmail       error
	PasswordTooRecent  error
	PasswordReused     error
	PasswordPolicy     error
	OTPExpired         error
	OTPMismatch        error
	OTPNotFound        error
	ResetTokenExpired  error
	ResetTokenMismatch error
	ResetTokenNotFound error
	ResetRateLimited   error
	CodecNotConfigured error
}

// Common carries the collaborators shared by every flow.
type Common struct {
	Now         func() time.Time
	ClientIP    func(context.Context) string
	LoadByID    func(context.Context, string) (*credential.Record, error)
	LoadByEmail func(context.Context, string) (*credential.Record, error)
	Save        func(context.Context, *credential.Record) error

	// EmitAudit records one audit event. meta may be nil.
	EmitAudit func(ctx context.Context, action string, outcome audit.Outcome, userID, email, detail string, err error, meta map[string]string)
	// Reject builds the expected-failure error returned to callers.
	Reject func(sentinel error, message string, remaining time.Duration) error
	// Internal logs cause against userID, which may be empty, and returns the
	// generic internal failure.
	Internal func(ctx context.Context, op, userID string, cause error) error

	Metrics *metrics.Metrics
	Events  Events
	Errors  Errors
}

func (c *Common) ready() bool {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.ClientIP == nil {
		c.ClientIP = func(context.Context) string { return "" }
	}
	if c.EmitAudit == nil {
		c.EmitAudit = func(context.Context, string, audit.Outcome, string, string, string, error, map[string]string) {}
	}
	if c.Reject == nil {
		c.Reject = func(sentinel error, _ string, _ time.Duration) error { return sentinel }
	}
	if c.Internal == nil {
		c.Internal = func(_ context.Context, op, _ string, cause error) error { return errors.Join(errors.New(op), cause) }
	}
	return c.LoadByID != nil && c.LoadByEmail != nil && c.Save != nil
}

func (c *Common) save(ctx context.Context, rec *credential.Record, now time.Time) error {
	rec.UpdatedAt = now.UTC()
	return c.Save(ctx, rec)
}

// replacePassword swaps in hash and hands the prior hash to replace.
func replacePassword(ctx context.Context, rec *credential.Record, hash string, now time.Time, replace func(context.Context, *credential.Record, credential.HistoryEntry) error) error {
	entry := credential.HistoryEntry{
		UserID:       rec.UserID,
		PasswordHash: rec.PasswordHash,
		CreatedDate:  now.UTC(),
	}
	rec.PasswordHash = hash
	rec.UpdatedAt = now.UTC()
	return replace(ctx, rec, entry)
}

func strengthMessage(err error) string {
	var weak *policy.WeakPasswordError
	if errors.As(err, &weak) {
		return weak.Reason
	}
	return "Password does not meet the strength requirements."
}
