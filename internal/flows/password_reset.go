package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/reset"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/policy"
)

const invalidResetMessage = "This password reset link is invalid."

// ResetRequestResult is the flow-local reset ticket. Decoy is never exposed
// outside the engine.
type ResetRequestResult struct {
	Email     string
	Token     string
	ExpiresAt time.Time
	Decoy     bool
}

// ResetRequestDeps captures reset request dependencies.
type ResetRequestDeps struct {
	Common

	Issue func(rec *credential.Record, now time.Time) (string, time.Time, error)
	Decoy func(now time.Time) (string, time.Time, error)
	// CheckRate is optional. A non-nil error equal to RateLimited throttles
	// the request; any other error is internal.
	CheckRate   func(ctx context.Context, identifier, ip string) error
	RateLimited error
}

// RunRequestPasswordReset issues a reset token for email. Unknown accounts
// receive a decoy with the same shape.
func RunRequestPasswordReset(ctx context.Context, email string, deps ResetRequestDeps) (*ResetRequestResult, error) {
	if !deps.ready() || deps.Issue == nil || deps.Decoy == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	email = credential.NormalizeEmail(email)

	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, email, deps.ClientIP(ctx)); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				deps.Metrics.PasswordReset(metrics.StageRequest, metrics.OutcomeRejected)
				deps.EmitAudit(ctx, deps.Events.ResetRateLimited, audit.OutcomeSecurityEvent, "", email, "reset request throttled", deps.Errors.ResetRateLimited, nil)
				return nil, deps.Reject(deps.Errors.ResetRateLimited, "Too many password reset requests. Please try again later.", 0)
			}
			return nil, deps.Internal(ctx, "reset_request.rate", "", err)
		}
	}

	rec, err := deps.LoadByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			return nil, deps.Internal(ctx, "reset_request.load", "", err)
		}
		token, expires, err := deps.Decoy(now)
		if err != nil {
			return nil, deps.Internal(ctx, "reset_request.decoy", "", err)
		}
		deps.Metrics.PasswordReset(metrics.StageRequest, metrics.OutcomeSuccess)
		deps.EmitAudit(ctx, deps.Events.ResetUnknownAccount, audit.OutcomeSecurityEvent, "", email, "reset requested for unknown account", nil, nil)
		return &ResetRequestResult{Email: email, Token: token, ExpiresAt: expires, Decoy: true}, nil
	}

	token, expires, err := deps.Issue(rec, now)
	if err != nil {
		return nil, deps.Internal(ctx, "reset_request.issue", rec.UserID, err)
	}
	if err := deps.save(ctx, rec, now); err != nil {
		return nil, deps.Internal(ctx, "reset_request.save", rec.UserID, err)
	}

	deps.Metrics.PasswordReset(metrics.StageRequest, metrics.OutcomeSuccess)
	deps.EmitAudit(ctx, deps.Events.ResetRequested, audit.OutcomeSuccess, rec.UserID, email, "reset token issued", nil, nil)
	return &ResetRequestResult{Email: email, Token: token, ExpiresAt: expires}, nil
}

// ValidateResetDeps captures read-only reset token checks.
type ValidateResetDeps struct {
	Common
}

// RunValidateResetToken reports whether token can reset email's password.
// It never mutates the record.
func RunValidateResetToken(ctx context.Context, email, token string, deps ValidateResetDeps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	_, err := loadResetRecord(ctx, &deps.Common, email, token, deps.Now())
	return err
}

// ResetPasswordDeps captures reset completion dependencies.
type ResetPasswordDeps struct {
	Common

	Strength policy.StrengthPolicy

	HashPassword    func(plaintext string) (string, error)
	ReplacePassword func(ctx context.Context, rec *credential.Record, entry credential.HistoryEntry) error
}

// RunResetPassword sets newPassword for email when token is valid and
// consumes the token.
func RunResetPassword(ctx context.Context, email, token, newPassword string, deps ResetPasswordDeps) error {
	if !deps.ready() || deps.HashPassword == nil || deps.ReplacePassword == nil {
		return deps.Errors.EngineNotReady
	}

	now := deps.Now()
	rec, err := loadResetRecord(ctx, &deps.Common, email, token, now)
	if err != nil {
		return err
	}

	if err := deps.Strength.Check(newPassword); err != nil {
		message := strengthMessage(err)
		deps.Metrics.PasswordReset(metrics.StageConsume, metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.ResetFailed, audit.OutcomeFailed, rec.UserID, rec.Email, "strength rules", deps.Errors.PasswordPolicy, nil)
		return deps.Reject(deps.Errors.PasswordPolicy, message, 0)
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.Metrics.PasswordReset(metrics.StageConsume, metrics.OutcomeError)
		return deps.Internal(ctx, "reset_password.hash", rec.UserID, err)
	}

	reset.Consume(rec, now)
	if err := replacePassword(ctx, rec, hash, now, deps.ReplacePassword); err != nil {
		deps.Metrics.PasswordReset(metrics.StageConsume, metrics.OutcomeError)
		return deps.Internal(ctx, "reset_password.replace", rec.UserID, err)
	}

	deps.Metrics.PasswordReset(metrics.StageConsume, metrics.OutcomeSuccess)
	deps.EmitAudit(ctx, deps.Events.ResetCompleted, audit.OutcomeSuccess, rec.UserID, rec.Email, "password reset", nil, nil)
	return nil
}

func loadResetRecord(ctx context.Context, deps *Common, email, token string, now time.Time) (*credential.Record, error) {
	email = credential.NormalizeEmail(email)
	rec, err := deps.LoadByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			return nil, deps.Internal(ctx, "reset.load", "", err)
		}
		rec = nil
	}

	var sentinel error
	var message string
	switch reset.Validate(rec, token, now) {
	case reset.Valid:
		return rec, nil
	case reset.Expired:
		sentinel, message = deps.Errors.ResetTokenExpired, "This password reset link has expired. Please request a new one."
	case reset.Mismatch:
		sentinel, message = deps.Errors.ResetTokenMismatch, invalidResetMessage
	default:
		sentinel, message = deps.Errors.ResetTokenNotFound, invalidResetMessage
	}

	userID := ""
	if rec != nil {
		userID = rec.UserID
	}
	deps.Metrics.PasswordReset(metrics.StageConsume, metrics.OutcomeRejected)
	deps.EmitAudit(ctx, deps.Events.ResetFailed, audit.OutcomeFailed, userID, email, "reset token rejected", sentinel, nil)
	return nil, deps.Reject(sentinel, message, 0)
}
