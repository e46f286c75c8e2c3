package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/policy"
)

// ChangePasswordDeps captures password change dependencies.
type ChangePasswordDeps struct {
	Common

	Age      policy.AgePolicy
	Strength policy.StrengthPolicy
	History  policy.HistoryGuard

	VerifyPassword  func(plaintext, encodedHash string) (bool, error)
	HashPassword    func(plaintext string) (string, error)
	LoadHistory     func(ctx context.Context, userID string, limit int) ([]credential.HistoryEntry, error)
	ReplacePassword func(ctx context.Context, rec *credential.Record, entry credential.HistoryEntry) error
}

// RunChangePassword replaces the password of userID after the minimum age,
// current password, strength and reuse checks pass, in that order.
func RunChangePassword(ctx context.Context, userID, current, next string, deps ChangePasswordDeps) error {
	if !deps.ready() || deps.VerifyPassword == nil || deps.HashPassword == nil ||
		deps.LoadHistory == nil || deps.ReplacePassword == nil {
		return deps.Errors.EngineNotReady
	}

	now := deps.Now()
	rec, err := deps.LoadByID(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return deps.Reject(deps.Errors.AccountNotFound, "Account not found.", 0)
		}
		return deps.Internal(ctx, "change_password.load", userID, err)
	}

	reject := func(sentinel error, detail, message string) error {
		deps.Metrics.PasswordChange(metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailed, audit.OutcomeFailed, rec.UserID, rec.Email, detail, sentinel, nil)
		return deps.Reject(sentinel, message, 0)
	}

	if decision := deps.Age.CanChangePassword(rec.PasswordLastChangedDate, now); !decision.Allowed {
		deps.Metrics.PasswordChange(metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailed, audit.OutcomeFailed, rec.UserID, rec.Email, "minimum age not reached", deps.Errors.PasswordTooRecent, nil)
		return deps.Reject(deps.Errors.PasswordTooRecent, decision.Message(), decision.Remaining)
	}

	if ok, err := deps.VerifyPassword(current, rec.PasswordHash); err != nil || !ok {
		return reject(deps.Errors.InvalidCredentials, "current password mismatch", "Current password is incorrect.")
	}

	if err := deps.Strength.Check(next); err != nil {
		message := strengthMessage(err)
		return reject(deps.Errors.PasswordPolicy, "strength rules", message)
	}

	if same, err := deps.VerifyPassword(next, rec.PasswordHash); err == nil && same {
		return reject(deps.Errors.PasswordReused, "matches current password", "New password must be different from your current password.")
	}

	entries, err := deps.LoadHistory(ctx, rec.UserID, deps.History.Depth())
	if err != nil {
		deps.Metrics.PasswordChange(metrics.OutcomeError)
		return deps.Internal(ctx, "change_password.history", userID, err)
	}
	if deps.History.IsReused(next, entries, deps.VerifyPassword) {
		return reject(deps.Errors.PasswordReused, "matches password history",
			fmt.Sprintf("You cannot reuse any of your last %d passwords.", deps.History.Depth()))
	}

	hash, err := deps.HashPassword(next)
	if err != nil {
		deps.Metrics.PasswordChange(metrics.OutcomeError)
		return deps.Internal(ctx, "change_password.hash", userID, err)
	}

	rec.PasswordLastChangedDate = credential.TimePtr(now)
	rec.MustChangePassword = false
	rec.PasswordExpiryWarningDate = nil
	if err := replacePassword(ctx, rec, hash, now, deps.ReplacePassword); err != nil {
		deps.Metrics.PasswordChange(metrics.OutcomeError)
		return deps.Internal(ctx, "change_password.replace", userID, err)
	}

	deps.Metrics.PasswordChange(metrics.OutcomeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChanged, audit.OutcomeSuccess, rec.UserID, rec.Email, "password changed", nil, nil)
	return nil
}
