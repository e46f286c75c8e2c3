package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/otp"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/policy"
)

// LoginResult is the flow-local first-factor response.
type LoginResult struct {
	UserID             string
	PendingID          string
	Code               string
	ExpiresAt          time.Time
	MustChangePassword bool
}

// LoginDeps captures first-factor login dependencies.
type LoginDeps struct {
	Common

	Lockout policy.LockoutPolicy
	Age     policy.AgePolicy

	VerifyPassword func(plaintext, encodedHash string) (bool, error)
	// DecoyVerify spends one hash verification for unknown accounts.
	DecoyVerify  func(plaintext string)
	NeedsUpgrade func(encodedHash string) (bool, error)
	HashPassword func(plaintext string) (string, error)
	IssueOTP     func(ctx context.Context, subject, userID string, now time.Time) (otp.Challenge, error)
}

// RunLogin checks the password for email and, when it matches, issues the
// second-factor challenge.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if !deps.ready() || deps.VerifyPassword == nil || deps.IssueOTP == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.DecoyVerify == nil {
		deps.DecoyVerify = func(string) {}
	}

	now := deps.Now()
	email = credential.NormalizeEmail(email)

	rec, err := deps.LoadByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			return nil, deps.Internal(ctx, "login.load", "", err)
		}
		deps.DecoyVerify(password)
		deps.Metrics.Login(metrics.StageLogin, metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.LoginFailed, audit.OutcomeFailed, "", email, "unknown account", deps.Errors.InvalidCredentials, nil)
		return nil, deps.Reject(deps.Errors.InvalidCredentials, genericCredentialsMessage, 0)
	}

	status, changed := deps.Lockout.Evaluate(rec, now)
	if status.Locked {
		deps.Metrics.Login(metrics.StageLogin, metrics.OutcomeLocked)
		deps.EmitAudit(ctx, deps.Events.LoginBlocked, audit.OutcomeFailed, rec.UserID, email, "account locked", deps.Errors.AccountLocked, map[string]string{
			"minutes_remaining": strconv.Itoa(status.MinutesRemaining),
		})
		return nil, deps.Reject(deps.Errors.AccountLocked, status.Message(), status.Remaining)
	}
	if changed {
		if err := deps.save(ctx, rec, now); err != nil {
			return nil, deps.Internal(ctx, "login.unlock", rec.UserID, err)
		}
	}

	ok, err := deps.VerifyPassword(password, rec.PasswordHash)
	if err != nil || !ok {
		lock := deps.Lockout.RecordFailure(rec, now)
		if err := deps.save(ctx, rec, now); err != nil {
			return nil, deps.Internal(ctx, "login.record_failure", rec.UserID, err)
		}
		if lock.Locked {
			deps.Metrics.Lockout()
			deps.Metrics.Login(metrics.StageLogin, metrics.OutcomeLocked)
			deps.EmitAudit(ctx, deps.Events.AccountLocked, audit.OutcomeSecurityEvent, rec.UserID, email, "too many failed attempts", deps.Errors.AccountLocked, map[string]string{
				"failed_attempts": strconv.Itoa(rec.FailedAccessCount),
			})
			return nil, deps.Reject(deps.Errors.AccountLocked, lock.Message(), lock.Remaining)
		}
		deps.Metrics.Login(metrics.StageLogin, metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.LoginFailed, audit.OutcomeFailed, rec.UserID, email, "invalid password", deps.Errors.InvalidCredentials, map[string]string{
			"failed_attempts": strconv.Itoa(rec.FailedAccessCount),
		})
		return nil, deps.Reject(deps.Errors.InvalidCredentials, genericCredentialsMessage, 0)
	}

	deps.Lockout.RecordSuccess(rec)
	if deps.Age.IsExpired(rec.PasswordLastChangedDate, now).Expired {
		rec.MustChangePassword = true
	}
	upgradeHash(rec, password, deps)
	if err := deps.save(ctx, rec, now); err != nil {
		return nil, deps.Internal(ctx, "login.save", rec.UserID, err)
	}

	ch, err := deps.IssueOTP(ctx, email, rec.UserID, now)
	if err != nil {
		return nil, deps.Internal(ctx, "login.issue_otp", rec.UserID, err)
	}

	deps.Metrics.Login(metrics.StageLogin, metrics.OutcomeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordVerified, audit.OutcomeSuccess, rec.UserID, email, "verification code issued", nil, nil)

	return &LoginResult{
		UserID:             rec.UserID,
		PendingID:          ch.PendingID,
		Code:               ch.Code,
		ExpiresAt:          ch.ExpiresAt,
		MustChangePassword: rec.MustChangePassword,
	}, nil
}

// upgradeHash rehashes password when the stored hash uses outdated
// parameters. Failures leave the old hash in place.
func upgradeHash(rec *credential.Record, password string, deps LoginDeps) {
	if deps.NeedsUpgrade == nil || deps.HashPassword == nil {
		return
	}
	upgrade, err := deps.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	if hash, err := deps.HashPassword(password); err == nil {
		rec.PasswordHash = hash
	}
}
