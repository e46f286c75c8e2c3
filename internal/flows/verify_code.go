package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/otp"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/policy"
)

// VerifyCodeResult is the flow-local second-factor response.
type VerifyCodeResult struct {
	Record         *credential.Record
	SessionID      string
	Warning        policy.WarningStatus
	Grant          string
	GrantExpiresAt time.Time
}

// VerifyCodeDeps captures second-factor dependencies.
type VerifyCodeDeps struct {
	Common

	Age policy.AgePolicy

	VerifyOTP    func(ctx context.Context, pendingID, code string, now time.Time) (otp.Result, *otp.Challenge, error)
	NewSessionID func() string
	// IssueGrant is optional. When nil no grant is minted.
	IssueGrant func(rec *credential.Record, sessionID string, now time.Time) (string, time.Time, error)
}

// RunVerifyLoginCode completes a login. Nothing on the record changes unless
// the code is Valid.
func RunVerifyLoginCode(ctx context.Context, pendingID, code string, deps VerifyCodeDeps) (*VerifyCodeResult, error) {
	if !deps.ready() || deps.VerifyOTP == nil || deps.NewSessionID == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	result, ch, err := deps.VerifyOTP(ctx, pendingID, code, now)
	if err != nil {
		return nil, deps.Internal(ctx, "verify_code.otp", "", err)
	}
	deps.Metrics.OTPVerification(result.String())

	userID, email := "", ""
	if ch != nil {
		userID, email = ch.UserID, ch.Subject
	}

	switch result {
	case otp.NotFound:
		deps.Metrics.Login(metrics.StageOTP, metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.OTPFailed, audit.OutcomeFailed, userID, email, "no active challenge", deps.Errors.OTPNotFound, nil)
		return nil, deps.Reject(deps.Errors.OTPNotFound, "Your verification session was not found. Please login again.", 0)
	case otp.Expired:
		deps.Metrics.Login(metrics.StageOTP, metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.OTPFailed, audit.OutcomeFailed, userID, email, "code expired", deps.Errors.OTPExpired, nil)
		return nil, deps.Reject(deps.Errors.OTPExpired, "Verification code has expired. Please login again.", 0)
	case otp.Mismatch:
		deps.Metrics.Login(metrics.StageOTP, metrics.OutcomeRejected)
		deps.EmitAudit(ctx, deps.Events.OTPFailed, audit.OutcomeFailed, userID, email, "code mismatch", deps.Errors.OTPMismatch, nil)
		return nil, deps.Reject(deps.Errors.OTPMismatch, "Invalid verification code.", 0)
	}

	rec, err := deps.LoadByID(ctx, ch.UserID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, deps.Reject(deps.Errors.AccountNotFound, "Account not found.", 0)
		}
		return nil, deps.Internal(ctx, "verify_code.load", ch.UserID, err)
	}

	sessionID := deps.NewSessionID()
	rec.LastLoginDate = credential.TimePtr(now)
	rec.LastLoginAddress = deps.ClientIP(ctx)
	rec.CurrentSessionID = sessionID

	warning := deps.Age.ShouldWarn(rec.PasswordLastChangedDate, now)
	if warning.Warn {
		rec.PasswordExpiryWarningDate = credential.TimePtr(now)
	}
	if err := deps.save(ctx, rec, now); err != nil {
		return nil, deps.Internal(ctx, "verify_code.save", ch.UserID, err)
	}

	out := &VerifyCodeResult{Record: rec, SessionID: sessionID, Warning: warning}
	if deps.IssueGrant != nil {
		out.Grant, out.GrantExpiresAt, err = deps.IssueGrant(rec, sessionID, now)
		if err != nil {
			return nil, deps.Internal(ctx, "verify_code.grant", ch.UserID, err)
		}
	}

	deps.Metrics.Login(metrics.StageOTP, metrics.OutcomeSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSucceeded, audit.OutcomeSuccess, rec.UserID, rec.Email, "login completed", nil, map[string]string{
		"session_id": sessionID,
	})
	return out, nil
}
