package goCred

import (
	"context"
	"time"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/flows"
)

// Login checks email and password. On success it issues a one-time code and
// returns the pending challenge; no session exists until VerifyLoginCode
// accepts the code.
//
// Unknown emails and wrong passwords both fail with ErrInvalidCredentials and
// the message "Invalid email or password". Repeated failures lock the account
// and fail with ErrAccountLocked; the error carries the remaining lock time.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginChallenge, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	deps := flows.LoginDeps{
		Common:         e.common(),
		Lockout:        e.lockout,
		Age:            e.age,
		VerifyPassword: e.hasher.Verify,
		DecoyVerify:    e.decoyVerify,
		HashPassword:   e.hasher.Hash,
		IssueOTP:       e.otp.Issue,
	}
	if e.upgrader != nil {
		deps.NeedsUpgrade = e.upgrader.NeedsUpgrade
	}

	res, err := flows.RunLogin(ctx, email, password, deps)
	if err != nil {
		return nil, err
	}
	return &LoginChallenge{
		PendingID:          res.PendingID,
		Code:               res.Code,
		ExpiresAt:          res.ExpiresAt,
		MustChangePassword: res.MustChangePassword,
	}, nil
}

// VerifyLoginCode completes a login started by Login. A code verifies at most
// once; expired codes are discarded and the user must log in again.
func (e *Engine) VerifyLoginCode(ctx context.Context, pendingID, code string) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	deps := flows.VerifyCodeDeps{
		Common:       e.common(),
		Age:          e.age,
		VerifyOTP:    e.otp.Verify,
		NewSessionID: newUserID,
	}
	if e.grants != nil {
		deps.IssueGrant = func(rec *credential.Record, sessionID string, now time.Time) (string, time.Time, error) {
			return e.grants.Issue(rec.UserID, rec.Email, sessionID, now)
		}
	}

	res, err := flows.RunVerifyLoginCode(ctx, pendingID, code, deps)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:             res.Record.UserID,
		Email:              res.Record.Email,
		SessionID:          res.SessionID,
		Grant:              res.Grant,
		GrantExpiresAt:     res.GrantExpiresAt,
		ExpiryWarning:      res.Warning.Warn,
		ExpiresIn:          res.Warning.Remaining,
		MustChangePassword: res.Record.MustChangePassword,
	}, nil
}
