package goCred

import (
	"context"
	"time"

	"github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/limiters"
)

// RequestPasswordReset issues a reset token for email. The response never
// reveals whether the account exists: unknown emails receive a ticket of the
// same shape that can never be redeemed.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	deps := flows.ResetRequestDeps{
		Common: e.common(),
		Issue:  e.resets.Issue,
		Decoy:  e.resets.Decoy,
	}
	if e.resetLimiter != nil {
		deps.CheckRate = e.resetLimiter.Check
		deps.RateLimited = limiters.ErrResetRateLimited
	}

	res, err := flows.RunRequestPasswordReset(ctx, email, deps)
	if err != nil {
		return nil, err
	}
	return &ResetTicket{Email: res.Email, Token: res.Token, ExpiresAt: res.ExpiresAt}, nil
}

// ValidateResetToken reports whether token can reset email's password
// without consuming it.
func (e *Engine) ValidateResetToken(ctx context.Context, email, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunValidateResetToken(ctx, email, token, flows.ValidateResetDeps{Common: e.common()})
}

// ResetPassword sets newPassword when token is valid for email. The token is
// consumed and the password clock restarts. Reuse of recent passwords is not
// checked on this path.
func (e *Engine) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunResetPassword(ctx, email, token, newPassword, flows.ResetPasswordDeps{
		Common:          e.common(),
		Strength:        e.strength,
		HashPassword:    e.hasher.Hash,
		ReplacePassword: e.replacePassword,
	})
}

// ResetTokenTTL returns the validity window of reset tokens.
func (e *Engine) ResetTokenTTL() time.Duration {
	if e == nil || e.resets == nil {
		return 0
	}
	return e.resets.TTL()
}
