package goCred

import (
	"context"

	"github.com/MrEthical07/goCred/internal/audit"
)

// ValidateSession verifies a grant issued by VerifyLoginCode. The grant must
// carry the account's current session ID, so a newer login or a Logout
// invalidates older grants.
func (e *Engine) ValidateSession(ctx context.Context, grantToken string) (*SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.grants == nil {
		return nil, ErrGrantDisabled
	}

	claims, err := e.grants.Parse(grantToken, e.now())
	if err != nil {
		return nil, rejection(ErrSessionInvalid, "Your session is no longer valid. Please login again.", 0)
	}

	rec, err := e.loadRecord(ctx, "validate_session.load", claims.UID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, rejection(ErrSessionInvalid, "Your session is no longer valid. Please login again.", 0)
		}
		return nil, err
	}
	if rec.CurrentSessionID == "" || rec.CurrentSessionID != claims.SID {
		return nil, rejection(ErrSessionInvalid, "Your session is no longer valid. Please login again.", 0)
	}

	info := &SessionInfo{
		UserID:    rec.UserID,
		Email:     rec.Email,
		SessionID: claims.SID,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Logout ends sessionID for userID. It is a no-op when sessionID is no
// longer the current session.
func (e *Engine) Logout(ctx context.Context, userID, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	rec, err := e.loadRecord(ctx, "logout.load", userID)
	if err != nil {
		return err
	}
	if sessionID == "" || rec.CurrentSessionID != sessionID {
		return nil
	}

	rec.CurrentSessionID = ""
	rec.UpdatedAt = e.now()
	if err := e.storage.SaveCredentialRecord(ctx, rec); err != nil {
		return e.internal(ctx, "logout.save", userID, err)
	}
	e.emitAudit(ctx, AuditActionLogout, audit.OutcomeSuccess, rec.UserID, rec.Email, "session ended", nil, map[string]string{
		"session_id": sessionID,
	})
	return nil
}
