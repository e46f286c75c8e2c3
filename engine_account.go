package goCred

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/codec"
	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
)

// PasswordStatus reports the age and lock state of userID's password. When
// the password has expired the record is flagged MustChangePassword.
func (e *Engine) PasswordStatus(ctx context.Context, userID string) (*PasswordStatus, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	rec, err := e.loadRecord(ctx, "password_status.load", userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	expiry := e.age.IsExpired(rec.PasswordLastChangedDate, now)
	warning := e.age.ShouldWarn(rec.PasswordLastChangedDate, now)
	change := e.age.CanChangePassword(rec.PasswordLastChangedDate, now)
	lock := e.lockout.CheckLocked(rec, now)

	if expiry.Expired && !rec.MustChangePassword {
		rec.MustChangePassword = true
		rec.UpdatedAt = now
		if err := e.storage.SaveCredentialRecord(ctx, rec); err != nil {
			return nil, e.internal(ctx, "password_status.save", userID, err)
		}
		e.emitAudit(ctx, AuditActionPasswordExpired, audit.OutcomeSecurityEvent, rec.UserID, rec.Email, "password expired", nil, nil)
	}

	return &PasswordStatus{
		LastChanged:        rec.PasswordLastChangedDate,
		Expired:            expiry.Expired,
		ExpiresIn:          expiry.Remaining,
		Warn:               warning.Warn,
		CanChange:          change.Allowed,
		CanChangeIn:        change.Remaining,
		MustChangePassword: rec.MustChangePassword,
		Locked:             lock.Locked,
		LockedFor:          lock.Remaining,
	}, nil
}

// UnlockAccount clears any lockout and the failure count of userID.
func (e *Engine) UnlockAccount(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	rec, err := e.loadRecord(ctx, "unlock.load", userID)
	if err != nil {
		return err
	}
	if rec.LockoutEnd == nil && rec.FailedAccessCount == 0 {
		return nil
	}

	e.lockout.RecordSuccess(rec)
	rec.UpdatedAt = e.now()
	if err := e.storage.SaveCredentialRecord(ctx, rec); err != nil {
		return e.internal(ctx, "unlock.save", userID, err)
	}
	e.emitAudit(ctx, AuditActionAccountUnlocked, audit.OutcomeSuccess, rec.UserID, rec.Email, "administrative unlock", nil, nil)
	return nil
}

// ProtectedField returns the decrypted value of a protected field. A value
// that cannot be decrypted is returned as codec.Placeholder, not as an error.
// Missing fields return an empty string.
func (e *Engine) ProtectedField(ctx context.Context, userID, name string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if e.codec == nil {
		return "", rejection(ErrCodecNotConfigured, GenericFailureMessage, 0)
	}

	rec, err := e.loadRecord(ctx, "protected_field.load", userID)
	if err != nil {
		return "", err
	}
	sealed, ok := rec.ProtectedFields[name]
	if !ok {
		return "", nil
	}

	plain, err := e.codec.Decrypt(sealed)
	if err != nil {
		e.metrics.DecryptFailure()
		e.logger.Warn("protected field decryption failed",
			zap.String("user_id", userID),
			zap.String("field", name),
			zap.Error(err),
		)
		return codec.Placeholder, nil
	}
	return plain, nil
}

// SetProtectedField encrypts value and stores it under name. An empty value
// removes the field.
func (e *Engine) SetProtectedField(ctx context.Context, userID, name, value string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.codec == nil {
		return rejection(ErrCodecNotConfigured, GenericFailureMessage, 0)
	}

	rec, err := e.loadRecord(ctx, "protected_field.load", userID)
	if err != nil {
		return err
	}
	if value == "" {
		delete(rec.ProtectedFields, name)
	} else {
		sealed, err := e.codec.Encrypt(value)
		if err != nil {
			return e.internal(ctx, "protected_field.encrypt", userID, err)
		}
		if rec.ProtectedFields == nil {
			rec.ProtectedFields = make(map[string]string, 1)
		}
		rec.ProtectedFields[name] = sealed
	}

	rec.UpdatedAt = e.now()
	if err := e.storage.SaveCredentialRecord(ctx, rec); err != nil {
		return e.internal(ctx, "protected_field.save", userID, err)
	}
	return nil
}

func (e *Engine) loadRecord(ctx context.Context, op, userID string) (*credential.Record, error) {
	rec, err := e.storage.LoadCredentialRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, rejection(ErrAccountNotFound, "Account not found.", 0)
		}
		return nil, e.internal(ctx, op, userID, err)
	}
	return rec, nil
}
