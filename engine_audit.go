package goCred

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/flows"
)

// AuditErrorCode is the stable error label attached to failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrPasswordTooRecent  AuditErrorCode = "password_too_recent"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenInvalid       AuditErrorCode = "token_invalid"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	action string,
	outcome audit.Outcome,
	userID string,
	email string,
	detail string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:     e.clock.Now().UTC(),
		Action:        action,
		UserID:        userID,
		Email:         email,
		Detail:        detail,
		SourceAddress: clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		Outcome:       outcome,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) onAuditFailure(event AuditEvent, err error) {
	if errors.Is(err, audit.ErrDropped) {
		e.logger.Warn("audit event dropped",
			zap.String("action", event.Action),
			zap.String("outcome", string(event.Outcome)),
			zap.String("user_id", event.UserID),
		)
		return
	}
	e.logger.Warn("audit sink failed",
		zap.String("action", event.Action),
		zap.String("user_id", event.UserID),
		zap.Error(err),
	)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordTooRecent):
		return auditErrPasswordTooRecent
	case errors.Is(err, ErrPasswordPolicy), errors.Is(err, ErrInvalidEmail):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReused):
		return auditErrPasswordReuse
	case errors.Is(err, ErrOTPExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrOTPMismatch), errors.Is(err, ErrOTPNotFound):
		return auditErrCodeInvalid
	case errors.Is(err, ErrResetTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrResetTokenMismatch), errors.Is(err, ErrResetTokenNotFound), errors.Is(err, ErrSessionInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrResetRateLimited):
		return auditErrRateLimited
	default:
		return auditErrInternal
	}
}

func (e *Engine) flowEvents() flows.Events {
	return flows.Events{
		LoginFailed:          AuditActionLoginFailed,
		LoginBlocked:         AuditActionLoginBlocked,
		AccountLocked:        AuditActionAccountLocked,
		PasswordVerified:     AuditActionPasswordVerified,
		OTPFailed:            AuditActionOTPFailed,
		LoginSucceeded:       AuditActionLoginSucceeded,
		PasswordChanged:      AuditActionPasswordChanged,
		PasswordChangeFailed: AuditActionPasswordChangeFailed,
		ResetRequested:       AuditActionResetRequested,
		ResetUnknownAccount:  AuditActionResetUnknownAccount,
		ResetRateLimited:     AuditActionResetRateLimited,
		ResetFailed:          AuditActionResetFailed,
		ResetCompleted:       AuditActionResetCompleted,
		AccountEnrolled:      AuditActionAccountEnrolled,
	}
}

func flowErrors() flows.Errors {
	return flows.Errors{
		EngineNotReady:     ErrEngineNotReady,
		InvalidCredentials: ErrInvalidCredentials,
		AccountLocked:      ErrAccountLocked,
		AccountNotFound:    ErrAccountNotFound,
		AccountExists:      ErrAccountExists,
		InvalidEmail:       ErrInvalidEmail,
		PasswordTooRecent:  ErrPasswordTooRecent,
		PasswordReused:     ErrPasswordReused,
		PasswordPolicy:     ErrPasswordPolicy,
		OTPExpired:         ErrOTPExpired,
		OTPMismatch:        ErrOTPMismatch,
		OTPNotFound:        ErrOTPNotFound,
		ResetTokenExpired:  ErrResetTokenExpired,
		ResetTokenMismatch: ErrResetTokenMismatch,
		ResetTokenNotFound: ErrResetTokenNotFound,
		ResetRateLimited:   ErrResetRateLimited,
		CodecNotConfigured: ErrCodecNotConfigured,
	}
}
