package goCred

import (
	"io"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/internal/audit"
)

// AuditEvent is one record in the security audit trail.
type AuditEvent = audit.Event

// AuditOutcome classifies an AuditEvent.
type AuditOutcome = audit.Outcome

// AuditSink receives audit events. Emit must not block for long; the Engine
// delivers through an async dispatcher when auditing is enabled.
type AuditSink = audit.Sink

const (
	// AuditSuccess marks a completed operation.
	AuditSuccess = audit.OutcomeSuccess
	// AuditFailed marks an expected rejection.
	AuditFailed = audit.OutcomeFailed
	// AuditSecurityEvent marks activity worth an operator's attention.
	AuditSecurityEvent = audit.OutcomeSecurityEvent
)

// Audit actions emitted by the Engine.
const (
	AuditActionLoginFailed          = "login_failed"
	AuditActionLoginBlocked         = "login_blocked"
	AuditActionAccountLocked        = "account_locked"
	AuditActionAccountUnlocked      = "account_unlocked"
	AuditActionPasswordVerified     = "login_password_verified"
	AuditActionOTPFailed            = "login_otp_failed"
	AuditActionLoginSucceeded       = "login_success"
	AuditActionLogout               = "logout"
	AuditActionPasswordChanged      = "password_changed"
	AuditActionPasswordChangeFailed = "password_change_failed"
	AuditActionResetRequested       = "password_reset_requested"
	AuditActionResetUnknownAccount  = "password_reset_unknown_account"
	AuditActionResetRateLimited     = "password_reset_rate_limited"
	AuditActionResetFailed          = "password_reset_failed"
	AuditActionResetCompleted       = "password_reset_completed"
	AuditActionAccountEnrolled      = "account_enrolled"
	AuditActionPasswordExpired      = "password_expired"
)

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events on a channel, mostly for tests.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON document per event.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink writes events as structured log lines.
type ZapSink = audit.ZapSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapSink returns a sink logging through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}
