package goCred

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/codec"
	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/grant"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/limiters"
	"github.com/MrEthical07/goCred/internal/otp"
	"github.com/MrEthical07/goCred/internal/reset"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/policy"
)

// Engine runs the credential lifecycle: login with a second factor, password
// changes and resets, lockout, expiry and protected field access.
//
// Engine is safe for concurrent use. Build it with New().WithStorage(...).Build().
type Engine struct {
	config Config

	storage  credential.Storage
	replacer credential.PasswordReplacer
	hasher   Hasher
	upgrader UpgradableHasher
	clock    Clock
	logger   *zap.Logger

	age      policy.AgePolicy
	lockout  policy.LockoutPolicy
	history  policy.HistoryGuard
	strength policy.StrengthPolicy

	otp          *otp.Manager
	resets       *reset.Manager
	resetLimiter *limiters.ResetRequestLimiter
	codec        *codec.Codec
	grants       *grant.Manager

	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	decoyHash string
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) ready() bool {
	return e != nil && e.storage != nil && e.hasher != nil && e.clock != nil && e.otp != nil
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// internal logs cause with full detail and returns the generic failure.
func (e *Engine) internal(ctx context.Context, op, userID string, cause error) error {
	fields := []zap.Field{zap.String("op", op)}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		fields = append(fields, zap.String("client_ip", ip))
	}
	e.logger.Error("credential operation failed", append(fields, zap.Error(cause))...)
	return internalFailure(cause)
}

func (e *Engine) common() flows.Common {
	return flows.Common{
		Now:         e.now,
		ClientIP:    clientIPFromContext,
		LoadByID:    e.storage.LoadCredentialRecord,
		LoadByEmail: e.storage.LoadCredentialRecordByEmail,
		Save:        e.storage.SaveCredentialRecord,
		EmitAudit:   e.emitAudit,
		Reject:      rejection,
		Internal:    e.internal,
		Metrics:     e.metrics,
		Events:      e.flowEvents(),
		Errors:      flowErrors(),
	}
}

// replacePassword saves rec and appends entry, in one transaction when the
// storage supports it.
func (e *Engine) replacePassword(ctx context.Context, rec *credential.Record, entry credential.HistoryEntry) error {
	if e.replacer != nil {
		return e.replacer.ReplacePassword(ctx, rec, entry)
	}
	if err := e.storage.SaveCredentialRecord(ctx, rec); err != nil {
		return err
	}
	return e.storage.AppendHistoryEntry(ctx, entry)
}

func newUserID() string {
	return uuid.NewString()
}

// newDecoyHash hashes a random secret so unknown-account logins spend the
// same verification cost as real ones.
func newDecoyHash(h Hasher) string {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	hash, err := h.Hash(base64.RawURLEncoding.EncodeToString(buf[:]))
	if err != nil {
		return ""
	}
	return hash
}

func (e *Engine) decoyVerify(plaintext string) {
	if e.decoyHash == "" {
		return
	}
	_, _ = e.hasher.Verify(plaintext, e.decoyHash)
}
