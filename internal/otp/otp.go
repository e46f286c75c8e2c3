// Package otp issues and verifies the six-digit second-factor codes that
// complete a pending login.
//
// Verdicts are computed by Check against an injected time. The Manager adds
// persistence: one challenge per subject, discard on expiry, discard on
// success, and an attempt ceiling on wrong codes.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/internal"
	"github.com/MrEthical07/goCred/internal/stores"
)

// DefaultTTL is the validity window of an issued code.
const DefaultTTL = 5 * time.Minute

// retentionGrace keeps an expired challenge readable long enough for a late
// submission to be reported as Expired rather than NotFound.
const retentionGrace = time.Minute

// Result is the verdict of a verification.
type Result int

const (
	NotFound Result = iota
	Valid
	Expired
	Mismatch
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Mismatch:
		return "mismatch"
	default:
		return "not_found"
	}
}

// Challenge is an issued code bound to a pending login.
type Challenge struct {
	PendingID string
	UserID    string
	Subject   string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// Store persists challenges keyed by pending-login ID.
type Store interface {
	Save(ctx context.Context, pendingID string, record *stores.OTPChallenge, ttl time.Duration) error
	Get(ctx context.Context, pendingID string) (*stores.OTPChallenge, error)
	Delete(ctx context.Context, pendingID string) (bool, error)
	RecordFailure(ctx context.Context, pendingID string, maxAttempts int) (bool, error)
}

// Config controls the Manager.
type Config struct {
	TTL         time.Duration
	MaxAttempts int
}

// Manager issues and verifies challenges.
type Manager struct {
	store       Store
	ttl         time.Duration
	maxAttempts int

	newCode      func() (string, error)
	newPendingID func() (string, error)
}

// NewManager returns a Manager backed by store.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{
		store:        store,
		ttl:          cfg.TTL,
		maxAttempts:  cfg.MaxAttempts,
		newCode:      internal.NewOTP,
		newPendingID: internal.NewPendingID,
	}
}

// Issue creates a challenge for subject and replaces any earlier one.
func (m *Manager) Issue(ctx context.Context, subject, userID string, now time.Time) (Challenge, error) {
	code, err := m.newCode()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate otp: %w", err)
	}
	pendingID, err := m.newPendingID()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate pending id: %w", err)
	}

	ch := Challenge{
		PendingID: pendingID,
		UserID:    userID,
		Subject:   subject,
		Code:      code,
		IssuedAt:  now.UTC(),
		ExpiresAt: now.UTC().Add(m.ttl),
	}
	if err := m.store.Save(ctx, pendingID, toRecord(ch), m.ttl+retentionGrace); err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// Check is the pure verdict for a submitted code.
func Check(ch *Challenge, code string, now time.Time) Result {
	if ch == nil {
		return NotFound
	}
	if now.After(ch.ExpiresAt) {
		return Expired
	}
	if len(code) != len(ch.Code) || subtle.ConstantTimeCompare([]byte(code), []byte(ch.Code)) != 1 {
		return Mismatch
	}
	return Valid
}

// Verify loads the challenge for pendingID and applies Check. Expired and
// consumed challenges are deleted. On Valid the challenge is returned and can
// never verify again.
func (m *Manager) Verify(ctx context.Context, pendingID, code string, now time.Time) (Result, *Challenge, error) {
	record, err := m.store.Get(ctx, pendingID)
	if err != nil {
		if errors.Is(err, stores.ErrOTPChallengeNotFound) {
			return NotFound, nil, nil
		}
		return NotFound, nil, err
	}
	ch := fromRecord(pendingID, record)

	switch result := Check(ch, code, now); result {
	case Expired:
		if _, err := m.store.Delete(ctx, pendingID); err != nil {
			return Expired, ch, err
		}
		return Expired, ch, nil
	case Mismatch:
		if _, err := m.store.RecordFailure(ctx, pendingID, m.maxAttempts); err != nil && !errors.Is(err, stores.ErrOTPChallengeNotFound) {
			return Mismatch, ch, err
		}
		return Mismatch, ch, nil
	default:
		deleted, err := m.store.Delete(ctx, pendingID)
		if err != nil {
			return NotFound, nil, err
		}
		if !deleted {
			// Another request consumed it first.
			return NotFound, nil, nil
		}
		return Valid, ch, nil
	}
}

func toRecord(ch Challenge) *stores.OTPChallenge {
	return &stores.OTPChallenge{
		UserID:    ch.UserID,
		Subject:   ch.Subject,
		Code:      ch.Code,
		IssuedAt:  ch.IssuedAt.UnixNano(),
		ExpiresAt: ch.ExpiresAt.UnixNano(),
		Attempts:  uint16(ch.Attempts),
	}
}

func fromRecord(pendingID string, record *stores.OTPChallenge) *Challenge {
	return &Challenge{
		PendingID: pendingID,
		UserID:    record.UserID,
		Subject:   record.Subject,
		Code:      record.Code,
		IssuedAt:  time.Unix(0, record.IssuedAt).UTC(),
		ExpiresAt: time.Unix(0, record.ExpiresAt).UTC(),
		Attempts:  int(record.Attempts),
	}
}
