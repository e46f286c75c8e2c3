package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/credential"
)

// LockoutConfig controls failed-attempt lockout.
type LockoutConfig struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// DefaultLockoutConfig returns five attempts and a three minute lockout.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxFailedAttempts: 5,
		Duration:          3 * time.Minute,
	}
}

// Validate reports whether the configuration is usable.
func (c LockoutConfig) Validate() error {
	if c.MaxFailedAttempts <= 0 {
		return errors.New("lockout: MaxFailedAttempts must be > 0")
	}
	if c.Duration <= 0 {
		return errors.New("lockout: Duration must be > 0")
	}
	return nil
}

// LockoutStatus describes the lock state of a record at a point in time.
type LockoutStatus struct {
	Locked           bool
	Remaining        time.Duration
	MinutesRemaining int
	// Elapsed is set when a lockout end is recorded but already passed.
	Elapsed bool
}

// Message renders an active lockout for display.
func (s LockoutStatus) Message() string {
	if !s.Locked {
		return ""
	}
	return fmt.Sprintf("Account is locked. Please try again in %d minute(s).", s.MinutesRemaining)
}

// LockoutPolicy tracks failed attempts on a credential record.
//
// State machine: Unlocked, then Locked once the failure count reaches the
// maximum, then Unlocked again once now reaches the lockout end. Expiry is
// evaluated lazily by Evaluate.
type LockoutPolicy struct {
	config LockoutConfig
}

// NewLockoutPolicy returns a LockoutPolicy for cfg.
func NewLockoutPolicy(cfg LockoutConfig) LockoutPolicy {
	return LockoutPolicy{config: cfg}
}

// CheckLocked reports the lock state without mutating the record.
func (p LockoutPolicy) CheckLocked(rec *credential.Record, now time.Time) LockoutStatus {
	if rec == nil || rec.LockoutEnd == nil {
		return LockoutStatus{}
	}
	if !now.Before(*rec.LockoutEnd) {
		return LockoutStatus{Elapsed: true}
	}
	remaining := rec.LockoutEnd.Sub(now)
	return LockoutStatus{
		Locked:           true,
		Remaining:        remaining,
		MinutesRemaining: ceilUnits(remaining, time.Minute),
	}
}

// Evaluate checks the lock state and applies the lazy unlock transition when
// the lockout has elapsed. changed reports whether rec must be persisted.
func (p LockoutPolicy) Evaluate(rec *credential.Record, now time.Time) (status LockoutStatus, changed bool) {
	status = p.CheckLocked(rec, now)
	if status.Elapsed {
		p.RecordSuccess(rec)
		return LockoutStatus{}, true
	}
	return status, false
}

// RecordFailure counts one failed attempt and locks the record when the
// count reaches the configured maximum.
func (p LockoutPolicy) RecordFailure(rec *credential.Record, now time.Time) LockoutStatus {
	rec.FailedAccessCount++
	if rec.FailedAccessCount >= p.config.MaxFailedAttempts {
		rec.LockoutEnd = credential.TimePtr(now.Add(p.config.Duration))
		return p.CheckLocked(rec, now)
	}
	return LockoutStatus{}
}

// RecordSuccess resets the failure count and clears any lockout.
func (p LockoutPolicy) RecordSuccess(rec *credential.Record) {
	rec.FailedAccessCount = 0
	rec.LockoutEnd = nil
}
