package policy

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Forever is the remaining time reported when expiry does not apply.
const Forever = time.Duration(math.MaxInt64)

// MaxAgeDaysLimit is the largest MaximumAgeDays a time.Duration can hold.
const MaxAgeDaysLimit = float64(math.MaxInt64) / float64(24*time.Hour)

// AgeConfig controls minimum and maximum password age.
type AgeConfig struct {
	MinimumAgeMinutes int
	// MaximumAgeDays may be fractional for short test windows. Zero expires
	// every password as soon as it is set.
	MaximumAgeDays float64

	WarningWindowDays int
	EnforceMinimumAge bool
	EnforceExpiry     bool
}

// DefaultAgeConfig returns the production defaults.
func DefaultAgeConfig() AgeConfig {
	return AgeConfig{
		MinimumAgeMinutes: 1,
		MaximumAgeDays:    90,
		WarningWindowDays: 14,
		EnforceMinimumAge: true,
		EnforceExpiry:     true,
	}
}

// Validate reports whether the configuration is usable.
func (c AgeConfig) Validate() error {
	if c.MinimumAgeMinutes < 0 {
		return errors.New("password age: MinimumAgeMinutes must be >= 0")
	}
	if c.MaximumAgeDays < 0 || math.IsNaN(c.MaximumAgeDays) || math.IsInf(c.MaximumAgeDays, 0) {
		return errors.New("password age: MaximumAgeDays must be a finite value >= 0")
	}
	if c.MaximumAgeDays >= MaxAgeDaysLimit {
		return fmt.Errorf("password age: MaximumAgeDays must be < %.0f", MaxAgeDaysLimit)
	}
	if c.WarningWindowDays < 0 {
		return errors.New("password age: WarningWindowDays must be >= 0")
	}
	return nil
}

// AgePolicy evaluates password age rules against a last-changed timestamp.
type AgePolicy struct {
	config AgeConfig
}

// NewAgePolicy returns an AgePolicy for cfg.
func NewAgePolicy(cfg AgeConfig) AgePolicy {
	return AgePolicy{config: cfg}
}

// Config returns the policy configuration.
func (p AgePolicy) Config() AgeConfig {
	return p.config
}

// ChangeDecision is the outcome of a minimum-age check.
type ChangeDecision struct {
	Allowed   bool
	Remaining time.Duration

	minimumAgeMinutes int
}

// Message renders a rejected decision for display. Windows shorter than an
// hour are rendered in minutes, longer ones in hours.
func (d ChangeDecision) Message() string {
	if d.Allowed {
		return ""
	}
	if d.minimumAgeMinutes < 60 {
		return fmt.Sprintf(
			"You can only change your password every %d minute(s). Please wait %d more minute(s).",
			d.minimumAgeMinutes,
			ceilUnits(d.Remaining, time.Minute),
		)
	}
	return fmt.Sprintf(
		"You can only change your password every %d hour(s). Please wait %d more hour(s).",
		d.minimumAgeMinutes/60,
		ceilUnits(d.Remaining, time.Hour),
	)
}

// ExpiryStatus is the outcome of a maximum-age check.
type ExpiryStatus struct {
	Expired   bool
	Remaining time.Duration
}

// WarningStatus reports whether an expiry warning should be shown.
type WarningStatus struct {
	Warn      bool
	Remaining time.Duration
}

// CanChangePassword enforces the minimum age between password changes.
func (p AgePolicy) CanChangePassword(lastChanged *time.Time, now time.Time) ChangeDecision {
	if !p.config.EnforceMinimumAge || lastChanged == nil {
		return ChangeDecision{Allowed: true}
	}

	minimum := time.Duration(p.config.MinimumAgeMinutes) * time.Minute
	elapsed := now.Sub(*lastChanged)
	if elapsed >= minimum {
		return ChangeDecision{Allowed: true}
	}

	return ChangeDecision{
		Allowed:           false,
		Remaining:         minimum - elapsed,
		minimumAgeMinutes: p.config.MinimumAgeMinutes,
	}
}

// IsExpired reports whether the password passed its maximum age.
func (p AgePolicy) IsExpired(lastChanged *time.Time, now time.Time) ExpiryStatus {
	if !p.config.EnforceExpiry || lastChanged == nil {
		return ExpiryStatus{Remaining: Forever}
	}

	remaining := p.maximumAge() - now.Sub(*lastChanged)
	if remaining <= 0 {
		return ExpiryStatus{Expired: true}
	}
	return ExpiryStatus{Remaining: remaining}
}

// ShouldWarn reports whether the holder should be warned about expiry.
func (p AgePolicy) ShouldWarn(lastChanged *time.Time, now time.Time) WarningStatus {
	status := p.IsExpired(lastChanged, now)
	if status.Expired {
		return WarningStatus{Warn: true}
	}
	if status.Remaining == Forever {
		return WarningStatus{Remaining: Forever}
	}

	if p.config.MaximumAgeDays < 1 {
		return WarningStatus{Warn: true, Remaining: status.Remaining}
	}

	window := time.Duration(p.config.WarningWindowDays) * 24 * time.Hour
	return WarningStatus{
		Warn:      status.Remaining <= window,
		Remaining: status.Remaining,
	}
}

func (p AgePolicy) maximumAge() time.Duration {
	nanos := p.config.MaximumAgeDays * float64(24*time.Hour)
	if nanos >= float64(math.MaxInt64) {
		return Forever
	}
	return time.Duration(nanos)
}

func ceilUnits(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + unit - 1) / unit)
}
