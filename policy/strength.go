package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrWeakPassword is matched by every strength violation.
var ErrWeakPassword = errors.New("password does not meet strength requirements")

// WeakPasswordError reports which rule a candidate broke. Reason is safe to
// show to the user.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return ErrWeakPassword.Error() + ": " + e.Reason
}

// Is matches ErrWeakPassword.
func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// StrengthConfig lists the composition rules for new passwords.
type StrengthConfig struct {
	MinLength         int
	MaxLength         int
	RequireUpper      bool
	RequireLower      bool
	RequireDigit      bool
	RequireSpecial    bool
	SpecialCharacters string
}

// DefaultStrengthConfig returns twelve characters with all four classes.
func DefaultStrengthConfig() StrengthConfig {
	return StrengthConfig{
		MinLength:         12,
		MaxLength:         100,
		RequireUpper:      true,
		RequireLower:      true,
		RequireDigit:      true,
		RequireSpecial:    true,
		SpecialCharacters: "@$!%*?&#",
	}
}

// Validate reports whether the configuration is usable.
func (c StrengthConfig) Validate() error {
	if c.MinLength <= 0 {
		return errors.New("strength: MinLength must be > 0")
	}
	if c.MaxLength > 0 && c.MaxLength < c.MinLength {
		return errors.New("strength: MaxLength must be >= MinLength")
	}
	if c.RequireSpecial && c.SpecialCharacters == "" {
		return errors.New("strength: RequireSpecial needs SpecialCharacters")
	}
	return nil
}

// StrengthPolicy checks new passwords against composition rules.
type StrengthPolicy struct {
	config StrengthConfig
}

// NewStrengthPolicy returns a StrengthPolicy for cfg.
func NewStrengthPolicy(cfg StrengthConfig) StrengthPolicy {
	return StrengthPolicy{config: cfg}
}

// Check returns nil when candidate satisfies every rule, otherwise a
// *WeakPasswordError.
func (p StrengthPolicy) Check(candidate string) error {
	length := utf8.RuneCountInString(candidate)
	if length < p.config.MinLength {
		return &WeakPasswordError{Reason: fmt.Sprintf("Password must be at least %d characters", p.config.MinLength)}
	}
	if p.config.MaxLength > 0 && length > p.config.MaxLength {
		return &WeakPasswordError{Reason: fmt.Sprintf("Password cannot exceed %d characters", p.config.MaxLength)}
	}

	var upper, lower, digit, special bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(p.config.SpecialCharacters, r):
			special = true
		}
	}

	if (p.config.RequireUpper && !upper) ||
		(p.config.RequireLower && !lower) ||
		(p.config.RequireDigit && !digit) ||
		(p.config.RequireSpecial && !special) {
		return &WeakPasswordError{Reason: "Password must contain at least one uppercase, one lowercase, one digit, and one special character"}
	}
	return nil
}

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	if email == "" || len(email) > 100 {
		return false
	}
	return emailPattern.MatchString(email)
}
