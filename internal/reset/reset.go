// Package reset issues and validates the single-use password reset token
// stored on a credential record.
//
// Only the digest of a token is kept on the record. Validation is read-only;
// Consume clears the slot once the password replacement has succeeded.
package reset

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal"
)

// DefaultTTL is the validity window of an issued token.
const DefaultTTL = 30 * time.Minute

// Result is the verdict of a validation.
type Result int

const (
	NotFound Result = iota
	Valid
	Mismatch
	Expired
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Mismatch:
		return "mismatch"
	case Expired:
		return "expired"
	default:
		return "not_found"
	}
}

// Manager issues tokens into the record's single token slot.
type Manager struct {
	ttl      time.Duration
	newToken func() (string, error)
}

// NewManager returns a Manager with the given validity window.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{ttl: ttl, newToken: internal.NewResetToken}
}

// TTL returns the validity window.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue generates a token, stores its digest and expiry on rec, and returns
// the token for out-of-band delivery. A previous token is overwritten.
func (m *Manager) Issue(rec *credential.Record, now time.Time) (string, time.Time, error) {
	token, err := m.newToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}
	expires := now.UTC().Add(m.ttl)
	rec.PasswordResetToken = internal.DigestToken(token)
	rec.PasswordResetTokenExpiry = &expires
	return token, expires, nil
}

// Decoy returns a token and expiry shaped like Issue's output without
// touching any record.
func (m *Manager) Decoy(now time.Time) (string, time.Time, error) {
	token, err := m.newToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}
	return token, now.UTC().Add(m.ttl), nil
}

// Validate reports whether token may be used to reset rec's password.
func Validate(rec *credential.Record, token string, now time.Time) Result {
	if rec == nil || rec.PasswordResetToken == "" || rec.PasswordResetTokenExpiry == nil {
		return NotFound
	}
	ok, err := internal.DigestMatches(token, rec.PasswordResetToken)
	if err != nil || !ok {
		return Mismatch
	}
	if now.After(*rec.PasswordResetTokenExpiry) {
		return Expired
	}
	return Valid
}

// Consume clears the token slot after a successful reset and records the
// password change on rec.
func Consume(rec *credential.Record, now time.Time) {
	rec.PasswordResetToken = ""
	rec.PasswordResetTokenExpiry = nil
	rec.PasswordLastChangedDate = credential.TimePtr(now)
	rec.MustChangePassword = false
	rec.PasswordExpiryWarningDate = nil
}
