package credential

import (
	"strings"
	"time"
)

// Record is the per-account credential state. It is mutated only by the
// engine and the policy functions it calls.
type Record struct {
	UserID       string
	Email        string
	PasswordHash string

	PasswordLastChangedDate   *time.Time
	MustChangePassword        bool
	PasswordExpiryWarningDate *time.Time

	FailedAccessCount int
	LockoutEnd        *time.Time

	// PasswordResetToken holds the digest of the outstanding reset token,
	// never the token itself. Empty means no token is outstanding.
	PasswordResetToken       string
	PasswordResetTokenExpiry *time.Time

	LastLoginDate    *time.Time
	LastLoginAddress string
	CurrentSessionID string

	// ProtectedFields maps a field name to its Secret Codec ciphertext.
	ProtectedFields map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry is an append-only record of a password hash that was replaced.
type HistoryEntry struct {
	UserID       string
	PasswordHash string
	CreatedDate  time.Time
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.PasswordLastChangedDate = cloneTime(r.PasswordLastChangedDate)
	out.PasswordExpiryWarningDate = cloneTime(r.PasswordExpiryWarningDate)
	out.LockoutEnd = cloneTime(r.LockoutEnd)
	out.PasswordResetTokenExpiry = cloneTime(r.PasswordResetTokenExpiry)
	out.LastLoginDate = cloneTime(r.LastLoginDate)
	if r.ProtectedFields != nil {
		out.ProtectedFields = make(map[string]string, len(r.ProtectedFields))
		for k, v := range r.ProtectedFields {
			out.ProtectedFields[k] = v
		}
	}
	return &out
}

// NormalizeEmail trims and lower-cases an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TimePtr returns a pointer to a UTC copy of t.
func TimePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
