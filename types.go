package goCred

import (
	"time"

	"github.com/MrEthical07/goCred/credential"
)

// Hasher turns plaintext passwords into opaque encoded hashes and verifies
// them. *password.Argon2 satisfies it.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) (bool, error)
}

// UpgradableHasher is implemented by hashers that can detect outdated
// parameters. The Engine rehashes on successful login when it reports true.
type UpgradableHasher interface {
	Hasher
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Clock supplies the current time. Policies never read the system clock
// directly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CredentialRecord is the per-account credential state.
type CredentialRecord = credential.Record

// HistoryEntry is one replaced password hash.
type HistoryEntry = credential.HistoryEntry

// Storage persists credential records and password history.
type Storage = credential.Storage

// LoginChallenge is returned after the password step of a login. The caller
// delivers Code to the account holder out of band and keeps PendingID for
// VerifyLoginCode.
type LoginChallenge struct {
	PendingID          string
	Code               string
	ExpiresAt          time.Time
	MustChangePassword bool
}

// Session describes a completed login.
type Session struct {
	UserID    string
	Email     string
	SessionID string
	// Grant is the signed session grant, empty when grants are disabled.
	Grant          string
	GrantExpiresAt time.Time
	// ExpiryWarning is set when the password expires within the warning window.
	ExpiryWarning      bool
	ExpiresIn          time.Duration
	MustChangePassword bool
}

// SessionInfo is the result of ValidateSession.
type SessionInfo struct {
	UserID    string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// ResetTicket carries a reset token for out-of-band delivery. Tickets for
// unknown emails have the same shape and never work.
type ResetTicket struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// PasswordStatus summarizes the age state of an account's password.
type PasswordStatus struct {
	LastChanged        *time.Time
	Expired            bool
	ExpiresIn          time.Duration
	Warn               bool
	CanChange          bool
	CanChangeIn        time.Duration
	MustChangePassword bool
	Locked             bool
	LockedFor          time.Duration
}

// EnrollRequest registers a new account. UserID is generated when empty.
// ProtectedFields values are encrypted with the configured codec key.
type EnrollRequest struct {
	UserID          string
	Email           string
	Password        string
	ProtectedFields map[string]string
}
