package credential

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Storage when no record matches.
	ErrNotFound = errors.New("credential record not found")
	// ErrDuplicateEmail is returned when saving a new record whose email is taken.
	ErrDuplicateEmail = errors.New("credential email already exists")
)

// Storage persists credential records and their password history.
//
// Implementations must return ErrNotFound for unknown accounts and must
// return history ordered by CreatedDate descending.
type Storage interface {
	LoadCredentialRecord(ctx context.Context, userID string) (*Record, error)
	LoadCredentialRecordByEmail(ctx context.Context, email string) (*Record, error)
	SaveCredentialRecord(ctx context.Context, record *Record) error
	AppendHistoryEntry(ctx context.Context, entry HistoryEntry) error
	LoadRecentHistory(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
}

// PasswordReplacer is implemented by backends that can save a record and
// append the replaced hash to history in one transaction.
type PasswordReplacer interface {
	ReplacePassword(ctx context.Context, record *Record, entry HistoryEntry) error
}
