// Package memstore is an in-process credential.Storage used by tests, the
// CLI's ephemeral mode and embedders that need no durable backend.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/MrEthical07/goCred/credential"
)

// Store keeps records and history in mutex-guarded maps. Records are cloned
// on the way in and out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*credential.Record
	emails  map[string]string
	history map[string][]credential.HistoryEntry
}

var (
	_ credential.Storage          = (*Store)(nil)
	_ credential.PasswordReplacer = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*credential.Record),
		emails:  make(map[string]string),
		history: make(map[string][]credential.HistoryEntry),
	}
}

// LoadCredentialRecord returns a copy of the record for userID.
func (s *Store) LoadCredentialRecord(ctx context.Context, userID string) (*credential.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return rec.Clone(), nil
}

// LoadCredentialRecordByEmail returns a copy of the record owning email.
func (s *Store) LoadCredentialRecordByEmail(ctx context.Context, email string) (*credential.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.emails[credential.NormalizeEmail(email)]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return s.records[userID].Clone(), nil
}

// SaveCredentialRecord inserts or replaces record.
func (s *Store) SaveCredentialRecord(ctx context.Context, record *credential.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(record)
}

// AppendHistoryEntry appends entry to the user's history.
func (s *Store) AppendHistoryEntry(ctx context.Context, entry credential.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.UserID] = append(s.history[entry.UserID], entry)
	return nil
}

// LoadRecentHistory returns up to limit entries, newest first. A limit of
// zero or less returns every entry.
func (s *Store) LoadRecentHistory(ctx context.Context, userID string, limit int) ([]credential.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := append([]credential.HistoryEntry(nil), s.history[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedDate.After(entries[j].CreatedDate)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ReplacePassword saves record and appends entry under one lock.
func (s *Store) ReplacePassword(ctx context.Context, record *credential.Record, entry credential.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(record); err != nil {
		return err
	}
	s.history[entry.UserID] = append(s.history[entry.UserID], entry)
	return nil
}

func (s *Store) saveLocked(record *credential.Record) error {
	email := credential.NormalizeEmail(record.Email)
	if owner, ok := s.emails[email]; ok && owner != record.UserID {
		return credential.ErrDuplicateEmail
	}
	if prev, ok := s.records[record.UserID]; ok {
		delete(s.emails, credential.NormalizeEmail(prev.Email))
	}
	rec := record.Clone()
	rec.Email = email
	s.records[rec.UserID] = rec
	s.emails[email] = rec.UserID
	return nil
}
