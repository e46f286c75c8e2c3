package stores

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record      OTPChallenge
	retainUntil time.Time
}

// MemoryOTPChallengeStore keeps challenges in process memory. It is meant for
// single-instance deployments and tests.
type MemoryOTPChallengeStore struct {
	mu        sync.Mutex
	now       func() time.Time
	byID      map[string]*memoryEntry
	bySubject map[string]string
}

func NewMemoryOTPChallengeStore(now func() time.Time) *MemoryOTPChallengeStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryOTPChallengeStore{
		now:       now,
		byID:      make(map[string]*memoryEntry),
		bySubject: make(map[string]string),
	}
}

func (s *MemoryOTPChallengeStore) Save(_ context.Context, pendingID string, record *OTPChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if previous, ok := s.bySubject[record.Subject]; ok && previous != pendingID {
		delete(s.byID, previous)
	}
	s.byID[pendingID] = &memoryEntry{record: *record, retainUntil: now.Add(ttl)}
	s.bySubject[record.Subject] = pendingID
	return nil
}

func (s *MemoryOTPChallengeStore) Get(_ context.Context, pendingID string) (*OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[pendingID]
	if !ok || !s.now().Before(entry.retainUntil) {
		return nil, ErrOTPChallengeNotFound
	}
	record := entry.record
	return &record, nil
}

func (s *MemoryOTPChallengeStore) Delete(_ context.Context, pendingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[pendingID]
	if !ok {
		return false, nil
	}
	s.removeLocked(pendingID, entry)
	return true, nil
}

func (s *MemoryOTPChallengeStore) RecordFailure(_ context.Context, pendingID string, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[pendingID]
	if !ok {
		return false, ErrOTPChallengeNotFound
	}
	entry.record.Attempts++
	if maxAttempts > 0 && int(entry.record.Attempts) >= maxAttempts {
		s.removeLocked(pendingID, entry)
		return true, nil
	}
	return false, nil
}

func (s *MemoryOTPChallengeStore) removeLocked(pendingID string, entry *memoryEntry) {
	delete(s.byID, pendingID)
	if s.bySubject[entry.record.Subject] == pendingID {
		delete(s.bySubject, entry.record.Subject)
	}
}

func (s *MemoryOTPChallengeStore) sweepLocked(now time.Time) {
	for id, entry := range s.byID {
		if !now.Before(entry.retainUntil) {
			s.removeLocked(id, entry)
		}
	}
}
