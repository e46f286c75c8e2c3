package policy

import (
	"errors"
	"sort"

	"github.com/MrEthical07/goCred/credential"
)

// DefaultHistoryDepth is the number of prior hashes checked for reuse.
const DefaultHistoryDepth = 2

// HistoryConfig controls password reuse checks.
type HistoryConfig struct {
	Depth int
}

// Validate reports whether the configuration is usable.
func (c HistoryConfig) Validate() error {
	if c.Depth < 0 {
		return errors.New("history: Depth must be >= 0")
	}
	return nil
}

// VerifyFunc reports whether plaintext matches an encoded hash.
type VerifyFunc func(plaintext, encodedHash string) (bool, error)

// HistoryGuard rejects passwords that match recent history entries.
type HistoryGuard struct {
	depth int
}

// NewHistoryGuard returns a guard for cfg.
func NewHistoryGuard(cfg HistoryConfig) HistoryGuard {
	return HistoryGuard{depth: cfg.Depth}
}

// Depth returns how many entries the guard inspects.
func (g HistoryGuard) Depth() int {
	return g.depth
}

// IsReused reports whether candidate matches one of the most recent entries.
// Entries are ordered newest first before the window is applied, so callers
// may pass them in any order. A verifier error on an entry counts as no match.
func (g HistoryGuard) IsReused(candidate string, entries []credential.HistoryEntry, verify VerifyFunc) bool {
	if g.depth <= 0 || len(entries) == 0 || verify == nil {
		return false
	}

	ordered := make([]credential.HistoryEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedDate.After(ordered[j].CreatedDate)
	})
	if len(ordered) > g.depth {
		ordered = ordered[:g.depth]
	}

	for _, entry := range ordered {
		ok, err := verify(candidate, entry.PasswordHash)
		if err == nil && ok {
			return true
		}
	}
	return false
}
