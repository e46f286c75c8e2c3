package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/credential"
)

func plainVerify(calls *int) VerifyFunc {
	return func(plaintext, encoded string) (bool, error) {
		*calls++
		if encoded == "broken" {
			return false, errors.New("malformed hash")
		}
		return encoded == "hash:"+plaintext, nil
	}
}

func historyFixture() []credential.HistoryEntry {
	return []credential.HistoryEntry{
		{UserID: "u1", PasswordHash: "hash:third", CreatedDate: baseTime.Add(-3 * time.Hour)},
		{UserID: "u1", PasswordHash: "hash:first", CreatedDate: baseTime.Add(-1 * time.Hour)},
		{UserID: "u1", PasswordHash: "hash:second", CreatedDate: baseTime.Add(-2 * time.Hour)},
	}
}

func TestHistoryGuardMatchesTwoMostRecent(t *testing.T) {
	g := NewHistoryGuard(HistoryConfig{Depth: DefaultHistoryDepth})
	calls := 0

	if !g.IsReused("first", historyFixture(), plainVerify(&calls)) {
		t.Fatal("expected match on most recent entry")
	}
	if calls != 1 {
		t.Fatalf("expected short-circuit after one call, got %d", calls)
	}
	if !g.IsReused("second", historyFixture(), plainVerify(&calls)) {
		t.Fatal("expected match on second most recent entry")
	}
}

func TestHistoryGuardIgnoresThirdEntry(t *testing.T) {
	g := NewHistoryGuard(HistoryConfig{Depth: DefaultHistoryDepth})
	calls := 0
	if g.IsReused("third", historyFixture(), plainVerify(&calls)) {
		t.Fatal("third most recent entry must not be checked")
	}
	if calls != 2 {
		t.Fatalf("expected two verifications, got %d", calls)
	}
}

func TestHistoryGuardVerifierErrorIsNoMatch(t *testing.T) {
	g := NewHistoryGuard(HistoryConfig{Depth: 2})
	calls := 0
	entries := []credential.HistoryEntry{
		{PasswordHash: "broken", CreatedDate: baseTime},
		{PasswordHash: "hash:pw", CreatedDate: baseTime.Add(-time.Minute)},
	}
	if !g.IsReused("pw", entries, plainVerify(&calls)) {
		t.Fatal("expected match on the entry after a broken one")
	}
	if g.IsReused("other", entries, plainVerify(&calls)) {
		t.Fatal("unexpected match")
	}
}

func TestHistoryGuardEmpty(t *testing.T) {
	g := NewHistoryGuard(HistoryConfig{Depth: 2})
	calls := 0
	if g.IsReused("pw", nil, plainVerify(&calls)) || calls != 0 {
		t.Fatal("empty history never matches")
	}
	if NewHistoryGuard(HistoryConfig{}).IsReused("first", historyFixture(), plainVerify(&calls)) {
		t.Fatal("zero depth disables the guard")
	}
}
