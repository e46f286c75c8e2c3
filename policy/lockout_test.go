package policy

import (
	"testing"
	"time"

	"github.com/MrEthical07/goCred/credential"
)

func TestLockoutAfterFiveFailures(t *testing.T) {
	p := NewLockoutPolicy(DefaultLockoutConfig())
	rec := &credential.Record{UserID: "u1"}

	for i := 1; i < 5; i++ {
		if status := p.RecordFailure(rec, baseTime); status.Locked {
			t.Fatalf("locked too early after %d failures", i)
		}
	}
	status := p.RecordFailure(rec, baseTime)
	if !status.Locked {
		t.Fatal("expected lock after fifth failure")
	}
	if rec.LockoutEnd == nil || !rec.LockoutEnd.Equal(baseTime.Add(3*time.Minute)) {
		t.Fatalf("unexpected lockout end %v", rec.LockoutEnd)
	}
	if status.MinutesRemaining != 3 {
		t.Fatalf("expected 3 minutes remaining, got %d", status.MinutesRemaining)
	}
	if status.Message() != "Account is locked. Please try again in 3 minute(s)." {
		t.Fatalf("unexpected message %q", status.Message())
	}
}

func TestLockoutLazyExpiry(t *testing.T) {
	p := NewLockoutPolicy(DefaultLockoutConfig())
	rec := &credential.Record{UserID: "u1"}
	for i := 0; i < 5; i++ {
		p.RecordFailure(rec, baseTime)
	}

	status, changed := p.Evaluate(rec, baseTime.Add(150*time.Second))
	if !status.Locked || changed {
		t.Fatalf("expected still locked, got %+v changed=%v", status, changed)
	}
	if status.MinutesRemaining != 1 {
		t.Fatalf("expected ceil to 1 minute, got %d", status.MinutesRemaining)
	}

	status, changed = p.Evaluate(rec, baseTime.Add(3*time.Minute))
	if status.Locked || !changed {
		t.Fatalf("expected unlock transition, got %+v changed=%v", status, changed)
	}
	if rec.FailedAccessCount != 0 || rec.LockoutEnd != nil {
		t.Fatalf("expected reset record, got count=%d end=%v", rec.FailedAccessCount, rec.LockoutEnd)
	}
}

func TestCheckLockedDoesNotMutate(t *testing.T) {
	p := NewLockoutPolicy(DefaultLockoutConfig())
	end := baseTime
	rec := &credential.Record{FailedAccessCount: 5, LockoutEnd: &end}

	status := p.CheckLocked(rec, baseTime.Add(time.Second))
	if status.Locked || !status.Elapsed {
		t.Fatalf("unexpected status %+v", status)
	}
	if rec.FailedAccessCount != 5 || rec.LockoutEnd == nil {
		t.Fatal("CheckLocked must not mutate the record")
	}
}

func TestRecordSuccessResets(t *testing.T) {
	p := NewLockoutPolicy(DefaultLockoutConfig())
	rec := &credential.Record{}
	p.RecordFailure(rec, baseTime)
	p.RecordFailure(rec, baseTime)
	p.RecordSuccess(rec)
	if rec.FailedAccessCount != 0 || rec.LockoutEnd != nil {
		t.Fatal("expected counters cleared")
	}
}
