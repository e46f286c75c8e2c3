package goCred

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/MrEthical07/goCred/storage/memstore"
)

const (
	testEmail     = "alice@example.com"
	testPassword  = "Str0ng!Passw0rd"
	testPassword2 = "An0ther!Passw0rd"
	testPassword3 = "Th1rd#Password!"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// plainHasher keeps tests fast; Argon2 has its own tests.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) {
	return "plain$" + plaintext, nil
}

func (plainHasher) Verify(plaintext, encodedHash string) (bool, error) {
	if !strings.HasPrefix(encodedHash, "plain$") {
		return false, errors.New("unknown hash format")
	}
	return encodedHash == "plain$"+plaintext, nil
}

type testEngine struct {
	*Engine
	store *memstore.Store
	clock *fakeClock
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()
	return newAuditedTestEngine(t, nil, mutate...)
}

// newAuditedTestEngine enables auditing when sink is non-nil.
func newAuditedTestEngine(t *testing.T, sink AuditSink, mutate ...func(*Config)) *testEngine {
	t.Helper()

	cfg := DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	if sink != nil {
		cfg.Audit.Enabled = true
	}

	store := memstore.New()
	clock := newFakeClock()
	engine, err := New().
		WithConfig(cfg).
		WithStorage(store).
		WithHasher(plainHasher{}).
		WithClock(clock).
		WithAuditSink(sink).
		WithLogger(zaptest.NewLogger(t)).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, store: store, clock: clock}
}

func (te *testEngine) enroll(t *testing.T) *CredentialRecord {
	t.Helper()
	rec, err := te.Enroll(context.Background(), EnrollRequest{
		UserID:   "user-1",
		Email:    testEmail,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return rec
}

func (te *testEngine) record(t *testing.T, userID string) *CredentialRecord {
	t.Helper()
	rec, err := te.store.LoadCredentialRecord(context.Background(), userID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	return rec
}

func (te *testEngine) login(t *testing.T, ctx context.Context, password string) *Session {
	t.Helper()
	ch, err := te.Login(ctx, testEmail, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	sess, err := te.VerifyLoginCode(ctx, ch.PendingID, ch.Code)
	if err != nil {
		t.Fatalf("verify code: %v", err)
	}
	return sess
}

func expectSentinel(t *testing.T, err, sentinel error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func collectEvents(sink *ChannelSink, n int, timeout time.Duration) []AuditEvent {
	out := make([]AuditEvent, 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
	return out
}
