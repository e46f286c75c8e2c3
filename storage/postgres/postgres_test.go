package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/MrEthical07/goCred/credential"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, New(mock)
}

func recordArgs() []interface{} {
	args := make([]interface{}, len(recordColumns))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestLoadCredentialRecordByEmail(t *testing.T) {
	mock, store := newMockStore(t)

	changed := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	created := changed.Add(-24 * time.Hour)
	var noTime *time.Time
	rows := pgxmock.NewRows(recordColumns).AddRow(
		"u1", "alice@example.com", "hash",
		&changed, false, noTime,
		2, noTime,
		"", noTime,
		noTime, "", "sess-1",
		[]byte(`{"card_number":"cipher"}`),
		created, changed,
	)
	mock.ExpectQuery(`SELECT .* FROM credential_records WHERE email = \$1 LIMIT 1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	rec, err := store.LoadCredentialRecordByEmail(context.Background(), " Alice@Example.com")
	if err != nil {
		t.Fatalf("LoadCredentialRecordByEmail: %v", err)
	}
	if rec.UserID != "u1" || rec.FailedAccessCount != 2 || rec.CurrentSessionID != "sess-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.PasswordLastChangedDate == nil || !rec.PasswordLastChangedDate.Equal(changed) {
		t.Fatalf("unexpected last changed %v", rec.PasswordLastChangedDate)
	}
	if rec.ProtectedFields["card_number"] != "cipher" {
		t.Fatalf("unexpected protected fields %v", rec.ProtectedFields)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadCredentialRecordNotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM credential_records WHERE user_id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := store.LoadCredentialRecord(context.Background(), "missing"); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveCredentialRecordUpserts(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec(`INSERT INTO credential_records .* ON CONFLICT \(user_id\) DO UPDATE SET`).
		WithArgs(recordArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := &credential.Record{UserID: "u1", Email: "a@b.co", PasswordHash: "h"}
	if err := store.SaveCredentialRecord(context.Background(), rec); err != nil {
		t.Fatalf("SaveCredentialRecord: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveCredentialRecordDuplicateEmail(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec(`INSERT INTO credential_records`).
		WithArgs(recordArgs()...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := store.SaveCredentialRecord(context.Background(), &credential.Record{UserID: "u2", Email: "a@b.co"})
	if !errors.Is(err, credential.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoadRecentHistoryOrdersAndLimits(t *testing.T) {
	mock, store := newMockStore(t)

	newer := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := pgxmock.NewRows([]string{"user_id", "password_hash", "created_date"}).
		AddRow("u1", "h2", newer).
		AddRow("u1", "h1", older)
	mock.ExpectQuery(`SELECT user_id, password_hash, created_date FROM password_history WHERE user_id = \$1 ORDER BY created_date DESC LIMIT 2`).
		WithArgs("u1").
		WillReturnRows(rows)

	entries, err := store.LoadRecentHistory(context.Background(), "u1", 2)
	if err != nil {
		t.Fatalf("LoadRecentHistory: %v", err)
	}
	if len(entries) != 2 || entries[0].PasswordHash != "h2" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplacePasswordCommitsBothWrites(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credential_records`).
		WithArgs(recordArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO password_history`).
		WithArgs("u1", "old-hash", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.ReplacePassword(context.Background(),
		&credential.Record{UserID: "u1", Email: "a@b.co", PasswordHash: "new-hash"},
		credential.HistoryEntry{UserID: "u1", PasswordHash: "old-hash", CreatedDate: now},
	)
	if err != nil {
		t.Fatalf("ReplacePassword: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplacePasswordRollsBackOnHistoryFailure(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credential_records`).
		WithArgs(recordArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO password_history`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.ReplacePassword(context.Background(),
		&credential.Record{UserID: "u1", Email: "a@b.co"},
		credential.HistoryEntry{UserID: "u1", PasswordHash: "old"},
	)
	if err == nil {
		t.Fatal("expected history failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateAppliesSchema(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS credential_records`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
