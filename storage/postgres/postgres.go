// Package postgres implements credential.Storage on PostgreSQL with pgx and
// squirrel.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/goCred/credential"
)

const (
	recordsTable = "credential_records"
	historyTable = "password_history"

	uniqueViolation = "23505"
)

var recordColumns = []string{
	"user_id",
	"email",
	"password_hash",
	"password_last_changed_date",
	"must_change_password",
	"password_expiry_warning_date",
	"failed_access_count",
	"lockout_end",
	"password_reset_token",
	"password_reset_token_expiry",
	"last_login_date",
	"last_login_address",
	"current_session_id",
	"protected_fields",
	"created_at",
	"updated_at",
}

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the connection surface the store needs. *pgxpool.Pool satisfies it.
type DB interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a PostgreSQL-backed credential store.
type Store struct {
	db      DB
	builder squirrel.StatementBuilderType
}

var (
	_ credential.Storage          = (*Store)(nil)
	_ credential.PasswordReplacer = (*Store)(nil)
)

// New constructs a store on db.
func New(db DB) *Store {
	return &Store{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewPool opens a pgx pool for dsn and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply credential schema: %w", err)
	}
	return nil
}

// LoadCredentialRecord returns the record for userID.
func (s *Store) LoadCredentialRecord(ctx context.Context, userID string) (*credential.Record, error) {
	return s.loadRecord(ctx, squirrel.Eq{"user_id": userID})
}

// LoadCredentialRecordByEmail returns the record owning email.
func (s *Store) LoadCredentialRecordByEmail(ctx context.Context, email string) (*credential.Record, error) {
	return s.loadRecord(ctx, squirrel.Eq{"email": credential.NormalizeEmail(email)})
}

// SaveCredentialRecord upserts record keyed by user ID.
func (s *Store) SaveCredentialRecord(ctx context.Context, record *credential.Record) error {
	return s.saveRecord(ctx, s.db, record)
}

// AppendHistoryEntry inserts one history row.
func (s *Store) AppendHistoryEntry(ctx context.Context, entry credential.HistoryEntry) error {
	return s.appendHistory(ctx, s.db, entry)
}

// LoadRecentHistory returns up to limit entries ordered newest first. A limit
// of zero or less returns every entry.
func (s *Store) LoadRecentHistory(ctx context.Context, userID string, limit int) ([]credential.HistoryEntry, error) {
	query := s.builder.
		Select("user_id", "password_hash", "created_date").
		From(historyTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_date DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select history sql: %w", err)
	}

	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", err)
	}
	defer rows.Close()

	var entries []credential.HistoryEntry
	for rows.Next() {
		var entry credential.HistoryEntry
		if err := rows.Scan(&entry.UserID, &entry.PasswordHash, &entry.CreatedDate); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}
	return entries, nil
}

// ReplacePassword saves record and appends entry in one transaction.
func (s *Store) ReplacePassword(ctx context.Context, record *credential.Record, entry credential.HistoryEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin password replace: %w", err)
	}

	if err := s.saveRecord(ctx, tx, record); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := s.appendHistory(ctx, tx, entry); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit password replace: %w", err)
	}
	return nil
}

func (s *Store) loadRecord(ctx context.Context, where squirrel.Eq) (*credential.Record, error) {
	stmt, args, err := s.builder.
		Select(recordColumns...).
		From(recordsTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select credential sql: %w", err)
	}

	var (
		rec       credential.Record
		protected []byte
	)
	err = s.db.QueryRow(ctx, stmt, args...).Scan(
		&rec.UserID,
		&rec.Email,
		&rec.PasswordHash,
		&rec.PasswordLastChangedDate,
		&rec.MustChangePassword,
		&rec.PasswordExpiryWarningDate,
		&rec.FailedAccessCount,
		&rec.LockoutEnd,
		&rec.PasswordResetToken,
		&rec.PasswordResetTokenExpiry,
		&rec.LastLoginDate,
		&rec.LastLoginAddress,
		&rec.CurrentSessionID,
		&protected,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("scan credential record: %w", err)
	}

	if len(protected) > 0 {
		if err := json.Unmarshal(protected, &rec.ProtectedFields); err != nil {
			return nil, fmt.Errorf("decode protected fields: %w", err)
		}
	}
	return &rec, nil
}

func (s *Store) saveRecord(ctx context.Context, exec pgExecutor, record *credential.Record) error {
	if record == nil || record.UserID == "" {
		return errors.New("credential record requires a user id")
	}

	protected := record.ProtectedFields
	if protected == nil {
		protected = map[string]string{}
	}
	protectedJSON, err := json.Marshal(protected)
	if err != nil {
		return fmt.Errorf("encode protected fields: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	stmt, args, err := s.builder.
		Insert(recordsTable).
		Columns(recordColumns...).
		Values(
			record.UserID,
			credential.NormalizeEmail(record.Email),
			record.PasswordHash,
			record.PasswordLastChangedDate,
			record.MustChangePassword,
			record.PasswordExpiryWarningDate,
			record.FailedAccessCount,
			record.LockoutEnd,
			record.PasswordResetToken,
			record.PasswordResetTokenExpiry,
			record.LastLoginDate,
			record.LastLoginAddress,
			record.CurrentSessionID,
			protectedJSON,
			createdAt,
			updatedAt,
		).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			password_last_changed_date = EXCLUDED.password_last_changed_date,
			must_change_password = EXCLUDED.must_change_password,
			password_expiry_warning_date = EXCLUDED.password_expiry_warning_date,
			failed_access_count = EXCLUDED.failed_access_count,
			lockout_end = EXCLUDED.lockout_end,
			password_reset_token = EXCLUDED.password_reset_token,
			password_reset_token_expiry = EXCLUDED.password_reset_token_expiry,
			last_login_date = EXCLUDED.last_login_date,
			last_login_address = EXCLUDED.last_login_address,
			current_session_id = EXCLUDED.current_session_id,
			protected_fields = EXCLUDED.protected_fields,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert credential sql: %w", err)
	}

	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return credential.ErrDuplicateEmail
		}
		return fmt.Errorf("upsert credential record: %w", err)
	}
	return nil
}

func (s *Store) appendHistory(ctx context.Context, exec pgExecutor, entry credential.HistoryEntry) error {
	stmt, args, err := s.builder.
		Insert(historyTable).
		Columns("user_id", "password_hash", "created_date").
		Values(entry.UserID, entry.PasswordHash, entry.CreatedDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history sql: %w", err)
	}
	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}
	return nil
}
