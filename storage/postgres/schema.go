package postgres

// Schema creates the credential tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS credential_records (
    user_id                      TEXT PRIMARY KEY,
    email                        TEXT NOT NULL UNIQUE,
    password_hash                TEXT NOT NULL,
    password_last_changed_date   TIMESTAMPTZ,
    must_change_password         BOOLEAN NOT NULL DEFAULT FALSE,
    password_expiry_warning_date TIMESTAMPTZ,
    failed_access_count          INTEGER NOT NULL DEFAULT 0 CHECK (failed_access_count >= 0),
    lockout_end                  TIMESTAMPTZ,
    password_reset_token         TEXT NOT NULL DEFAULT '',
    password_reset_token_expiry  TIMESTAMPTZ,
    last_login_date              TIMESTAMPTZ,
    last_login_address           TEXT NOT NULL DEFAULT '',
    current_session_id           TEXT NOT NULL DEFAULT '',
    protected_fields             JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at                   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS password_history (
    id            BIGSERIAL PRIMARY KEY,
    user_id       TEXT NOT NULL REFERENCES credential_records (user_id) ON DELETE CASCADE,
    password_hash TEXT NOT NULL,
    created_date  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS password_history_user_created_idx
    ON password_history (user_id, created_date DESC);
`
