package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChristianSeip/SimpleChat-Server/internal/store"
)

// One row per account plus a separate profile row, joined by the
// identity UUID.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	uuid          TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	mail          TEXT NOT NULL DEFAULT '',
	sid           TEXT,
	sid_expiry    INTEGER,
	last_activity INTEGER,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_profiles (
	uuid TEXT PRIMARY KEY REFERENCES users(uuid) ON DELETE CASCADE,
	age  INTEGER NOT NULL
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAccount inserts a new account and its profile atomically.
func (s *SQLiteStore) CreateAccount(ctx context.Context, uuid, username, passwordHash, mail string, age int) (*store.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (uuid, username, password_hash, mail) VALUES (?, ?, ?, ?)`,
		uuid, username, passwordHash, mail,
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_profiles (uuid, age) VALUES (?, ?)`,
		uuid, age,
	); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetAccountByID(ctx, uuid)
}

// GetAccountByID retrieves an account by its identity UUID.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, uuid string) (*store.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.uuid, u.username, u.password_hash, u.mail,
		       COALESCE(u.sid, ''), COALESCE(u.sid_expiry, 0), COALESCE(u.last_activity, 0),
		       u.created_at, p.age
		FROM users u
		JOIN user_profiles p ON p.uuid = u.uuid
		WHERE u.uuid = ?`, uuid)

	var (
		acct       store.Account
		expiryMs   int64
		activityMs int64
	)
	err := row.Scan(&acct.UUID, &acct.Username, &acct.PasswordHash, &acct.Mail,
		&acct.SessionID, &expiryMs, &activityMs, &acct.CreatedAt, &acct.Age)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}

	if expiryMs != 0 {
		acct.SessionExpiry = time.UnixMilli(expiryMs)
	}
	if activityMs != 0 {
		acct.LastActivity = time.UnixMilli(activityMs)
	}
	return &acct, nil
}

// GetUUIDByName resolves a username to an identity UUID, case-insensitively.
func (s *SQLiteStore) GetUUIDByName(ctx context.Context, username string) (string, error) {
	var uuid string
	err := s.db.QueryRowContext(ctx,
		`SELECT uuid FROM users WHERE username = ? COLLATE NOCASE`, username,
	).Scan(&uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select uuid by name: %w", err)
	}
	return uuid, nil
}

// SetSession persists a session token and its expiry in one atomic update.
func (s *SQLiteStore) SetSession(ctx context.Context, uuid, token string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET sid = ?, sid_expiry = ?, last_activity = ? WHERE uuid = ?`,
		token, expiry.UnixMilli(), time.Now().UnixMilli(), uuid,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearSession invalidates the account's session. Idempotent.
func (s *SQLiteStore) ClearSession(ctx context.Context, uuid string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET sid = NULL, sid_expiry = NULL WHERE uuid = ?`, uuid,
	); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
