package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Account is a registered user together with its profile and the currently
// active session credential. SessionID is empty when no session is active.
type Account struct {
	UUID         string
	Username     string
	PasswordHash string
	Mail         string
	Age          int

	SessionID     string
	SessionExpiry time.Time
	LastActivity  time.Time

	CreatedAt time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateAccount inserts a new account and its profile atomically.
	CreateAccount(ctx context.Context, uuid, username, passwordHash, mail string, age int) (*Account, error)

	// GetAccountByID retrieves an account by its identity UUID.
	GetAccountByID(ctx context.Context, uuid string) (*Account, error)

	// GetUUIDByName resolves a username to an identity UUID. The lookup is
	// case-insensitive.
	GetUUIDByName(ctx context.Context, username string) (string, error)

	// SetSession persists a session token and its expiry for the account in
	// a single atomic update, advancing the stored last-activity instant.
	SetSession(ctx context.Context, uuid, token string, expiry time.Time) error

	// ClearSession invalidates the account's session. Clearing an account
	// without an active session is a no-op.
	ClearSession(ctx context.Context, uuid string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore

	// Close closes the underlying database connection.
	Close() error
}
