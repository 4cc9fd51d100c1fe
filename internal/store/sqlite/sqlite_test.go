package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianSeip/SimpleChat-Server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct, err := s.CreateAccount(ctx, "uuid-1", "alice", "hash", "alice@example.com", 30)
	require.NoError(t, err)

	assert.Equal(t, "uuid-1", acct.UUID)
	assert.Equal(t, "alice", acct.Username)
	assert.Equal(t, "hash", acct.PasswordHash)
	assert.Equal(t, "alice@example.com", acct.Mail)
	assert.Equal(t, 30, acct.Age)
	assert.Empty(t, acct.SessionID)

	_, err = s.GetAccountByID(ctx, "no-such-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAccountRejectsDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "uuid-1", "alice", "hash", "", 30)
	require.NoError(t, err)

	// Same name with different casing must collide.
	_, err = s.CreateAccount(ctx, "uuid-2", "ALICE", "hash", "", 25)
	assert.Error(t, err)
}

func TestGetUUIDByNameIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "uuid-1", "Alice", "hash", "", 30)
	require.NoError(t, err)

	uuid, err := s.GetUUIDByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", uuid)

	_, err = s.GetUUIDByName(ctx, "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetAndClearSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "uuid-1", "alice", "hash", "", 30)
	require.NoError(t, err)

	expiry := time.Now().Add(15 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, s.SetSession(ctx, "uuid-1", "token-1", expiry))

	acct, err := s.GetAccountByID(ctx, "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", acct.SessionID)
	assert.True(t, acct.SessionExpiry.Equal(expiry))
	assert.False(t, acct.LastActivity.IsZero())

	require.NoError(t, s.ClearSession(ctx, "uuid-1"))
	acct, err = s.GetAccountByID(ctx, "uuid-1")
	require.NoError(t, err)
	assert.Empty(t, acct.SessionID)

	// Clearing twice stays a no-op.
	require.NoError(t, s.ClearSession(ctx, "uuid-1"))

	// Setting a session on an unknown account is a not-found error.
	assert.ErrorIs(t, s.SetSession(ctx, "ghost", "token", expiry), store.ErrNotFound)
}
