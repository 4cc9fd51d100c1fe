package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zlog "github.com/ChristianSeip/SimpleChat-Server/internal/log"
	"github.com/ChristianSeip/SimpleChat-Server/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sessions := &SessionConfig{
		Secret: []byte("test-secret-change-me"),
		Issuer: "simplechat-test",
		TTL:    15 * time.Minute,
	}
	return NewService(st, sessions, zlog.Nop())
}

func register(t *testing.T, svc *Service, username, password string) string {
	t.Helper()

	acct, err := svc.Register(context.Background(), RegisterInput{
		Username: username,
		Password: password,
		Age:      30,
	})
	require.NoError(t, err)
	return acct.UUID
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"username too short", RegisterInput{Username: "ab", Password: "secret", Age: 30}, ErrInvalidName},
		{"username not alphanumeric", RegisterInput{Username: "al ice!", Password: "secret", Age: 30}, ErrInvalidName},
		{"password too short", RegisterInput{Username: "alice", Password: "abc", Age: 30}, ErrInvalidPassword},
		{"age below minimum", RegisterInput{Username: "alice", Password: "secret", Age: 17}, ErrInvalidAge},
		{"age above maximum", RegisterInput{Username: "alice", Password: "secret", Age: 121}, ErrInvalidAge},
		{"malformed mail", RegisterInput{Username: "alice", Password: "secret", Age: 30, Mail: "nope"}, ErrInvalidMail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterRejectsTakenName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice", "secret")

	// Availability is case-insensitive, like the original lookup.
	_, err := svc.Register(ctx, RegisterInput{Username: "ALICE", Password: "secret", Age: 25})
	assert.ErrorIs(t, err, ErrInvalidName)

	available, err := svc.NameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = svc.NameAvailable(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestLoginWithPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	uuid := register(t, svc, "alice", "secret")

	res, err := svc.Login(ctx, "alice", "secret", KeyTypePassword)
	require.NoError(t, err)
	assert.Equal(t, uuid, res.Account.UUID)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.Expiry.After(time.Now()))

	_, err = svc.Login(ctx, "alice", "wrong", KeyTypePassword)
	assert.ErrorIs(t, err, ErrRejected)

	// Unknown identity collapses to the same rejection.
	_, err = svc.Login(ctx, "mallory", "secret", KeyTypePassword)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestLoginRotatesSessionToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	uuid := register(t, svc, "alice", "secret")

	first, err := svc.Login(ctx, "alice", "secret", KeyTypePassword)
	require.NoError(t, err)

	second, err := svc.Login(ctx, uuid, first.Token, KeyTypeSession)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// The consumed token can no longer establish a session.
	_, err = svc.Login(ctx, uuid, first.Token, KeyTypeSession)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestAuthenticateRefreshesSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	uuid := register(t, svc, "alice", "secret")
	res, err := svc.Login(ctx, "alice", "secret", KeyTypePassword)
	require.NoError(t, err)

	// Re-validation does not rotate: the same token keeps working.
	for i := 0; i < 3; i++ {
		acct, err := svc.Authenticate(ctx, uuid, res.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", acct.Username)
	}

	_, err = svc.Authenticate(ctx, uuid, "forged-token")
	assert.ErrorIs(t, err, ErrRejected)

	// Missing identity or credential is a normal negative result.
	_, err = svc.Authenticate(ctx, "", res.Token)
	assert.ErrorIs(t, err, ErrRejected)
	_, err = svc.Authenticate(ctx, uuid, "")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestInvalidateSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	uuid := register(t, svc, "alice", "secret")
	res, err := svc.Login(ctx, "alice", "secret", KeyTypePassword)
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateSession(ctx, uuid))

	_, err = svc.Authenticate(ctx, uuid, res.Token)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestVerifySessionTokenRejectsForeignSignature(t *testing.T) {
	cfg := &SessionConfig{Secret: []byte("right-secret"), Issuer: "simplechat", TTL: time.Minute}
	other := &SessionConfig{Secret: []byte("wrong-secret"), Issuer: "simplechat", TTL: time.Minute}

	token, _, err := MintSessionToken(other, "uuid-1")
	require.NoError(t, err)

	_, err = VerifySessionToken(cfg, token)
	assert.Error(t, err)
}
