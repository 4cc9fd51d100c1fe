package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ChristianSeip/SimpleChat-Server/internal/store"
)

var (
	// ErrRejected is the single opaque negative result of the credential
	// gate. Unknown identity, wrong credential and malformed input are not
	// distinguishable through it.
	ErrRejected = errors.New("authentication rejected")

	// ErrInvalidName is returned when the username fails validation or is
	// already taken.
	ErrInvalidName = errors.New("invalid or taken username")
	// ErrInvalidPassword is returned when the password fails validation.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidAge is returned when the age fails validation.
	ErrInvalidAge = errors.New("invalid age")
	// ErrInvalidMail is returned when the optional mail fails validation.
	ErrInvalidMail = errors.New("invalid mail")
)

// Credential key types accepted by Login.
const (
	KeyTypePassword = "password"
	KeyTypeSession  = "session"
)

// RegisterInput carries the validated registration fields.
type RegisterInput struct {
	Username string `validate:"required,alphanum,min=3,max=15"`
	Password string `validate:"required,min=4,max=30"`
	Age      int    `validate:"gte=18,lte=120"`
	Mail     string `validate:"omitempty,email,min=5,max=65"`
}

// LoginResult is a successful authentication with a freshly rotated session.
type LoginResult struct {
	Account *store.Account
	Token   string
	Expiry  time.Time
}

// Service is the credential gate and account service. It verifies
// (identity, credential) pairs against the account store, rotates session
// tokens, and handles registration.
type Service struct {
	store    store.UserStore
	sessions *SessionConfig
	validate *validator.Validate
	log      *zerolog.Logger
}

// NewService creates the credential gate backed by the given account store.
func NewService(userStore store.UserStore, sessions *SessionConfig, logger *zerolog.Logger) *Service {
	return &Service{
		store:    userStore,
		sessions: sessions,
		validate: validator.New(),
		log:      logger,
	}
}

// Register validates the registration fields, checks name availability and
// creates the account with a fresh identity UUID.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.Account, error) {
	in.Username = strings.TrimSpace(in.Username)

	if err := s.validate.Struct(in); err != nil {
		return nil, registerError(err)
	}

	available, err := s.NameAvailable(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrInvalidName
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.store.CreateAccount(ctx, uuid.NewString(), in.Username, hash, in.Mail, in.Age)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.log.Info().Str("uuid", acct.UUID).Str("username", acct.Username).Msg("account created")
	return acct, nil
}

// NameAvailable reports whether no account holds the username yet.
func (s *Service) NameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.store.GetUUIDByName(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve username: %w", err)
	}
	return false, nil
}

// Login establishes a new interactive session. The id is a username for the
// password key type and an identity UUID for the session key type. On
// success a new session token is minted and persisted, invalidating the
// previous one. Credential mismatches and unknown identities collapse to
// ErrRejected; storage faults are returned wrapped so the boundary can
// surface them as a generic retry dialog.
func (s *Service) Login(ctx context.Context, id, key, keyType string) (*LoginResult, error) {
	if id == "" || key == "" {
		return nil, ErrRejected
	}

	userID := id
	if keyType == KeyTypePassword {
		var err error
		userID, err = s.store.GetUUIDByName(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRejected
		}
		if err != nil {
			return nil, fmt.Errorf("resolve username: %w", err)
		}
	}

	acct, err := s.store.GetAccountByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRejected
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if err := s.verifyCredential(acct, key, keyType); err != nil {
		return nil, ErrRejected
	}

	token, expiry, err := MintSessionToken(s.sessions, acct.UUID)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}
	if err := s.store.SetSession(ctx, acct.UUID, token, expiry); err != nil {
		return nil, fmt.Errorf("persist session token: %w", err)
	}

	acct.SessionID = token
	acct.SessionExpiry = expiry
	return &LoginResult{Account: acct, Token: token, Expiry: expiry}, nil
}

// Authenticate re-validates a session credential for an in-session action
// and refreshes the persisted expiry, keeping idle-but-connected clients'
// tokens valid. Every failure, storage faults included, collapses to
// ErrRejected; details are only logged.
func (s *Service) Authenticate(ctx context.Context, userID, sid string) (*store.Account, error) {
	if userID == "" || sid == "" {
		return nil, ErrRejected
	}

	acct, err := s.store.GetAccountByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error().Err(err).Str("uuid", userID).Msg("account lookup failed")
		}
		return nil, ErrRejected
	}

	if err := s.verifyCredential(acct, sid, KeyTypeSession); err != nil {
		return nil, ErrRejected
	}

	if err := s.store.SetSession(ctx, acct.UUID, acct.SessionID, time.Now().Add(s.sessions.TTL)); err != nil {
		s.log.Error().Err(err).Str("uuid", userID).Msg("session refresh failed")
		return nil, ErrRejected
	}
	return acct, nil
}

// InvalidateSession clears the identity's persisted session.
func (s *Service) InvalidateSession(ctx context.Context, userID string) error {
	return s.store.ClearSession(ctx, userID)
}

// verifyCredential checks the key against either the stored password hash or
// the currently active session token. For session keys the stored copy is
// authoritative; the signature check guards against tokens this server never
// minted.
func (s *Service) verifyCredential(acct *store.Account, key, keyType string) error {
	switch keyType {
	case KeyTypePassword:
		return ComparePassword(acct.PasswordHash, key)
	case KeyTypeSession:
		if acct.SessionID == "" || acct.SessionID != key {
			return ErrRejected
		}
		claims, err := VerifySessionToken(s.sessions, key)
		if err != nil {
			return err
		}
		if claims.UUID != acct.UUID {
			return ErrRejected
		}
		return nil
	default:
		return ErrRejected
	}
}

// registerError maps field validation failures to the per-field sentinels the
// router turns into the user-facing dialogs.
func registerError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate registration: %w", err)
	}
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "Username":
			return ErrInvalidName
		case "Password":
			return ErrInvalidPassword
		case "Age":
			return ErrInvalidAge
		case "Mail":
			return ErrInvalidMail
		}
	}
	return fmt.Errorf("validate registration: %w", err)
}
