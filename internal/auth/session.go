package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionConfig holds the parameters for minting session tokens.
type SessionConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// SessionClaims are the claims embedded in a session token. The expiry is
// advisory for the client; the store's copy of the token and the inactivity
// reaper are the authoritative liveness checks.
type SessionClaims struct {
	UUID string `json:"uuid"`
	jwt.RegisteredClaims
}

// MintSessionToken creates a fresh signed session token for the identity.
// The random token ID makes every mint unique, which is what lets rotation
// invalidate the previous token by simple equality against the stored copy.
func MintSessionToken(cfg *SessionConfig, userID string) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(cfg.TTL)

	claims := SessionClaims{
		UUID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiry, nil
}

// VerifySessionToken checks the token signature and returns its claims.
// Claim validation is deliberately skipped: the embedded expiry is advisory,
// and a refreshed session outlives it.
func VerifySessionToken(cfg *SessionConfig, tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}
	return claims, nil
}
