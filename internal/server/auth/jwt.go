// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// signingKeySize is the length of a generated key when none is configured.
const signingKeySize = 64

// Identity is the verified subject of a session token.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 session tokens. The subject claim
// carries the user id. It holds no mutable state and is safe for concurrent
// use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed token for userID and its expiry.
func (t *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Verify checks signature, algorithm and expiry. It returns
// common.ErrTokenExpired for expired tokens and common.ErrInvalidToken for
// anything else that fails.
func (t *TokenIssuer) Verify(tokenString string) (Identity, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// SigningKey returns secret as bytes. An empty secret yields a random key
// and a warning, since tokens signed with it die with the process.
func SigningKey(ctx context.Context, secret string, log logging.Logger) ([]byte, error) {
	if secret != "" {
		return []byte(secret), nil
	}
	log.Warn(ctx, "no signing secret configured, using a random key; sessions will not survive a restart")
	key, err := common.GenerateRandByteArray(signingKeySize)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}
