// Package services contains the server's business logic: issuing session
// credentials, gating requests on them and managing the profile behind them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/dmitrijs2005/learnquest/internal/server/models"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/repomanager"
)

// SignupInput is the registration request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is what signup and login hand back: a token and the identity
// summary it belongs to.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.PublicUser
}

// IdentityService creates identities, exchanges credentials for tokens and
// verifies tokens presented on later requests. Tokens are stateless: nothing
// about a session is stored server-side.
type IdentityService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	tokens       *auth.TokenIssuer
	passwords    *auth.Passwords
	verifyExists bool
}

// NewIdentityService wires the service. With verifyExists set, Authenticate
// also requires the token's identity to still exist.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenIssuer, passwords *auth.Passwords, verifyExists bool) *IdentityService {
	return &IdentityService{
		db:           db,
		repomanager:  m,
		tokens:       tokens,
		passwords:    passwords,
		verifyExists: verifyExists,
	}
}

// TokenTTL is the lifetime of issued tokens, used for the cookie Max-Age.
func (s *IdentityService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Signup registers a new identity and signs it in.
func (s *IdentityService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	// The unique index still decides races; this only avoids hashing for
	// an address that is obviously taken.
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrDuplicateIdentity
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login exchanges email and password for a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := s.passwords.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return s.issue(user)
}

// Authenticate verifies a presented token. An empty token is
// common.ErrUnauthenticated; a bad or expired one is common.ErrInvalidToken
// or common.ErrTokenExpired.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, common.ErrUnauthenticated
	}

	id, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, err
	}

	if s.verifyExists {
		if _, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return auth.Identity{}, common.ErrInvalidToken
			}
			return auth.Identity{}, fmt.Errorf("lookup identity: %w", err)
		}
	}

	return id, nil
}

func (s *IdentityService) issue(user *models.User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: user.Public()}, nil
}
