package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/dbx"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/dmitrijs2005/learnquest/internal/server/models"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errDB = errors.New("db down")

var testArgon = auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func newPasswords(t *testing.T) *auth.Passwords {
	t.Helper()
	p, err := auth.NewPasswords(auth.HasherArgon2id, testArgon, bcrypt.MinCost)
	require.NoError(t, err)
	return p
}

func newIdentityService(t *testing.T, m repomanager.RepositoryManager, verifyExists bool) *IdentityService {
	t.Helper()
	return NewIdentityService(nil, m, auth.NewTokenIssuer([]byte("k"), 24*time.Hour), newPasswords(t), verifyExists)
}

// brokenRepo fails every call with errDB.
type brokenRepo struct{}

func (brokenRepo) Create(context.Context, *models.User) (*models.User, error) { return nil, errDB }
func (brokenRepo) GetByEmail(context.Context, string) (*models.User, error)   { return nil, errDB }
func (brokenRepo) GetByID(context.Context, string) (*models.User, error)      { return nil, errDB }
func (brokenRepo) UpdateProfile(context.Context, string, models.ProfileUpdate) (*models.User, error) {
	return nil, errDB
}
func (brokenRepo) SetAvatar(context.Context, string, string) (*models.User, error) { return nil, errDB }

type brokenManager struct{}

func (brokenManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (brokenManager) Users(dbx.DBTX) users.Repository             { return brokenRepo{} }
