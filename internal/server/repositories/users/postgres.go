package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/dbx"
	"github.com/dmitrijs2005/learnquest/internal/server/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, avatar, bio, location, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user, assigning a new UUID when ID is empty.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, email, password_hash, name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapWriteError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// UpdateProfile changes only the fields set in upd in a single statement.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	query :=
		`UPDATE users SET
		   name = COALESCE($2, name),
		   email = COALESCE($3, email),
		   bio = COALESCE($4, bio),
		   location = COALESCE($5, location),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.scanOne(ctx, query, id,
		nullable(upd.Name), nullable(upd.Email), nullable(upd.Bio), nullable(upd.Location))
}

func (r *PostgresRepository) SetAvatar(ctx context.Context, id string, avatarURL string) (*models.User, error) {
	query :=
		`UPDATE users SET avatar = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.scanOne(ctx, query, id, avatarURL)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar, &u.Bio, &u.Location, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapWriteError(err)
	}

	return u, nil
}

func mapWriteError(err error) error {
	if dbx.IsUniqueViolation(err) {
		return common.ErrDuplicateIdentity
	}
	return fmt.Errorf("db error: %w", err)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
