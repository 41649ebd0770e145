// Package users stores identities. Two implementations are provided: a
// PostgreSQL repository and a process-local in-memory one.
package users

import (
	"context"

	"github.com/dmitrijs2005/learnquest/internal/server/models"
)

// Repository persists identities.
//
// Create fails with common.ErrDuplicateIdentity when the email is taken.
// Lookups and updates fail with common.ErrorNotFound for unknown identities.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	SetAvatar(ctx context.Context, id string, avatarURL string) (*models.User, error)
}
