package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/server/imagestore"
	"github.com/dmitrijs2005/learnquest/internal/server/models"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/repomanager"
)

// AvatarUpload is one uploaded image.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProfileService reads and changes the profile of an authenticated identity.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	images      imagestore.Store
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, images imagestore.Store) *ProfileService {
	return &ProfileService{db: db, repomanager: m, images: images}
}

// Get returns the identity's profile or common.ErrorNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// Update applies the set fields of upd. An update with no recognised field
// is common.ErrNoValidFields; an invalid value is common.ErrValidation.
func (s *ProfileService) Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	if upd.Empty() {
		return nil, common.ErrNoValidFields
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		upd.Email = &email
	}

	user, err := s.repomanager.Users(s.db).UpdateProfile(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// UploadAvatar stores an image of at most common.MaxAvatarSize bytes and
// records its URL on the identity. It returns the updated identity and the
// URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, up AvatarUpload) (*models.User, string, error) {
	if up.Body == nil {
		return nil, "", common.ErrNoFile
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return nil, "", common.ErrUnsupportedMedia
	}
	if up.Size > common.MaxAvatarSize {
		return nil, "", common.ErrFileTooLarge
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByID(ctx, userID); err != nil {
		return nil, "", err
	}

	key := imagestore.AvatarKey(userID, up.Filename, up.ContentType)
	body := io.LimitReader(up.Body, common.MaxAvatarSize)

	url, err := s.images.Put(ctx, key, up.ContentType, body, up.Size)
	if err != nil {
		return nil, "", fmt.Errorf("store avatar: %w", err)
	}

	user, err := repo.SetAvatar(ctx, userID, url)
	if err != nil {
		return nil, "", err
	}
	return user, url, nil
}
