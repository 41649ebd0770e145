package rest

import (
	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/dmitrijs2005/learnquest/internal/server/models"
	"github.com/dmitrijs2005/learnquest/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) getMe(c *fiber.Ctx, id auth.Identity) error {
	user, err := s.profile.Get(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// updateMe accepts any subset of name, email, bio and location. Other keys
// are ignored; a body with none of them is rejected.
func (s *Server) updateMe(c *fiber.Ctx, id auth.Identity) error {
	var upd models.ProfileUpdate
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&upd); err != nil {
			return errBadBody
		}
	}

	user, err := s.profile.Update(c.UserContext(), id.UserID, upd)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (s *Server) uploadAvatar(c *fiber.Ctx, id auth.Identity) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return common.ErrNoFile
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	user, url, err := s.profile.UploadAvatar(c.UserContext(), id.UserID, services.AvatarUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"msg":       "Avatar uploaded successfully",
		"user":      user,
		"avatarUrl": url,
	})
}
