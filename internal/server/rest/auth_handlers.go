package rest

import (
	"github.com/dmitrijs2005/learnquest/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	res, err := s.identity.Signup(c.UserContext(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	s.setSessionCookie(c, res.Token, res.ExpiresAt)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"msg":   "User created successfully",
		"user":  res.User,
		"token": res.Token,
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	res, err := s.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	s.setSessionCookie(c, res.Token, res.ExpiresAt)

	return c.JSON(fiber.Map{
		"msg":   "Login successful",
		"user":  res.User,
		"token": res.Token,
	})
}

// logout only drops the cookie. Tokens are stateless and stay valid until
// they expire.
func (s *Server) logout(c *fiber.Ctx) error {
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"msg": "Logout successful"})
}
