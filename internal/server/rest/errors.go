package rest

import (
	"errors"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/gofiber/fiber/v2"
)

// Error codes let clients tell 401 causes apart without parsing messages.
const (
	codeUnauthenticated = "unauthenticated"
	codeInvalidToken    = "invalid_token"
)

var errBadBody = errors.New("invalid request body")

// errorResponse maps a handler error onto a status and JSON body. ok is
// false for errors that have no client-facing meaning.
func errorResponse(err error) (status int, body fiber.Map, ok bool) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		return fiber.StatusUnauthorized, fiber.Map{"msg": "No token, authorization denied", "code": codeUnauthenticated}, true
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return fiber.StatusUnauthorized, fiber.Map{"msg": "Token is not valid", "code": codeInvalidToken}, true
	case errors.Is(err, common.ErrDuplicateIdentity):
		return fiber.StatusBadRequest, fiber.Map{"msg": "Email already exists"}, true
	case errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusBadRequest, fiber.Map{"msg": "Invalid email or password"}, true
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound, fiber.Map{"msg": "User not found"}, true
	case errors.Is(err, common.ErrNoValidFields):
		return fiber.StatusBadRequest, fiber.Map{"msg": "No valid fields to update"}, true
	case errors.Is(err, common.ErrValidation):
		return fiber.StatusBadRequest, fiber.Map{"msg": "Validation error", "error": err.Error()}, true
	case errors.Is(err, common.ErrNoFile):
		return fiber.StatusBadRequest, fiber.Map{"msg": "No file uploaded"}, true
	case errors.Is(err, common.ErrFileTooLarge):
		return fiber.StatusBadRequest, fiber.Map{"msg": "File too large"}, true
	case errors.Is(err, common.ErrUnsupportedMedia):
		return fiber.StatusBadRequest, fiber.Map{"msg": "Only image files are allowed"}, true
	case errors.Is(err, errBadBody):
		return fiber.StatusBadRequest, fiber.Map{"msg": "Invalid request body"}, true
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusRequestEntityTooLarge:
			return fe.Code, fiber.Map{"msg": "File too large"}, true
		case fiber.StatusNotFound:
			return fe.Code, fiber.Map{"msg": "Route not found"}, true
		}
		if fe.Code < fiber.StatusInternalServerError {
			return fe.Code, fiber.Map{"msg": fe.Message}, true
		}
	}

	return fiber.StatusInternalServerError, fiber.Map{"msg": "Server error"}, false
}

// handleError is the fiber error handler. Unexpected errors are logged and
// answered with a generic 500.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, body, ok := errorResponse(err)
	if !ok {
		s.logger.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(body)
}
