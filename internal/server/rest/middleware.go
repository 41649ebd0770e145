package rest

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/logging"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/gofiber/fiber/v2"
)

// tokenSource returns a candidate token from one place in the request, or "".
type tokenSource func(c *fiber.Ctx) string

// defaultTokenSources: the session cookie first, then the bearer header.
func defaultTokenSources() []tokenSource {
	return []tokenSource{
		fromCookie(common.TokenCookieName),
		fromBearer(common.AuthorizationScheme),
	}
}

func fromCookie(name string) tokenSource {
	return func(c *fiber.Ctx) string {
		return c.Cookies(name)
	}
}

// fromBearer reads "Authorization: <scheme> <token>"; the scheme is
// case-insensitive.
func fromBearer(scheme string) tokenSource {
	prefix := scheme + " "
	return func(c *fiber.Ctx) string {
		h := c.Get(fiber.HeaderAuthorization)
		if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
			return ""
		}
		return strings.TrimSpace(h[len(prefix):])
	}
}

func extractToken(c *fiber.Ctx, sources []tokenSource) string {
	for _, src := range sources {
		if t := src(c); t != "" {
			return t
		}
	}
	return ""
}

// protectedHandler is a handler that runs only for a verified identity,
// which it receives as an argument.
type protectedHandler func(c *fiber.Ctx, id auth.Identity) error

// protected gates h on a valid token. Rejections are returned as errors and
// rendered by the error handler.
func (s *Server) protected(h protectedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.identity.Authenticate(c.UserContext(), extractToken(c, s.tokenSources))
		if err != nil {
			return err
		}
		return h(c, id)
	}
}

// requestLogger logs one line per request. Errors from the chain are
// rendered here so the logged status is the one the client receives.
func requestLogger(l logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		l.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start).String(),
		)
		return nil
	}
}
