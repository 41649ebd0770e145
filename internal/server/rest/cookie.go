package rest

import (
	"time"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/gofiber/fiber/v2"
)

// setSessionCookie stores the token in an HttpOnly, SameSite=Strict cookie
// that lives as long as the token.
func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.identity.TokenTTL().Seconds()),
		Expires:  expires,
		Secure:   s.opts.SecureCookies,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// clearSessionCookie overwrites the cookie with an expired one carrying the
// same attributes, so browsers drop it.
func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		Secure:   s.opts.SecureCookies,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
