// Package rest exposes the identity API over HTTP with fiber.
package rest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/logging"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/dmitrijs2005/learnquest/internal/server/models"
	"github.com/dmitrijs2005/learnquest/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// bodyLimit leaves room for multipart framing around a maximum size avatar.
const bodyLimit = 8 * 1024 * 1024

// IdentityService is the credential side of the API.
type IdentityService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
	TokenTTL() time.Duration
}

// ProfileService is the profile side of the API.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
	UploadAvatar(ctx context.Context, userID string, up services.AvatarUpload) (*models.User, string, error)
}

// Options configure the HTTP surface.
type Options struct {
	Addr            string
	ClientOrigin    string
	SecureCookies   bool
	AvatarDir       string // served under /avatars when set
	ShutdownTimeout time.Duration
}

type Server struct {
	app          *fiber.App
	opts         Options
	identity     IdentityService
	profile      ProfileService
	logger       logging.Logger
	tokenSources []tokenSource
}

func NewServer(opts Options, identity IdentityService, profile ProfileService, l logging.Logger) *Server {
	s := &Server{
		opts:         opts,
		identity:     identity,
		profile:      profile,
		logger:       l.With("module", "http_server"),
		tokenSources: defaultTokenSources(),
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: s.logPanic,
	}))
	s.app.Use(requestLogger(s.logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.ClientOrigin,
		AllowCredentials: true,
	}))

	s.routes()

	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", s.signup)
	authGroup.Post("/login", s.login)
	authGroup.Post("/logout", s.logout)

	users := api.Group("/users")
	users.Get("/me", s.protected(s.getMe))
	users.Put("/me", s.protected(s.updateMe))
	users.Put("/me/avatar", s.protected(s.uploadAvatar))

	if s.opts.AvatarDir != "" {
		s.app.Static("/avatars", filepath.Join(s.opts.AvatarDir, "avatars"))
	}

	s.app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"msg": "Route not found"})
	})
}

// App exposes the fiber application, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Addr)
		errCh <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.app.ShutdownWithContext(shCtx)
}

func (s *Server) logPanic(c *fiber.Ctx, e any) {
	s.logger.Error(c.UserContext(), "panic recovered", "panic", e, "path", c.Path())
}
