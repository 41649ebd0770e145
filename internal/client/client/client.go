package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/learnquest/internal/client/models"
)

// API is the identity server surface the client services depend on.
type API interface {
	Signup(ctx context.Context, name, email, password string) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error)
	UploadAvatar(ctx context.Context, filename string, body io.ReadSeeker) (*AvatarResponse, error)
	// ForgetCookies drops any session cookie the transport is holding.
	ForgetCookies()
}

// Pinger checks whether the server is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Msg   string      `json:"msg"`
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type AvatarResponse struct {
	Msg       string      `json:"msg"`
	User      models.User `json:"user"`
	AvatarURL string      `json:"avatarUrl"`
}
