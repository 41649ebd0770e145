// Package services contains application services for the LearnQuest client.
// AuthService ties the request gateway to the session store: it opens and
// closes sessions, restores a saved session at startup, and keeps the cached
// profile current.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/learnquest/internal/client/client"
	"github.com/dmitrijs2005/learnquest/internal/client/models"
	"github.com/dmitrijs2005/learnquest/internal/client/session"
	"github.com/dmitrijs2005/learnquest/internal/common"
	"github.com/dmitrijs2005/learnquest/internal/logging"
)

// AuthService defines authentication and profile operations for the CLI.
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Signup(ctx context.Context, name, email string, password []byte) (models.User, error)
	Login(ctx context.Context, email string, password []byte) (models.User, error)
	Logout(ctx context.Context) error
	// Restore loads the saved session without touching the network, then
	// checks it with the server in the background. The channel receives the
	// check's result (nil when there was nothing to check) and is closed.
	Restore(ctx context.Context) (models.Snapshot, <-chan error, error)
	Profile(ctx context.Context) (models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.User, error)
	// UploadAvatar sends the image at path and returns its public URL.
	UploadAvatar(ctx context.Context, path string) (string, error)
	Ping(ctx context.Context) error
	Session() models.Snapshot
	Close(ctx context.Context) error
}

type authService struct {
	api    client.API
	probe  client.Pinger
	store  *session.Store
	logger logging.Logger
}

func NewAuthService(api client.API, probe client.Pinger, store *session.Store, l logging.Logger) AuthService {
	return &authService{api: api, probe: probe, store: store, logger: l.With("module", "auth_service")}
}

func (a *authService) Signup(ctx context.Context, name, email string, password []byte) (models.User, error) {
	resp, err := a.api.Signup(ctx, name, email, string(password))
	if err != nil {
		return models.User{}, err
	}
	if err := a.store.Establish(ctx, resp.Token, resp.User); err != nil {
		return models.User{}, err
	}
	return resp.User, nil
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (models.User, error) {
	resp, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return models.User{}, err
	}
	if err := a.store.Establish(ctx, resp.Token, resp.User); err != nil {
		return models.User{}, err
	}
	return resp.User, nil
}

// Logout tells the server and always signs out locally, whatever the server
// says.
func (a *authService) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		a.logger.Warn(ctx, "server logout failed, clearing local session anyway", "error", err)
	}
	a.api.ForgetCookies()
	return a.store.Clear(ctx)
}

func (a *authService) Restore(ctx context.Context) (models.Snapshot, <-chan error, error) {
	snap, err := a.store.Hydrate(ctx)
	if err != nil {
		return models.Snapshot{}, nil, err
	}

	done := make(chan error, 1)
	if !snap.LoggedIn {
		close(done)
		return snap, done, nil
	}

	go func() {
		defer close(done)
		done <- a.revalidate(ctx, snap.Token)
	}()

	return snap, done, nil
}

// revalidate checks the session identified by token. It drops that session
// only when the server rejects the token; network and server failures leave
// it in place. If the user has signed out or in again meanwhile, the reply
// is ignored.
func (a *authService) revalidate(ctx context.Context, token string) error {
	u, err := a.api.Me(ctx)
	switch {
	case err == nil:
		err := a.store.ReplaceProfile(ctx, token, *u)
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrSessionChanged) {
			a.logger.Debug(ctx, "session changed during revalidation, discarding profile")
			return nil
		}
		return err
	case errors.Is(err, client.ErrUnauthorized):
		if _, cerr := a.store.ClearToken(ctx, token); cerr != nil {
			a.logger.Error(ctx, "failed to clear rejected session", "error", cerr)
		}
		return err
	default:
		a.logger.Warn(ctx, "could not revalidate session, keeping it", "error", err)
		return err
	}
}

// currentToken returns the token of the active session or ErrNoSession.
func (a *authService) currentToken() (string, error) {
	token := a.store.Token()
	if token == "" {
		return "", session.ErrNoSession
	}
	return token, nil
}

func (a *authService) Profile(ctx context.Context) (models.User, error) {
	token, err := a.currentToken()
	if err != nil {
		return models.User{}, err
	}
	u, err := a.api.Me(ctx)
	if err != nil {
		return models.User{}, err
	}
	if err := a.store.ReplaceProfile(ctx, token, *u); err != nil {
		return models.User{}, err
	}
	return a.store.Snapshot().User, nil
}

func (a *authService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.User, error) {
	token, err := a.currentToken()
	if err != nil {
		return models.User{}, err
	}
	u, err := a.api.UpdateProfile(ctx, upd)
	if err != nil {
		return models.User{}, err
	}
	if err := a.store.ReplaceProfile(ctx, token, *u); err != nil {
		return models.User{}, err
	}
	return a.store.Snapshot().User, nil
}

func (a *authService) UploadAvatar(ctx context.Context, path string) (string, error) {
	token, err := a.currentToken()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	if fi.Size() > common.MaxAvatarSize {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", common.ErrFileTooLarge, fi.Size(), common.MaxAvatarSize)
	}

	resp, err := a.api.UploadAvatar(ctx, path, f)
	if err != nil {
		return "", err
	}

	// A reply with a user carries the whole profile; otherwise only the URL
	// is known.
	if resp.User.ID != "" {
		u := resp.User
		if u.Avatar == "" {
			u.Avatar = resp.AvatarURL
		}
		err = a.store.ReplaceProfile(ctx, token, u)
	} else {
		err = a.store.MergeProfile(ctx, token, models.User{Avatar: resp.AvatarURL})
	}
	if err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.probe.Ping(ctx)
}

func (a *authService) Session() models.Snapshot {
	return a.store.Snapshot()
}

func (a *authService) Close(ctx context.Context) error {
	return a.probe.Close()
}
