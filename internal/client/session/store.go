// Package session keeps the client's signed-in state: the identity token and
// a cached copy of the user. The pair lives in memory for fast reads and in
// the SQLite metadata table so it survives restarts. Both halves are always
// written and removed in one transaction.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/learnquest/internal/client/events"
	"github.com/dmitrijs2005/learnquest/internal/client/models"
	"github.com/dmitrijs2005/learnquest/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/learnquest/internal/dbx"
	"github.com/dmitrijs2005/learnquest/internal/logging"
)

const (
	keyToken = "session.token"
	keyUser  = "session.user"
)

var (
	ErrNoSession  = errors.New("no active session")
	ErrEmptyToken = errors.New("empty token")
	// ErrSessionChanged means the session a write was meant for has since
	// been replaced or ended.
	ErrSessionChanged = errors.New("session changed")
)

// Cause says what triggered a session change.
type Cause string

const (
	CauseHydrate Cause = "hydrate"
	CauseLogin   Cause = "login"
	CauseLogout  Cause = "logout"
	CauseForced  Cause = "forced"
	CauseProfile Cause = "profile"
)

type Change struct {
	Cause  Cause
	Before models.Snapshot
	After  models.Snapshot
}

type Listener func(Change)

type Store struct {
	db     *sql.DB
	repo   func(dbx.DBTX) metadata.Repository
	logger logging.Logger

	mu   sync.RWMutex
	snap models.Snapshot

	lmu       sync.Mutex
	listeners []Listener
}

// NewStore returns an anonymous store. Call Hydrate to load a saved session.
func NewStore(db *sql.DB, l logging.Logger) *Store {
	return &Store{
		db: db,
		repo: func(db dbx.DBTX) metadata.Repository {
			return metadata.NewSQLiteRepository(db)
		},
		logger: l.With("module", "session"),
	}
}

// OnChange registers l to run after every transition that changes the
// snapshot. Listeners run on the goroutine that caused the change.
func (s *Store) OnChange(l Listener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) emit(c Change) {
	if c.Before == c.After {
		return
	}
	s.lmu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.lmu.Unlock()

	for _, l := range ls {
		l(c)
	}
}

// Hydrate loads the persisted session. It only reads local storage. A
// token without a user, a user without a token, or an unreadable user
// record is treated as no session and removed.
func (s *Store) Hydrate(ctx context.Context) (models.Snapshot, error) {
	s.mu.Lock()

	repo := s.repo(s.db)

	token, err := repo.Get(ctx, keyToken)
	if err != nil {
		s.mu.Unlock()
		return models.Snapshot{}, fmt.Errorf("read session: %w", err)
	}
	rawUser, err := repo.Get(ctx, keyUser)
	if err != nil {
		s.mu.Unlock()
		return models.Snapshot{}, fmt.Errorf("read session: %w", err)
	}

	next := models.Snapshot{}
	if len(token) > 0 && rawUser != nil {
		var u models.User
		if err := json.Unmarshal(rawUser, &u); err == nil {
			next = models.Snapshot{Token: string(token), User: u, LoggedIn: true}
		}
	}

	if !next.LoggedIn && (token != nil || rawUser != nil) {
		s.logger.Warn(ctx, "discarding incomplete saved session")
		if err := s.remove(ctx); err != nil {
			s.logger.Error(ctx, "failed to remove incomplete session", "error", err)
		}
	}

	before := s.snap
	s.snap = next
	s.mu.Unlock()

	s.emit(Change{Cause: CauseHydrate, Before: before, After: next})
	return next, nil
}

// Establish saves token and user and makes the store authenticated.
// Nothing changes if the write fails.
func (s *Store) Establish(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	rawUser, err := json.Marshal(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.Set(ctx, keyToken, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, rawUser)
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save session: %w", err)
	}

	before := s.snap
	s.snap = models.Snapshot{Token: token, User: user, LoggedIn: true}
	after := s.snap
	s.mu.Unlock()

	s.emit(Change{Cause: CauseLogin, Before: before, After: after})
	return nil
}

// Clear signs the user out locally. It can be called any number of times.
// The in-memory state is reset even when removing the saved copy fails.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.clearWhen(ctx, CauseLogout, func(models.Snapshot) bool { return true })
	return err
}

// ClearToken signs out only while token is still the current session token,
// so a rejection of an older session cannot end a newer one. It reports
// whether the session was cleared.
func (s *Store) ClearToken(ctx context.Context, token string) (bool, error) {
	return s.clearWhen(ctx, CauseForced, func(snap models.Snapshot) bool {
		return snap.LoggedIn && token != "" && snap.Token == token
	})
}

func (s *Store) clearWhen(ctx context.Context, cause Cause, match func(models.Snapshot) bool) (bool, error) {
	s.mu.Lock()
	if !match(s.snap) {
		s.mu.Unlock()
		return false, nil
	}
	err := s.remove(ctx)
	before := s.snap
	s.snap = models.Snapshot{}
	s.mu.Unlock()

	s.emit(Change{Cause: cause, Before: before, After: models.Snapshot{}})
	if err != nil {
		return true, fmt.Errorf("clear session: %w", err)
	}
	return true, nil
}

func (s *Store) remove(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).DeleteKeys(ctx, keyToken, keyUser)
	})
}

// ReplaceProfile swaps the cached user for user, a complete profile as the
// server returned it. An empty ID keeps the cached one.
func (s *Store) ReplaceProfile(ctx context.Context, token string, user models.User) error {
	return s.updateUser(ctx, token, user.ID, func(cached models.User) models.User {
		if user.ID == "" {
			user.ID = cached.ID
		}
		return user
	})
}

// MergeProfile folds partial profile data, such as a bare avatar URL, into
// the cached user. Empty fields keep their cached values.
func (s *Store) MergeProfile(ctx context.Context, token string, user models.User) error {
	return s.updateUser(ctx, token, user.ID, func(cached models.User) models.User {
		return cached.Merge(user)
	})
}

// updateUser rewrites the cached user of the session identified by token.
// The token itself is never touched. It fails with ErrSessionChanged when
// token is no longer current or id names a different identity.
func (s *Store) updateUser(ctx context.Context, token, id string, next func(models.User) models.User) error {
	s.mu.Lock()
	if !s.snap.LoggedIn {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.snap.Token != token || (id != "" && s.snap.User.ID != "" && id != s.snap.User.ID) {
		s.mu.Unlock()
		return ErrSessionChanged
	}

	updated := next(s.snap.User)
	rawUser, err := json.Marshal(updated)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.repo(s.db).Set(ctx, keyUser, rawUser); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save profile: %w", err)
	}

	before := s.snap
	s.snap.User = updated
	after := s.snap
	s.mu.Unlock()

	s.emit(Change{Cause: CauseProfile, Before: before, After: after})
	return nil
}

// Watch clears the store on force-logout events published on bus whose
// token is the current session token. Events for an older token are ignored.
// The returned function stops watching.
func (s *Store) Watch(bus *events.Bus) func() {
	return bus.Subscribe(events.ForceLogout, func(e events.Event) {
		ctx := context.Background()
		cleared, err := s.ClearToken(ctx, e.Token)
		if err != nil {
			s.logger.Error(ctx, "failed to clear session after forced logout", "error", err)
			return
		}
		if !cleared {
			s.logger.Debug(ctx, "ignoring forced logout for a previous session")
		}
	})
}

func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Token returns the current token or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Token
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.LoggedIn
}
