package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/client/client"
	"github.com/dmitrijs2005/learnquest/internal/client/config"
	"github.com/dmitrijs2005/learnquest/internal/client/events"
	"github.com/dmitrijs2005/learnquest/internal/client/services"
	"github.com/dmitrijs2005/learnquest/internal/client/session"
	"github.com/dmitrijs2005/learnquest/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	logger      logging.Logger
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.Mutex
	Mode Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	db, err := client.InitDatabase(ctx, c.SessionDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	bus := events.NewBus()
	store := session.NewStore(db, logger)
	store.Watch(bus)

	api, err := client.NewHTTPClient(c.ServerEndpointAddr, c.RequestTimeout, store, bus)
	if err != nil {
		db.Close()
		return nil, err
	}
	probe, err := client.NewHealthProbe(c.HealthAddr)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		config:      c,
		authService: services.NewAuthService(api, probe, store, logger),
		logger:      logger,
		db:          db,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
	store.OnChange(app.onSessionChange)

	return app, nil
}

// onSessionChange tells the user when the server ended their session.
func (a *App) onSessionChange(c session.Change) {
	if c.Cause == session.CauseForced && c.Before.LoggedIn {
		fmt.Fprintln(a.out, "\nYour session has expired or was revoked. Please log in again.")
	}
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		_ = a.authService.Close(ctx)
		if a.db != nil {
			_ = a.db.Close()
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.authService.Session().LoggedIn
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connection mode changed", "mode", mode)
		fmt.Fprintf(a.out, "\nSwitched to %s mode\n", mode)
	}
}

// checkOnline probes the server once and updates the mode.
func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
