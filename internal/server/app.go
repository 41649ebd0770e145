// Package server assembles the identity server: storage, credential services,
// the HTTP API and the gRPC health endpoint, and runs them until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/logging"
	"github.com/dmitrijs2005/learnquest/internal/server/auth"
	"github.com/dmitrijs2005/learnquest/internal/server/config"
	"github.com/dmitrijs2005/learnquest/internal/server/imagestore"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnquest/internal/server/rest"
	"github.com/dmitrijs2005/learnquest/internal/server/services"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/dmitrijs2005/learnquest/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *rest.Server
	health *gs.HealthServer
}

// openDB is a seam for tests.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, rm, err := openStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	passwords, err := auth.NewPasswords(c.PasswordHasher, auth.DefaultArgon2Params(), bcrypt.DefaultCost)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	key, err := auth.SigningKey(ctx, c.SecretKey, logger)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	tokens := auth.NewTokenIssuer(key, c.TokenTTL)

	images, avatarDir, err := openImageStore(ctx, c)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("image store init error: %w", err)
	}

	identity := services.NewIdentityService(db, rm, tokens, passwords, c.VerifyIdentityOnRequest)
	profile := services.NewProfileService(db, rm, images)

	httpServer := rest.NewServer(rest.Options{
		Addr:            c.HTTPAddr,
		ClientOrigin:    c.ClientOrigin,
		SecureCookies:   c.Production,
		AvatarDir:       avatarDir,
		ShutdownTimeout: c.ShutdownTimeout,
	}, identity, profile, logger)

	var pinger gs.Pinger
	if db != nil {
		pinger = db
	}
	health := gs.NewHealthServer(c.GRPCHealthAddr, logger, pinger, 5*time.Second)

	return &App{config: c, logger: logger, db: db, http: httpServer, health: health}, nil
}

func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	switch c.StorageBackend {
	case config.StorageMemory:
		return nil, repomanager.NewInMemoryRepositoryManager(), nil
	case config.StoragePostgres, "":
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	return db, rm, nil
}

// openImageStore returns the store and, for the local backend, the
// directory the HTTP server should expose.
func openImageStore(ctx context.Context, c *config.Config) (imagestore.Store, string, error) {
	switch c.ImageStore {
	case config.ImageStoreS3:
		s, err := imagestore.NewS3Store(ctx, imagestore.S3Config{
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			PublicURL:    c.S3PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case config.ImageStoreLocal, "":
		s, err := imagestore.NewLocalStore(c.AvatarDir, c.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, s.Root(), nil
	default:
		return nil, "", fmt.Errorf("unknown image store %q", c.ImageStore)
	}
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until ctx is canceled, a signal arrives or either server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server failed", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.health.Run(ctx); err != nil {
			app.logger.Error(ctx, "health server failed", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	closeDB(app.db)
	app.logger.Info(context.Background(), "App stopped")
}
