// Package server wires the SecureCloud components together and runs the
// HTTP API until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/blobstore"
	"github.com/dmitrijs2005/securecloud/internal/server/config"
	"github.com/dmitrijs2005/securecloud/internal/server/httpapi"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/securecloud/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	sessionPurgeInterval = 10 * time.Minute
	shutdownTimeout      = 15 * time.Second
)

// seams for tests
var (
	openDB    = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }
	newS3Blob = func(ctx context.Context, opts blobstore.S3Options) (s3Bucket, error) {
		return blobstore.NewS3Store(ctx, opts)
	}
)

type s3Bucket interface {
	blobstore.Store
	EnsureBucket(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	guard  *auth.Guard
	api    *httpapi.Server
}

// NewApp connects to the database, applies migrations and builds every
// service. The returned App owns the database pool.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, ParseLevel(c.LogLevel))

	vault, err := BuildVault(c.VaultKey, c.RequireVault)
	if err != nil {
		return nil, err
	}
	if verr := vault.Err(); verr != nil {
		logger.Error(ctx, "vault key is not usable, encrypted content is disabled", "error", verr)
	}

	if err := ensureSessionSecret(ctx, c, logger); err != nil {
		return nil, err
	}

	blobs, err := buildBlobStore(ctx, c)
	if err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	guard := auth.NewGuard(m.Sessions(db), []byte(c.SecretKey), c.SessionValidityDuration, c.SessionCacheSize, logger)
	audit := services.NewAuditService(db, m, guard, logger)
	users := services.NewUserService(db, m, guard, audit, logger)
	notes := services.NewNoteService(db, m, guard, vault, audit, logger)
	files := services.NewFileService(db, m, guard, vault, blobs, audit, logger)

	api := httpapi.NewServer(users, notes, files, audit, guard, logger, apiOptions(c))

	return &App{config: c, logger: logger, db: db, guard: guard, api: api}, nil
}

// ensureSessionSecret fills in a random JWT secret when none is configured.
func ensureSessionSecret(ctx context.Context, c *config.Config, logger logging.Logger) error {
	if c.SecretKey != "" {
		return nil
	}
	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return fmt.Errorf("session secret: %w", err)
	}
	c.SecretKey = secret
	logger.Warn(ctx, "no session secret configured, using a random one; sessions will not survive a restart")
	return nil
}

func apiOptions(c *config.Config) httpapi.Options {
	return httpapi.Options{
		AllowedOrigins: c.AllowedOrigins,
		SecureCookies:  c.SecureCookies,
	}
}

// BuildVault turns the configured key into a vault. With require set a bad
// key is fatal, otherwise the returned vault refuses every operation.
func BuildVault(key string, require bool) (*cryptox.Vault, error) {
	v, err := cryptox.NewVault(key)
	if err == nil {
		return v, nil
	}
	if require {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return cryptox.UnavailableVault(err), nil
}

func buildBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobStore {
	case config.BlobStoreMemory:
		return blobstore.NewMemoryStore(), nil
	case config.BlobStoreS3, "":
		s, err := newS3Blob(ctx, blobstore.S3Options{
			Region:    c.S3Region,
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Endpoint:  c.S3BaseEndpoint,
			Bucket:    c.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob store %q", c.BlobStore)
	}
}

// ParseLevel maps a config level name to a slog level. Unknown names give info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.api.Router())

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "HTTP server listening", "addr", app.config.EndpointAddrHTTP)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
		}
		cancelFunc()
	case <-ctx.Done():
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			app.logger.Error(shCtx, "http shutdown", "error", err)
		}
	}
}

// purgeSessions drops expired session rows until ctx is done.
func (app *App) purgeSessions(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.guard.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					app.logger.Warn(ctx, "session purge failed", "error", err)
				}
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled or the listener fails, then waits for
// the background workers and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeSessions(ctx, sessionPurgeInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}
