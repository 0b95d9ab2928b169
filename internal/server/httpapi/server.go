// Package httpapi exposes the services over a JSON HTTP API built on chi.
// It is the only layer that turns service errors into status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxUploadBytes = 32 << 20

type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

type Notes interface {
	SaveNote(ctx context.Context, userID, plaintext string) (string, error)
	ListNotes(ctx context.Context, userID string) ([]string, error)
}

type Files interface {
	SaveFile(ctx context.Context, userID, filename string, data []byte) (string, error)
	FetchFileForOwner(ctx context.Context, userID, fileID string) (string, []byte, error)
	ListFiles(ctx context.Context, userID string) ([]*models.File, error)
}

type AuditLog interface {
	List(ctx context.Context, userID string) ([]*models.AuditLogEntry, error)
}

// Authenticator resolves a session token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// SecureCookies sets the Secure attribute on the session cookie.
	SecureCookies  bool
	MaxUploadBytes int64
}

type Server struct {
	accounts Accounts
	notes    Notes
	files    Files
	audit    AuditLog
	authn    Authenticator
	log      logging.Logger
	opts     Options
}

func NewServer(accounts Accounts, notes Notes, files Files, audit AuditLog, authn Authenticator, log logging.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		accounts: accounts,
		notes:    notes,
		files:    files,
		audit:    audit,
		authn:    authn,
		log:      log.With("module", "httpapi"),
		opts:     opts,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/logout", s.logout)
			r.Get("/me", s.me)

			r.Get("/notes", s.listNotes)
			r.Post("/notes", s.saveNote)

			r.Get("/files", s.listFiles)
			r.Post("/files", s.uploadFile)
			r.Get("/files/{id}", s.downloadFile)

			r.Get("/audit", s.listAudit)
		})
	})

	return r
}

// NewHTTPServer wraps handler with the timeouts used in production.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
