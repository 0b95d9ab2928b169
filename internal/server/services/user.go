// Package services contains server-side business logic: account
// registration and login, the audit trail, and encrypted notes and files.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/metrics"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// UserService provides account operations:
//   - Register: create users with argon2id password hashes
//   - Verify: check credentials
//   - Login / Logout: open and close sessions, with audit entries
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       SessionGuard
	audit       *AuditService
	log         logging.Logger
	params      cryptox.Argon2Params

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, guard SessionGuard, audit *AuditService, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		guard:       guard,
		audit:       audit,
		log:         log.With("module", "users"),
		params:      cryptox.DefaultArgon2Params,
	}
}

// Register creates a user. Uniqueness is decided by the database in a single
// insert; a conflict comes back as *common.DuplicateError naming the field,
// checking username before email.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = normalizeUsername(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", common.ErrorValidation)
	}

	pw := []byte(password)
	hash, err := cryptox.HashPassword(pw, s.params)
	common.WipeByteArray(pw)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, &models.User{UserName: username, Email: email, PasswordHash: hash})
	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			return nil, s.classifyDuplicate(ctx, username, constraint)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *UserService) classifyDuplicate(ctx context.Context, username, constraint string) error {
	exists, err := s.repomanager.Users(s.db).ExistsByUserName(ctx, username)
	if err != nil {
		s.log.Warn(ctx, "duplicate classification fell back to constraint name", "constraint", constraint, "error", err)
		if constraint == "users_email_key" {
			return &common.DuplicateError{Field: "email"}
		}
		return &common.DuplicateError{Field: "username"}
	}
	if exists {
		return &common.DuplicateError{Field: "username"}
	}
	return &common.DuplicateError{Field: "email"}
}

// normalizeUsername is applied on every path that stores or looks up a
// username, so "alice " and "alice" name the same account.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// Verify checks username and password. Unknown users and wrong passwords
// both yield common.ErrorUnauthorized after the same amount of hashing work.
func (s *UserService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, normalizeUsername(username))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "user lookup failed", "error", err)
			return nil, common.ErrorInternal
		}
		_, _ = cryptox.VerifyPassword(pw, s.getDummyHash())
		metrics.AuthFailures.WithLabelValues(metrics.ReasonBadCredentials).Inc()
		return nil, common.ErrorUnauthorized
	}

	ok, err := cryptox.VerifyPassword(pw, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash is unreadable", "user_id", user.ID, "error", err)
		return nil, common.ErrorUnauthorized
	}
	if !ok {
		metrics.AuthFailures.WithLabelValues(metrics.ReasonBadCredentials).Inc()
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// Login verifies credentials, opens a session and records "Logged in".
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, session, err := s.guard.Issue(ctx, user.ID)
	if err != nil {
		s.log.Error(ctx, "session issue failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.audit.Record(ctx, user.ID, ActionLoggedIn)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout revokes the session behind token and records "Logged out".
func (s *UserService) Logout(ctx context.Context, token string) error {
	userID, err := s.guard.Revoke(ctx, token)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, userID, ActionLoggedOut)
	return nil
}

// ListUsers returns all accounts without password hashes.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

func (s *UserService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPassword(common.GenerateRandByteArray(16), s.params)
		if err != nil {
			panic(err)
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
