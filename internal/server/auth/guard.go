// Package auth implements session tokens and the access checks every
// content operation goes through.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/metrics"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/sessions"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Guard issues, resolves and revokes sessions, and answers ownership checks.
// It is safe for concurrent use.
type Guard struct {
	sessions sessions.Repository
	secret   []byte
	validity time.Duration
	cache    *expirable.LRU[string, *models.Session]
	log      logging.Logger
	now      func() time.Time
}

// NewGuard builds a Guard. Sessions are cached for at most validity; a
// cacheSize of zero or less makes the cache unbounded.
func NewGuard(repo sessions.Repository, secret []byte, validity time.Duration, cacheSize int, log logging.Logger) *Guard {
	return &Guard{
		sessions: repo,
		secret:   secret,
		validity: validity,
		cache:    expirable.NewLRU[string, *models.Session](cacheSize, nil, validity),
		log:      log.With("module", "auth"),
		now:      time.Now,
	}
}

// Issue creates a session for userID and returns the signed token for it.
func (g *Guard) Issue(ctx context.Context, userID string) (string, *models.Session, error) {
	s, err := g.sessions.Create(ctx, &models.Session{
		UserID:    userID,
		ExpiresAt: g.now().Add(g.validity).UTC(),
	})
	if err != nil {
		return "", nil, err
	}

	token, err := GenerateToken(userID, s.ID, g.secret, s.ExpiresAt)
	if err != nil {
		return "", nil, err
	}

	g.cache.Add(s.ID, s)
	return token, s, nil
}

// Authenticate resolves a token to its user id. Any failure, including a
// storage error, yields an error wrapping common.ErrUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrUnauthenticated
	}

	claims, err := ParseToken(token, g.secret, jwt.WithTimeFunc(g.now))
	if err != nil {
		reason := metrics.ReasonBadToken
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = metrics.ReasonExpired
		}
		metrics.AuthFailures.WithLabelValues(reason).Inc()
		return "", fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	s, err := g.lookup(ctx, claims.ID)
	if err != nil {
		return "", err
	}

	if s.UserID != claims.UserID {
		g.log.Warn(ctx, "token user does not match session", "session_id", s.ID)
		metrics.AuthFailures.WithLabelValues(metrics.ReasonBadToken).Inc()
		return "", fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrInvalidToken)
	}

	if s.Expired(g.now()) {
		g.cache.Remove(s.ID)
		metrics.AuthFailures.WithLabelValues(metrics.ReasonExpired).Inc()
		return "", fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrSessionExpired)
	}

	return s.UserID, nil
}

func (g *Guard) lookup(ctx context.Context, sessionID string) (*models.Session, error) {
	if s, ok := g.cache.Get(sessionID); ok {
		metrics.SessionCacheHits.Inc()
		return s, nil
	}
	metrics.SessionCacheMisses.Inc()

	s, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthFailures.WithLabelValues(metrics.ReasonNoSession).Inc()
			return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrSessionExpired)
		}
		g.log.Error(ctx, "session lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	g.cache.Add(s.ID, s)
	return s, nil
}

// Revoke ends the session behind token. An already expired token can still
// be revoked as long as its signature is valid.
func (g *Guard) Revoke(ctx context.Context, token string) (string, error) {
	claims, err := ParseToken(token, g.secret, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	g.cache.Remove(claims.ID)
	if err := g.sessions.Delete(ctx, claims.ID); err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// PurgeExpired drops expired sessions from storage.
func (g *Guard) PurgeExpired(ctx context.Context) (int64, error) {
	return g.sessions.DeleteExpired(ctx, g.now())
}

// RequireAuthenticated returns the caller's user id from ctx.
func (g *Guard) RequireAuthenticated(ctx context.Context) (string, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return "", common.ErrUnauthenticated
	}
	return id, nil
}

// RequireOwner allows the call only when the authenticated caller is ownerID.
// There is no admin override.
func (g *Guard) RequireOwner(ctx context.Context, ownerID string) error {
	id, err := g.RequireAuthenticated(ctx)
	if err != nil {
		return err
	}
	if ownerID == "" || id != ownerID {
		return common.ErrForbidden
	}
	return nil
}
