package services

import (
	"context"

	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

// SessionGuard is the part of *auth.Guard the services depend on.
type SessionGuard interface {
	Issue(ctx context.Context, userID string) (string, *models.Session, error)
	Revoke(ctx context.Context, token string) (string, error)
	RequireAuthenticated(ctx context.Context) (string, error)
	RequireOwner(ctx context.Context, ownerID string) error
}

// Sealer encrypts and authenticates user content. *cryptox.Vault implements it.
type Sealer interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
