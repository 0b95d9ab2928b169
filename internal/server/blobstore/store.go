// Package blobstore keeps encrypted file payloads outside the database.
// Callers hand it vault output only; it never sees plaintext.
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is a flat key/value object store.
// Get returns common.ErrorNotFound for unknown keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageKey returns a fresh object key of the form users/<y>/<m>/<d>/<uuid>.
func NewStorageKey(now time.Time) string {
	return fmt.Sprintf("users/%d/%d/%d/%v", now.Year(), now.Month(), now.Day(), uuid.New())
}
