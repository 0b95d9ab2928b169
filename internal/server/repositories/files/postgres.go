// Package files provides PostgreSQL-backed metadata storage for encrypted
// files. The ciphertext itself lives in the blob store.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the metadata row and fills in id and created_at.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO encrypted_files (user_id, filename, size, storage_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, file.UserID, file.Filename, file.Size, file.StorageKey).
		Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	file.CreatedAt = file.CreatedAt.UTC()
	return file, nil
}

// GetByID returns a file row. Malformed ids are reported as not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, user_id, filename, size, storage_key, created_at FROM encrypted_files
		WHERE id = $1
	`

	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.UserID, &f.Filename, &f.Size, &f.StorageKey, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return f, nil
}

// ListByUser returns metadata for every file the user uploaded, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := `
		SELECT id, user_id, filename, size, storage_key, created_at FROM encrypted_files
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.UserID, &item.Filename, &item.Size, &item.StorageKey, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
