// Package notes provides PostgreSQL-backed storage for encrypted notes.
package notes

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

// PostgresRepository implements note storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores an already encrypted note and fills in its id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO secure_notes (user_id, ciphertext)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, note.UserID, note.Ciphertext).Scan(&note.ID, &note.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return note, nil
}

// ListByUser returns the user's notes in insertion order.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Note, error) {
	query := `
		SELECT id, user_id, ciphertext, created_at FROM secure_notes
		WHERE user_id = $1
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		var item models.Note
		if err := rows.Scan(&item.ID, &item.UserID, &item.Ciphertext, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
