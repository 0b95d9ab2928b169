// Package auditlogs provides the append-only audit trail table.
package auditlogs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends an entry. A zero Timestamp is replaced with the current UTC time.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO audit_logs (user_id, action, timestamp) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, entry.UserID, entry.Action, entry.Timestamp).Scan(&entry.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, user_id, action, timestamp FROM audit_logs
		WHERE user_id = $1
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit logs: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditLogEntry
	for rows.Next() {
		var item models.AuditLogEntry
		if err := rows.Scan(&item.ID, &item.UserID, &item.Action, &item.Timestamp); err != nil {
			return nil, err
		}
		item.Timestamp = item.Timestamp.UTC()
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
