package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByUser(ctx context.Context, userID string) ([]*models.AuditLogEntry, error)
}
