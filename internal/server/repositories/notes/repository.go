package notes

import (
	"context"

	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Note, error)
}
