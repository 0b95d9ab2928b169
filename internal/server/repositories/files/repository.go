package files

import (
	"context"

	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	ListByUser(ctx context.Context, userID string) ([]*models.File, error)
}
