package users

import (
	"context"

	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	ExistsByUserName(ctx context.Context, login string) (bool, error)
	List(ctx context.Context) ([]*models.User, error)
}
