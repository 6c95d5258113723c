package repositories

import (
	"context"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter UserFilter) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetTeam(ctx context.Context, id uint) (*models.Team, error)
	GetBranch(ctx context.Context, id uint) (*models.Branch, error)
}

// UserFilter narrows a user listing
type UserFilter struct {
	Scope  domain.Scope
	Role   string
	Search string
	Offset int
	Limit  int
}
