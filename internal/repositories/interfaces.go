package repositories

import (
	"context"

	"github.com/CampusBridge-2025/access-service/internal/models"
)

// ProfileRepository is the Profile Store Client: durable storage for the
// application-level user record, keyed by the provider's identity ID.
// GetByID returns (nil, nil) when no profile exists for the identity; a
// missing profile is a legitimate state, not an error.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	ExistsByID(ctx context.Context, id string) (bool, error)
	ListByRole(ctx context.Context, role models.UserRole, filters ProfileFilters) ([]*models.Profile, int64, error)
}

type ProfileFilters struct {
	Limit  int
	Offset int
	Query  string
}

// UserRepository is the read-only directory view of identity-provider
// accounts, used by the admin subtree.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	Search(ctx context.Context, query string, filters UserFilters) ([]*models.User, int64, error)
}

type UserFilters struct {
	Limit  int
	Offset int
	Query  string
}
