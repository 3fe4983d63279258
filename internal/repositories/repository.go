package repositories

import "context"

// Repository aggregates the storage surfaces of the service.
type Repository interface {
	// Application-owned profile records
	Profile() ProfileRepository

	// Identity-provider directory (read-only)
	User() UserRepository

	// Transaction support for profile writes
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
