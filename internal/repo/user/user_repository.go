package user

import (
	"context"
	"time"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// Repository defines the interface for user data persistence.
// Lookups of unknown users return an error wrapping domain.ErrUserNotFound.
type Repository interface {
	// CreateUser adds a new user to the repository.
	// Returns ErrUsernameTaken or ErrEmailTaken if a unique field is already in use.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	// GetUserByUsername retrieves a user by exact username.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email address, compared lowercased.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateLastLogin records a successful login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash []byte) error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
