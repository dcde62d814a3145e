package task

import (
	"context"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// Repository defines the interface for task persistence.
// Operations on unknown tasks return an error wrapping domain.ErrTaskNotFound.
// Ownership is not checked here; callers authorize before mutating.
type Repository interface {
	// CreateTask stores a new task.
	CreateTask(ctx context.Context, task *domain.Task) error

	// GetTask retrieves a task by id.
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// ListTasksByOwner returns the tasks of one owner, newest first
	// (created_at descending, id descending as tiebreak).
	ListTasksByOwner(ctx context.Context, ownerUserID string) ([]domain.Task, error)

	// UpdateTask persists title, description, completed and updatedAt of an existing task.
	UpdateTask(ctx context.Context, task *domain.Task) error

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
