package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// PostgresTaskRepository implements Repository using PostgreSQL.
type PostgresTaskRepository struct {
	db  *sql.DB
	log logging.Logger
}

var _ Repository = (*PostgresTaskRepository)(nil)

// PostgresTaskRepositoryFactory creates a factory function that returns a new PostgresTaskRepository.
func PostgresTaskRepositoryFactory(db *sql.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewPostgresTaskRepository(db)
	}
}

// NewPostgresTaskRepository creates a new PostgresTaskRepository and ensures its schema.
// The users table must exist.
func NewPostgresTaskRepository(db *sql.DB) (*PostgresTaskRepository, error) {
	repo := &PostgresTaskRepository{
		db:  db,
		log: logging.GetLogger("repo.task.postgres_task_repository"),
	}

	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *PostgresTaskRepository) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS tasks (
	id            UUID        PRIMARY KEY,
	title         TEXT        NOT NULL,
	description   TEXT        NOT NULL DEFAULT '',
	completed     BOOLEAN     NOT NULL DEFAULT FALSE,
	owner_user_id UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_owner_created_idx ON tasks (owner_user_id, created_at DESC, id DESC)`
	if _, err := r.db.Exec(q); err != nil {
		return fmt.Errorf("ensure tasks schema: %w", err)
	}

	return nil
}

const postgresTaskColumns = "id, title, description, completed, owner_user_id, created_at, updated_at"

// CreateTask implements Repository.CreateTask using PostgreSQL.
func (r *PostgresTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	const q = `
INSERT INTO tasks (` + postgresTaskColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.ExecContext(ctx, q,
		task.ID,
		task.Title,
		task.Description,
		task.Completed,
		task.OwnerUserID,
		task.CreatedAt,
		task.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// GetTask implements Repository.GetTask using PostgreSQL.
func (r *PostgresTaskRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+postgresTaskColumns+" FROM tasks WHERE id = $1", id)

	task, err := scanPostgresTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("query task: %w", err)
	}

	return task, nil
}

// ListTasksByOwner implements Repository.ListTasksByOwner using PostgreSQL.
func (r *PostgresTaskRepository) ListTasksByOwner(ctx context.Context, ownerUserID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+postgresTaskColumns+" FROM tasks WHERE owner_user_id = $1 ORDER BY created_at DESC, id DESC",
		ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}

	for rows.Next() {
		task, err := scanPostgresTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}

		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask implements Repository.UpdateTask using PostgreSQL.
func (r *PostgresTaskRepository) UpdateTask(ctx context.Context, task *domain.Task) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET title = $1, description = $2, completed = $3, updated_at = $4 WHERE id = $5",
		task.Title,
		task.Description,
		task.Completed,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return checkAffected(res, "update task")
}

// DeleteTask implements Repository.DeleteTask using PostgreSQL.
func (r *PostgresTaskRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if err := checkAffected(res, "delete task"); err != nil {
		return err
	}

	r.log.DebugContext(ctx, "task deleted", "id", id)

	return nil
}

func scanPostgresTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.OwnerUserID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return &task, nil
}
