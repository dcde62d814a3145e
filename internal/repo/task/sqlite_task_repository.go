package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// SQLiteTaskRepository implements Repository using SQLite as the storage backend.
type SQLiteTaskRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteTaskRepository)(nil)

// SQLiteTaskRepositoryFactory creates a factory function that returns a new SQLiteTaskRepository.
// writeLock must be shared by every repository writing to the same database.
func SQLiteTaskRepositoryFactory(db *sql.DB, writeLock *sync.Mutex) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteTaskRepository(db, writeLock)
	}
}

// NewSQLiteTaskRepository creates a new SQLiteTaskRepository on an open database
// and creates the schema if needed.
func NewSQLiteTaskRepository(db *sql.DB, writeLock *sync.Mutex) (*SQLiteTaskRepository, error) {
	repo := &SQLiteTaskRepository{
		db:        db,
		log:       logging.GetLogger("repo.task.sqlite_task_repository"),
		writeLock: writeLock,
	}

	if err := repo.initializeDB(); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	return repo, nil
}

func (r *SQLiteTaskRepository) initializeDB() error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT    PRIMARY KEY,
			title         TEXT    NOT NULL,
			description   TEXT    NOT NULL DEFAULT '',
			completed     INTEGER NOT NULL DEFAULT 0,
			owner_user_id TEXT    NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS tasks_owner_created_idx ON tasks (owner_user_id, created_at DESC, id DESC);
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// CreateTask implements Repository.CreateTask using SQLite.
func (r *SQLiteTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, completed, owner_user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		task.Description,
		task.Completed,
		task.OwnerUserID,
		task.CreatedAt.UnixMilli(),
		task.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

const sqliteTaskColumns = "id, title, description, completed, owner_user_id, created_at, updated_at"

// GetTask implements Repository.GetTask using SQLite.
func (r *SQLiteTaskRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteTaskColumns+" FROM tasks WHERE id = ?", id)

	task, err := scanSQLiteTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("query task: %w", err)
	}

	return task, nil
}

// ListTasksByOwner implements Repository.ListTasksByOwner using SQLite.
func (r *SQLiteTaskRepository) ListTasksByOwner(ctx context.Context, ownerUserID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sqliteTaskColumns+" FROM tasks WHERE owner_user_id = ? ORDER BY created_at DESC, id DESC",
		ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}

	for rows.Next() {
		task, err := scanSQLiteTask(rows)
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

// UpdateTask implements Repository.UpdateTask using SQLite.
func (r *SQLiteTaskRepository) UpdateTask(ctx context.Context, task *domain.Task) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ? WHERE id = ?",
		task.Title,
		task.Description,
		task.Completed,
		task.UpdatedAt.UnixMilli(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return checkAffected(res, "update task")
}

// DeleteTask implements Repository.DeleteTask using SQLite.
func (r *SQLiteTaskRepository) DeleteTask(ctx context.Context, id string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if err := checkAffected(res, "delete task"); err != nil {
		return err
	}

	r.log.DebugContext(ctx, "task deleted", "id", id)

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (*domain.Task, error) {
	var (
		task                 domain.Task
		createdAt, updatedAt int64
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.OwnerUserID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	task.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return &task, nil
}

func checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrTaskNotFound)
	}

	return nil
}
