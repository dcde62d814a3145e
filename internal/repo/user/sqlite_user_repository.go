package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory creates a factory function that returns a new SQLiteUserRepository.
// writeLock must be shared by every repository writing to the same database.
func SQLiteUserRepositoryFactory(db *sql.DB, writeLock *sync.Mutex) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteUserRepository(db, writeLock)
	}
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository on an open database
// and creates the schema if needed.
func NewSQLiteUserRepository(db *sql.DB, writeLock *sync.Mutex) (*SQLiteUserRepository, error) {
	repo := &SQLiteUserRepository{
		db:        db,
		log:       logging.GetLogger("repo.user.sqlite_user_repository"),
		writeLock: writeLock,
	}

	if err := repo.initializeDB(); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	return repo, nil
}

func (r *SQLiteUserRepository) initializeDB() error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT    PRIMARY KEY,
			username      TEXT    UNIQUE NOT NULL,
			email         TEXT    UNIQUE NOT NULL,
			password_hash BLOB    NOT NULL,
			created_at    INTEGER NOT NULL,
			last_login    INTEGER
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// CreateUser implements Repository.CreateUser using SQLite.
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, created_at, last_login) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID,
		user.Username,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.CreatedAt.UnixMilli(),
		nullableMillis(user.LastLogin),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				err = errors.Join(domain.ErrUserAlreadyExists, err)
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				// UNIQUE constraint failed: users.<column>
				err = conflictError(liteErr.Error(), err)
			default:
				break
			}
		}

		return fmt.Errorf("insert user: %w", err)
	}

	r.log.DebugContext(ctx, "user inserted", "id", user.ID)

	return nil
}

// GetUserByID implements Repository.GetUserByID using SQLite.
func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

// GetUserByUsername implements Repository.GetUserByUsername using SQLite.
func (r *SQLiteUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, "username = ?", username)
}

// GetUserByEmail implements Repository.GetUserByEmail using SQLite.
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email = ?", strings.ToLower(email))
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		user      domain.User
		createdAt int64
		lastLogin sql.NullInt64
	)

	//nolint:gosec
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at, last_login FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	user.CreatedAt = time.UnixMilli(createdAt).UTC()

	if lastLogin.Valid {
		t := time.UnixMilli(lastLogin.Int64).UTC()
		user.LastLogin = &t
	}

	return &user, nil
}

// UpdateLastLogin implements Repository.UpdateLastLogin using SQLite.
func (r *SQLiteUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UnixMilli(), id)
}

// UpdatePasswordHash implements Repository.UpdatePasswordHash using SQLite.
func (r *SQLiteUserRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash []byte) error {
	return r.update(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
}

func (r *SQLiteUserRepository) update(ctx context.Context, query string, value any, id string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("update user: %w", domain.ErrUserNotFound)
	}

	return nil
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
