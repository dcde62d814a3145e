package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
const pgUniqueViolation = pq.ErrorCode("23505")

// PostgresUserRepository implements Repository using PostgreSQL.
type PostgresUserRepository struct {
	db  *sql.DB
	log logging.Logger
}

var _ Repository = (*PostgresUserRepository)(nil)

// PostgresUserRepositoryFactory creates a factory function that returns a new PostgresUserRepository.
func PostgresUserRepositoryFactory(db *sql.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewPostgresUserRepository(db)
	}
}

// NewPostgresUserRepository creates a new PostgresUserRepository and ensures its schema.
func NewPostgresUserRepository(db *sql.DB) (*PostgresUserRepository, error) {
	repo := &PostgresUserRepository{
		db:  db,
		log: logging.GetLogger("repo.user.postgres_user_repository"),
	}

	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *PostgresUserRepository) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID        PRIMARY KEY,
	username      TEXT        NOT NULL CONSTRAINT users_username_key UNIQUE,
	email         TEXT        NOT NULL CONSTRAINT users_email_key UNIQUE,
	password_hash BYTEA       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	last_login    TIMESTAMPTZ
)`
	if _, err := r.db.Exec(q); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}

	return nil
}

// CreateUser implements Repository.CreateUser using PostgreSQL.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	const q = `
INSERT INTO users (id, username, email, password_hash, created_at, last_login)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, q,
		user.ID,
		user.Username,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.CreatedAt,
		user.LastLogin,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			if pqErr.Constraint == "users_pkey" {
				err = errors.Join(domain.ErrUserAlreadyExists, err)
			} else {
				err = conflictError(pqErr.Constraint, err)
			}
		}

		return fmt.Errorf("insert user: %w", err)
	}

	r.log.DebugContext(ctx, "user inserted", "id", user.ID)

	return nil
}

// GetUserByID implements Repository.GetUserByID using PostgreSQL.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

// GetUserByUsername implements Repository.GetUserByUsername using PostgreSQL.
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, "username = $1", username)
}

// GetUserByEmail implements Repository.GetUserByEmail using PostgreSQL.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email = $1", strings.ToLower(email))
}

func (r *PostgresUserRepository) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		user      domain.User
		lastLogin sql.NullTime
	)

	//nolint:gosec
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at, last_login FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	user.CreatedAt = user.CreatedAt.UTC()

	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		user.LastLogin = &t
	}

	return &user, nil
}

// UpdateLastLogin implements Repository.UpdateLastLogin using PostgreSQL.
func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return checkAffected(res)
}

// UpdatePasswordHash implements Repository.UpdatePasswordHash using PostgreSQL.
func (r *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash []byte) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return checkAffected(res)
}
