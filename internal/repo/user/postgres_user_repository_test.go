package user_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/repo/user"
)

func newPostgresRepo(t *testing.T) (*user.PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	repo, err := user.NewPostgresUserRepository(db)
	if err != nil {
		t.Fatalf("NewPostgresUserRepository() error: %v", err)
	}

	return repo, mock
}

func TestPostgresUserRepository_CreateUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{"ok", nil, nil},
		{"username taken", &pq.Error{Code: "23505", Constraint: "users_username_key"}, domain.ErrUsernameTaken},
		{"email taken", &pq.Error{Code: "23505", Constraint: "users_email_key"}, domain.ErrEmailTaken},
		{"primary key", &pq.Error{Code: "23505", Constraint: "users_pkey"}, domain.ErrUserAlreadyExists},
		{"other failure", errors.New("connection reset"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newPostgresRepo(t)
			u := newTestUser("bob", "Bob@Example.com")

			exec := mock.ExpectExec("INSERT INTO users").
				WithArgs(u.ID, "bob", "bob@example.com", u.PasswordHash, u.CreatedAt, nil)
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.CreateUser(context.Background(), u)

			switch {
			case tt.execErr == nil && err != nil:
				t.Fatalf("CreateUser() error = %v", err)
			case tt.execErr != nil && err == nil:
				t.Fatal("CreateUser() error = nil")
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Fatalf("CreateUser() error = %v, want %v", err, tt.wantErr)
			case tt.wantErr == nil && errors.Is(err, domain.ErrConflict):
				t.Fatalf("CreateUser() error = %v, must not be a conflict", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("expectations not met: %v", err)
			}
		})
	}
}

func TestPostgresUserRepository_GetUserByEmail(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresRepo(t)
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, username, email, password_hash, created_at, last_login FROM users WHERE email = \\$1").
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}).
			AddRow("u1", "bob", "bob@example.com", []byte("hash"), createdAt, nil))

	got, err := repo.GetUserByEmail(context.Background(), "BOB@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}

	if got.ID != "u1" || !got.CreatedAt.Equal(createdAt) || got.LastLogin != nil {
		t.Errorf("GetUserByEmail() = %+v", got)
	}

	mock.ExpectQuery("SELECT .* FROM users WHERE username = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetUserByUsername(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("GetUserByUsername() error = %v, want ErrUserNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepository_Updates(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresRepo(t)
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE users SET last_login = \\$1 WHERE id = \\$2").
		WithArgs(at, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_hash = \\$1 WHERE id = \\$2").
		WithArgs([]byte("h"), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateLastLogin(context.Background(), "u1", at); err != nil {
		t.Fatalf("UpdateLastLogin() error = %v", err)
	}

	if err := repo.UpdatePasswordHash(context.Background(), "gone", []byte("h")); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("UpdatePasswordHash() error = %v, want ErrUserNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
