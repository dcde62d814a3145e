package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/repo/user"
)

func newTestUser(username, email string) *domain.User {
	return &domain.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     username,
		Email:        email,
		PasswordHash: []byte("$2a$10$hash"),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

// testRepositoryContract runs the behaviour every Repository backend must share.
//
//nolint:cyclop
func testRepositoryContract(t *testing.T, repo user.Repository) {
	t.Helper()

	ctx := context.Background()

	bob := newTestUser("bob", "Bob@Example.com")
	if err := repo.CreateUser(ctx, bob); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	t.Run("get by id, username and email", func(t *testing.T) {
		lookups := map[string]func() (*domain.User, error){
			"id":       func() (*domain.User, error) { return repo.GetUserByID(ctx, bob.ID) },
			"username": func() (*domain.User, error) { return repo.GetUserByUsername(ctx, "bob") },
			"email":    func() (*domain.User, error) { return repo.GetUserByEmail(ctx, "BOB@example.COM") },
		}

		for name, lookup := range lookups {
			got, err := lookup()
			if err != nil {
				t.Fatalf("lookup by %s: error = %v", name, err)
			}

			if got.ID != bob.ID || got.Username != "bob" || got.Email != "bob@example.com" {
				t.Errorf("lookup by %s = %+v", name, got)
			}

			if !got.CreatedAt.Equal(bob.CreatedAt) {
				t.Errorf("lookup by %s: CreatedAt = %v, want %v", name, got.CreatedAt, bob.CreatedAt)
			}

			if got.LastLogin != nil {
				t.Errorf("lookup by %s: LastLogin = %v, want nil", name, got.LastLogin)
			}
		}
	})

	t.Run("username is case sensitive", func(t *testing.T) {
		if _, err := repo.GetUserByUsername(ctx, "BOB"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("GetUserByUsername(BOB) error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("duplicates", func(t *testing.T) {
		err := repo.CreateUser(ctx, newTestUser("bob", "other@example.com"))
		if !errors.Is(err, domain.ErrUsernameTaken) {
			t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
		}

		err = repo.CreateUser(ctx, newTestUser("robert", "BOB@example.com"))
		if !errors.Is(err, domain.ErrEmailTaken) {
			t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
		}

		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("duplicate email error = %v, want kind ErrConflict", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := repo.GetUserByID(ctx, uuid.NewString()); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("GetUserByID() error = %v, want ErrUserNotFound", err)
		}

		if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("GetUserByEmail() error = %v, want ErrUserNotFound", err)
		}

		if err := repo.UpdateLastLogin(ctx, uuid.NewString(), time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("UpdateLastLogin() error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("updates", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Millisecond)
		if err := repo.UpdateLastLogin(ctx, bob.ID, at); err != nil {
			t.Fatalf("UpdateLastLogin() error = %v", err)
		}

		if err := repo.UpdatePasswordHash(ctx, bob.ID, []byte("new-hash")); err != nil {
			t.Fatalf("UpdatePasswordHash() error = %v", err)
		}

		got, err := repo.GetUserByID(ctx, bob.ID)
		if err != nil {
			t.Fatalf("GetUserByID() error = %v", err)
		}

		if got.LastLogin == nil || !got.LastLogin.Equal(at) {
			t.Errorf("LastLogin = %v, want %v", got.LastLogin, at)
		}

		if string(got.PasswordHash) != "new-hash" {
			t.Errorf("PasswordHash = %q", got.PasswordHash)
		}
	})
}
