package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/repo/task"
	"github.com/mkrupp/taskmanager/internal/repo/user"
)

func createOwner(t *testing.T, users user.Repository, username string) string {
	t.Helper()

	u := &domain.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: []byte("hash"),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", username, err)
	}

	return u.ID
}

func newTestTask(owner, title string, createdAt time.Time) *domain.Task {
	return &domain.Task{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Title:       title,
		OwnerUserID: owner,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// testRepositoryContract runs the behaviour every Repository backend must share.
//
//nolint:cyclop
func testRepositoryContract(t *testing.T, users user.Repository, repo task.Repository) {
	t.Helper()

	ctx := context.Background()
	alice := createOwner(t, users, "alice")
	bob := createOwner(t, users, "bob")

	base := time.Now().UTC().Truncate(time.Millisecond)

	first := newTestTask(alice, "first", base)
	second := newTestTask(alice, "second", base.Add(time.Second))
	tie := newTestTask(alice, "tie", base.Add(time.Second)) // same created_at, larger id
	other := newTestTask(bob, "bob's", base)
	other.Description = "private"

	for _, tsk := range []*domain.Task{first, second, tie, other} {
		if err := repo.CreateTask(ctx, tsk); err != nil {
			t.Fatalf("CreateTask(%s) error = %v", tsk.Title, err)
		}
	}

	t.Run("list is owner scoped and newest first", func(t *testing.T) {
		got, err := repo.ListTasksByOwner(ctx, alice)
		if err != nil {
			t.Fatalf("ListTasksByOwner() error = %v", err)
		}

		want := []string{"tie", "second", "first"}
		if len(got) != len(want) {
			t.Fatalf("ListTasksByOwner() returned %d tasks, want %d", len(got), len(want))
		}

		for i, title := range want {
			if got[i].Title != title {
				t.Errorf("task[%d] = %q, want %q", i, got[i].Title, title)
			}

			if got[i].OwnerUserID != alice {
				t.Errorf("task[%d] owner = %q, want %q", i, got[i].OwnerUserID, alice)
			}
		}

		empty, err := repo.ListTasksByOwner(ctx, uuid.NewString())
		if err != nil || empty == nil || len(empty) != 0 {
			t.Errorf("ListTasksByOwner(unknown) = %v, %v, want empty non-nil slice", empty, err)
		}
	})

	t.Run("get round trips", func(t *testing.T) {
		got, err := repo.GetTask(ctx, other.ID)
		if err != nil {
			t.Fatalf("GetTask() error = %v", err)
		}

		if got.Title != other.Title || got.Description != "private" || got.Completed ||
			got.OwnerUserID != bob || !got.CreatedAt.Equal(other.CreatedAt) {
			t.Errorf("GetTask() = %+v, want %+v", got, other)
		}
	})

	t.Run("update", func(t *testing.T) {
		updated := *first
		updated.Title = "first, renamed"
		updated.Description = "now with text"
		updated.Completed = true
		updated.UpdatedAt = base.Add(time.Minute)

		if err := repo.UpdateTask(ctx, &updated); err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}

		got, err := repo.GetTask(ctx, first.ID)
		if err != nil {
			t.Fatalf("GetTask() error = %v", err)
		}

		if got.Title != updated.Title || got.Description != updated.Description || !got.Completed ||
			!got.UpdatedAt.Equal(updated.UpdatedAt) || !got.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("GetTask() after update = %+v", got)
		}
	})

	t.Run("missing tasks", func(t *testing.T) {
		missing := newTestTask(alice, "ghost", base)

		if _, err := repo.GetTask(ctx, missing.ID); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("GetTask() error = %v, want ErrTaskNotFound", err)
		}

		if err := repo.UpdateTask(ctx, missing); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("UpdateTask() error = %v, want ErrTaskNotFound", err)
		}

		if err := repo.DeleteTask(ctx, missing.ID); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("DeleteTask() error = %v, want ErrTaskNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.DeleteTask(ctx, second.ID); err != nil {
			t.Fatalf("DeleteTask() error = %v", err)
		}

		if _, err := repo.GetTask(ctx, second.ID); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("GetTask() after delete error = %v, want ErrTaskNotFound", err)
		}

		if err := repo.DeleteTask(ctx, second.ID); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("second DeleteTask() error = %v, want ErrTaskNotFound", err)
		}
	})
}
