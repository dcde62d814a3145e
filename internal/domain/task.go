package domain

import (
	"strings"
	"time"
)

var (
	// ErrEmptyTitle is returned when a task title is empty after trimming.
	ErrEmptyTitle = newError(ErrValidation, "title is required")
	// ErrTaskNotFound is returned when no task with the given id exists.
	ErrTaskNotFound = newError(ErrNotFound, "task not found")
	// ErrTaskForbidden is returned when the caller does not own the task.
	ErrTaskForbidden = newError(ErrForbidden, "you do not have access to this task")
)

// Task is a to-do item owned by exactly one user.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	OwnerUserID string    `json:"ownerUserId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskInput is the body of a create request.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Normalize trims title and description.
func (in TaskInput) Normalize() TaskInput {
	return TaskInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
	}
}

// Validate checks a normalized input.
func (in TaskInput) Validate() error {
	if in.Title == "" {
		return ErrEmptyTitle
	}

	return nil
}

// TaskPatch is a partial update. Nil fields are left unchanged; an empty
// description clears it.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Apply validates the patch and applies it to t. t is left untouched on error.
func (p TaskPatch) Apply(t *Task) error {
	title := t.Title

	if p.Title != nil {
		title = strings.TrimSpace(*p.Title)
		if title == "" {
			return ErrEmptyTitle
		}
	}

	t.Title = title

	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}

	if p.Completed != nil {
		t.Completed = *p.Completed
	}

	return nil
}
