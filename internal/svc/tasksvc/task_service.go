package tasksvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
	"github.com/mkrupp/taskmanager/internal/repo/task"
)

// TaskService provides owner-scoped task management. Every operation acts on
// behalf of an authenticated user id; tasks of other users are never listed
// and cannot be read, changed or removed.
type TaskService struct {
	TaskRepo task.Repository
	Log      logging.Logger

	// Now returns the current time; replaced in tests.
	Now func() time.Time
}

// NewTaskService creates a new TaskService with the given task repository factory.
func NewTaskService(repoFactory task.RepositoryFactory) (*TaskService, error) {
	taskRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new task repo: %w", err)
	}

	return &TaskService{
		TaskRepo: taskRepo,
		Log:      logging.GetLogger("svc.tasksvc.task_service"),
		Now:      time.Now,
	}, nil
}

func (s *TaskService) now() time.Time {
	return s.Now().UTC().Truncate(time.Millisecond)
}

// List returns the caller's tasks, newest first.
func (s *TaskService) List(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := s.TaskRepo.ListTasksByOwner(ctx, userID)
	if err != nil {
		s.Log.ErrorContext(ctx, "list tasks failed", "error", err)

		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Create adds a task owned by the caller.
func (s *TaskService) Create(ctx context.Context, userID string, in domain.TaskInput) (_ *domain.Task, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "create task failed", "error", err)
		}
	}()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("new task id: %w", err)
	}

	now := s.now()
	newTask := &domain.Task{
		ID:          id.String(),
		Title:       in.Title,
		Description: in.Description,
		Completed:   false,
		OwnerUserID: userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	log = log.With(logging.Group("task", "id", newTask.ID))

	if err := s.TaskRepo.CreateTask(ctx, newTask); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	log.DebugContext(ctx, "task created")

	return newTask, nil
}

// Get returns one of the caller's tasks.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	t, err := s.load(ctx, userID, taskID)
	if err != nil {
		s.Log.Log(ctx, logging.ErrorLevel(err), "get task failed", "task_id", taskID, "error", err)

		return nil, err
	}

	return t, nil
}

// Update applies a partial update to one of the caller's tasks.
func (s *TaskService) Update(
	ctx context.Context,
	userID, taskID string,
	patch domain.TaskPatch,
) (_ *domain.Task, err error) {
	log := s.Log.With(logging.Group("task", "id", taskID))

	defer func() {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "update task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task updated")
		}
	}()

	t, err := s.load(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(t); err != nil {
		return nil, err
	}

	// updatedAt must move forward even for two updates within one clock tick.
	updatedAt := s.now()
	if !updatedAt.After(t.UpdatedAt) {
		updatedAt = t.UpdatedAt.Add(time.Millisecond)
	}

	t.UpdatedAt = updatedAt

	if err := s.TaskRepo.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	return t, nil
}

// Delete removes one of the caller's tasks.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) (err error) {
	log := s.Log.With(logging.Group("task", "id", taskID))

	defer func() {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "delete task failed", "error", err)
		} else {
			log.DebugContext(ctx, "task deleted")
		}
	}()

	if _, err := s.load(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.TaskRepo.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	return nil
}

// load fetches a task and checks that userID may act on it.
// Ids that are not UUIDs cannot name a task and are reported as not found.
func (s *TaskService) load(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, errors.Join(domain.ErrTaskNotFound, err)
	}

	t, err := s.TaskRepo.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if err := authorize(userID, t); err != nil {
		return nil, err
	}

	return t, nil
}

// authorize is the single ownership check for every operation on an existing task.
func authorize(userID string, t *domain.Task) error {
	if userID == "" || t.OwnerUserID != userID {
		return domain.ErrTaskForbidden
	}

	return nil
}
