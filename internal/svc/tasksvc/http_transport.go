package tasksvc

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/taskmanager/internal/domain"
	context_ "github.com/mkrupp/taskmanager/internal/infra/context"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
	http_ "github.com/mkrupp/taskmanager/internal/infra/transport/http"
)

// errNoPrincipal is returned when a task route runs without verified claims.
var errNoPrincipal = errors.New("no principal in request context")

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport handles HTTP requests for the task service.
// Every route requires a bearer token.
type HTTPTransport struct {
	taskSvc *TaskService
	log     logging.Logger
	cfg     HTTPTransportConfig
	router  chi.Router
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance. Routes, relative to
// where the transport is mounted:
//   - GET /: list the caller's tasks
//   - POST /: create a task
//   - GET /{id}: get a task
//   - PUT /{id}: update a task
//   - DELETE /{id}: delete a task
func NewHTTPTransport(taskSvc *TaskService, verifier http_.TokenVerifier, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		taskSvc: taskSvc,
		log:     logging.GetLogger("svc.tasksvc.http_transport"),
		cfg:     cfg,
	}

	router := chi.NewRouter()
	router.Use(http_.Authorizing(verifier, ht.log))
	router.Get("/", ht.HandleList)
	router.Post("/", ht.HandleCreate)
	router.Get("/{id}", ht.HandleGet)
	router.Put("/{id}", ht.HandleUpdate)
	router.Delete("/{id}", ht.HandleDelete)

	ht.router = router

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

func (ht *HTTPTransport) requestLogger(r *http.Request) logging.Logger {
	return ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
}

// fail writes err as the response and returns it for the deferred log.
func (ht *HTTPTransport) fail(w http.ResponseWriter, err error) error {
	_ = http_.WriteError(w, err, ht.cfg.ExposeErrors)

	return err
}

// principalID returns the verified caller's user id.
func principalID(r *http.Request) (string, error) {
	principal, ok := context_.PrincipalFromContext(r.Context())
	if !ok || principal.UserID == "" {
		return "", errNoPrincipal
	}

	return principal.UserID, nil
}

// HandleList returns the caller's tasks, newest first.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "list tasks failed", "error", err)
		}
	}(r.Context())

	uid, err := principalID(r)
	if err != nil {
		return ht.fail(w, err)
	}

	tasks, err := ht.taskSvc.List(r.Context(), uid)
	if err != nil {
		return ht.fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, tasks)
}

// HandleCreate creates a task.
// Expects a JSON body {title, description}.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "create task failed", "error", err)
		}
	}(r.Context())

	uid, err := principalID(r)
	if err != nil {
		return ht.fail(w, err)
	}

	var in domain.TaskInput
	if err := http_.DecodeJSON(w, r, &in); err != nil {
		return ht.fail(w, err)
	}

	created, err := ht.taskSvc.Create(r.Context(), uid, in)
	if err != nil {
		return ht.fail(w, err)
	}

	log.DebugContext(r.Context(), "task created", "task_id", created.ID)

	return http_.WriteJSON(w, http.StatusCreated, created)
}

// HandleGet returns a single task.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "get task failed", "error", err)
		}
	}(r.Context())

	uid, err := principalID(r)
	if err != nil {
		return ht.fail(w, err)
	}

	found, err := ht.taskSvc.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		return ht.fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, found)
}

// HandleUpdate applies a partial update to a task.
// Expects a JSON body {title?, description?, completed?}.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "update task failed", "error", err)
		}
	}(r.Context())

	uid, err := principalID(r)
	if err != nil {
		return ht.fail(w, err)
	}

	var patch domain.TaskPatch
	if err := http_.DecodeJSON(w, r, &patch); err != nil {
		return ht.fail(w, err)
	}

	updated, err := ht.taskSvc.Update(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		return ht.fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a task.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "delete task failed", "error", err)
		}
	}(r.Context())

	uid, err := principalID(r)
	if err != nil {
		return ht.fail(w, err)
	}

	if err := ht.taskSvc.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		return ht.fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Task deleted successfully"})
}
