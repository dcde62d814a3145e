// Package api assembles the task manager HTTP API from the auth and task services.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/taskmanager/internal/domain"
	http_ "github.com/mkrupp/taskmanager/internal/infra/transport/http"
	"github.com/mkrupp/taskmanager/internal/repo"
	"github.com/mkrupp/taskmanager/internal/svc/authsvc"
	"github.com/mkrupp/taskmanager/internal/svc/tasksvc"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "task-manager-api"

// New builds the auth and task services on top of store and returns the API router.
func New(
	store *repo.Store,
	authCfg authsvc.AuthConfig,
	secret []byte,
	httpCfg http_.HTTPTransportConfig,
) (http.Handler, error) {
	// users must exist before tasks, whose table references it
	authSvc, err := authsvc.NewAuthService(store.UserRepositoryFactory, authCfg, secret)
	if err != nil {
		return nil, fmt.Errorf("new auth service: %w", err)
	}

	taskSvc, err := tasksvc.NewTaskService(store.TaskRepositoryFactory)
	if err != nil {
		return nil, fmt.Errorf("new task service: %w", err)
	}

	return NewRouter(authSvc, taskSvc, httpCfg), nil
}

// NewRouter mounts the services under /api:
//   - /api/auth: registration, login and profile
//   - /api/tasks: the caller's tasks, bearer token required
//   - /api/health: liveness check
func NewRouter(authSvc *authsvc.AuthService, taskSvc *tasksvc.TaskService, cfg http_.HTTPTransportConfig) http.Handler {
	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		_ = http_.WriteJSON(w, http.StatusNotFound, domain.MessageResponse{Message: "route not found"})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		_ = http_.WriteJSON(w, http.StatusMethodNotAllowed, domain.MessageResponse{Message: "method not allowed"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authsvc.NewHTTPTransport(authSvc, authsvc.HTTPTransportConfig{HTTPTransportConfig: cfg}))
		r.Mount("/tasks", tasksvc.NewHTTPTransport(taskSvc, authSvc, tasksvc.HTTPTransportConfig{HTTPTransportConfig: cfg}))
		r.Get("/health", http_.HealthHandler(ServiceName))
	})

	return router
}
