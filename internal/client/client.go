// Package client is the service layer of the task manager frontend. It wraps
// every API endpoint and owns the session that authenticates the calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mkrupp/taskmanager/internal/domain"
	context_ "github.com/mkrupp/taskmanager/internal/infra/context"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

const (
	TraceIDHeader       = "X-Request-ID"
	AuthorizationHeader = "Authorization"
)

// ErrSessionExpired is returned when the server rejects the session token.
// The session is cleared before it is returned.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is a non-2xx response other than a rejected session.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Config holds configuration for the API client.
type Config struct {
	// BaseURL is the API root, including the /api path
	BaseURL string `env:"API_URL" default:"http://localhost:5000/api"`
}

// Client calls the task manager API on behalf of the session in its SessionStore.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionStore
	log        logging.Logger
}

// New creates a Client. If httpClient is nil, http.DefaultClient will be used.
func New(cfg Config, sessions SessionStore, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		sessions:   sessions,
		log:        logging.GetLogger("client"),
	}
}

// Session returns the current session.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	//nolint:wrapcheck
	return c.sessions.Load(ctx)
}

// Register creates an account and stores its session.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*Session, error) {
	var resp domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", false, reg, &resp); err != nil {
		return nil, err
	}

	return c.persist(ctx, resp)
}

// Login authenticates with a username or email and stores the session.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, error) {
	var resp domain.AuthResponse

	creds := domain.Credentials{UsernameOrEmail: login, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", false, creds, &resp); err != nil {
		return nil, err
	}

	return c.persist(ctx, resp)
}

func (c *Client) persist(ctx context.Context, resp domain.AuthResponse) (*Session, error) {
	session := Session{Token: resp.Token, User: resp.User}
	if err := c.sessions.Persist(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &session, nil
}

// Logout forgets the session. Tokens are stateless, so the server is not involved.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}

// Me returns the profile of the logged-in user.
func (c *Client) Me(ctx context.Context) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := c.do(ctx, http.MethodGet, "/auth/me", true, nil, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// ChangePassword replaces the password of the logged-in user.
func (c *Client) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	return c.do(ctx, http.MethodPut, "/auth/password", true, change, nil)
}

// ListTasks returns the user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", true, nil, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// CreateTask adds a task.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (*domain.Task, error) {
	var created domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", true, in, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// GetTask returns a single task.
func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var found domain.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), true, nil, &found); err != nil {
		return nil, err
	}

	return &found, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var updated domain.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), true, patch, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// ToggleTask flips the completed flag of a task.
func (c *Client) ToggleTask(ctx context.Context, id string) (*domain.Task, error) {
	current, err := c.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	completed := !current.Completed

	return c.UpdateTask(ctx, id, domain.TaskPatch{Completed: &completed})
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), true, nil, nil)
}

// Health queries the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*domain.HealthStatus, error) {
	var status domain.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", false, nil, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// do sends a JSON request and decodes a 2xx response into out. Authenticated
// requests carry the session token; a 401 for them clears the session.
func (c *Client) do(ctx context.Context, method, path string, authenticated bool, body, out any) (err error) {
	log := c.log.With(logging.Group("http", "method", method, "path", path))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "request failed", "error", err)
		}
	}()

	var payload io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	if authenticated {
		session, err := c.sessions.Load(ctx)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		req.Header.Set(AuthorizationHeader, "Bearer "+session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out == nil {
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		return nil
	}

	message := errorMessage(resp)

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		if err := c.sessions.Clear(ctx); err != nil {
			log.WarnContext(ctx, "clear session failed", "error", err)
		}

		return fmt.Errorf("%w: %s", ErrSessionExpired, message)
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}

// errorMessage extracts the message of an error body, falling back to the status text.
func errorMessage(resp *http.Response) string {
	var body domain.MessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Message != "" {
		return body.Message
	}

	return http.StatusText(resp.StatusCode)
}
