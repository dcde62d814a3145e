package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/taskmanager/internal/domain"
	context_ "github.com/mkrupp/taskmanager/internal/infra/context"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
	http_ "github.com/mkrupp/taskmanager/internal/infra/transport/http"
)

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) domain.MessageResponse {
	t.Helper()

	var body domain.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	return body
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		expose  bool
		status  int
		message string
		detail  string
	}{
		{"validation", domain.ErrEmptyTitle, false, http.StatusBadRequest, "title is required", ""},
		{"conflict", fmt.Errorf("create: %w", domain.ErrUsernameTaken), false, http.StatusBadRequest, "username already taken", ""},
		{"unauthenticated", domain.ErrTokenExpired, false, http.StatusUnauthorized, "token expired, please log in again", ""},
		{"forbidden", domain.ErrTaskForbidden, false, http.StatusForbidden, "you do not have access to this task", ""},
		{"not found", errors.Join(domain.ErrTaskNotFound, errors.New("sql: no rows")), false, http.StatusNotFound, "task not found", ""},
		{"internal", errors.New("disk on fire"), false, http.StatusInternalServerError, "internal server error", ""},
		{"internal exposed", errors.New("disk on fire"), true, http.StatusInternalServerError, "internal server error", "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			require.NoError(t, http_.WriteError(rec, tt.err, tt.expose))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, http_.StatusCode(tt.err))
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			body := decodeMessage(t, rec)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.detail, body.Error)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var in domain.TaskInput

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a"}`))
	require.NoError(t, http_.DecodeJSON(rec, req, &in))
	assert.Equal(t, "a", in.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{\"title\":\"b\"}\n\t "))
	require.NoError(t, http_.DecodeJSON(rec, req, &in), "trailing whitespace is fine")
	assert.Equal(t, "b", in.Title)

	for _, body := range []string{"", "{", `{"title":`, `[1,2]`, `{"title":"a"} garbage`, `{"title":"a"}{"title":"b"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := http_.DecodeJSON(rec, req, &in)
		require.ErrorIs(t, err, domain.ErrMalformedBody, "body %q", body)
		assert.Equal(t, http.StatusBadRequest, http_.StatusCode(err))
	}

	huge := `{"title":"` + strings.Repeat("x", http_.MaxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	require.ErrorIs(t, http_.DecodeJSON(rec, req, &in), domain.ErrMalformedBody)
}

type stubVerifier struct {
	claims domain.Claims
	err    error
	calls  int
}

func (v *stubVerifier) Verify(_ context.Context, authorization string) (domain.Claims, error) {
	v.calls++

	if authorization != "Bearer good" {
		return domain.Claims{}, v.err
	}

	return v.claims, nil
}

func TestAuthorizingMiddleware(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{
		claims: domain.Claims{UserID: "u1", Username: "bob"},
		err:    domain.ErrTokenSignature,
	}

	var reached bool

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true

		principal, ok := context_.PrincipalFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "u1", principal.UserID)
		w.WriteHeader(http.StatusNoContent)
	})

	handler := http_.AuthorizingMiddleware(next, verifier, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer bad")
	handler.ServeHTTP(rec, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeMessage(t, rec).Message)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(rec, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, verifier.calls)
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", http_.HealthHandler("task-manager-api"))
	mux.HandleFunc("GET /panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	mux.HandleFunc("GET /trace", func(w http.ResponseWriter, r *http.Request) {
		traceID, _ := context_.TraceIDFromContext(r.Context())
		_, _ = w.Write([]byte(traceID))
	})

	handler := http_.NewHandler(mux, http_.HTTPTransportConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	t.Run("health", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","service":"task-manager-api"}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(http_.TraceIDHeader))
	})

	t.Run("panic is rescued", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decodeMessage(t, rec).Message)
	})

	t.Run("trace id is honoured", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/trace", nil)
		req.Header.Set(http_.TraceIDHeader, "abc-123")
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Body.String())
		assert.Equal(t, "abc-123", rec.Header().Get(http_.TraceIDHeader))
	})

	t.Run("cors preflight", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("cors rejects unknown origin", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- http_.Serve(ctx, sock, http_.HealthHandler("test"), http_.HTTPTransportConfig{
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
		})
	}()

	url := "http://" + sock.Addr().String() + "/"

	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
