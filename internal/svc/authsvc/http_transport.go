package authsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/taskmanager/internal/domain"
	context_ "github.com/mkrupp/taskmanager/internal/infra/context"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
	http_ "github.com/mkrupp/taskmanager/internal/infra/transport/http"
)

// errNoPrincipal is returned when an authenticated route runs without verified claims.
var errNoPrincipal = errors.New("no principal in request context")

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport handles HTTP requests for the authentication service.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
	router  chi.Router
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// Routes, relative to where the transport is mounted:
//   - POST /register: register a new user
//   - POST /login: log in with username or email
//   - GET /me: profile of the authenticated user
//   - PUT /password: change the authenticated user's password
func NewHTTPTransport(authSvc *AuthService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
	}

	router := chi.NewRouter()
	router.Post("/register", ht.HandleRegister)
	router.Post("/login", ht.HandleLogin)
	router.Group(func(r chi.Router) {
		r.Use(http_.Authorizing(authSvc, ht.log))
		r.Get("/me", ht.HandleMe)
		r.Put("/password", ht.HandleChangePassword)
	})

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

// HandleRegister processes user registration requests.
// Expects a JSON body {username, email, password}.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var reg domain.Registration
	if err := http_.DecodeJSON(w, r, &reg); err != nil {
		return ht.fail(w, err)
	}

	token, newUser, err := ht.authSvc.Register(r.Context(), reg)
	if err != nil {
		return ht.fail(w, fmt.Errorf("register user: %w", err))
	}

	return http_.WriteJSON(w, http.StatusCreated, domain.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    newUser.Public(),
	})
}

// HandleLogin processes user login requests.
// Expects a JSON body {usernameOrEmail, password}; {username, password} is accepted too.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	var creds domain.Credentials
	if err := http_.DecodeJSON(w, r, &creds); err != nil {
		return ht.fail(w, err)
	}

	token, found, err := ht.authSvc.Login(r.Context(), creds.Login(), creds.Password)
	if err != nil {
		return ht.fail(w, fmt.Errorf("login user: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    found.Public(),
	})
}

// HandleMe returns the profile of the authenticated user.
func (ht *HTTPTransport) HandleMe(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleMe(w, r)
}

func (ht *HTTPTransport) handleMe(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "get profile failed", "error", err)
		}
	}(r.Context())

	principal, ok := context_.PrincipalFromContext(r.Context())
	if !ok {
		return ht.fail(w, errNoPrincipal)
	}

	found, err := ht.authSvc.Me(r.Context(), principal.UserID)
	if err != nil {
		return ht.fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, found.Profile())
}

// HandleChangePassword changes the authenticated user's password.
// Expects a JSON body {currentPassword, newPassword}.
func (ht *HTTPTransport) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleChangePassword(w, r)
}

func (ht *HTTPTransport) handleChangePassword(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "change password failed", "error", err)
		}
	}(r.Context())

	principal, ok := context_.PrincipalFromContext(r.Context())
	if !ok {
		return ht.fail(w, errNoPrincipal)
	}

	var change domain.PasswordChange
	if err := http_.DecodeJSON(w, r, &change); err != nil {
		return ht.fail(w, err)
	}

	if err := ht.authSvc.ChangePassword(r.Context(), principal.UserID, change); err != nil {
		return ht.fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Password updated successfully"})
}
