package http

import (
	"context"
	"net/http"

	"github.com/mkrupp/taskmanager/internal/domain"
	context_ "github.com/mkrupp/taskmanager/internal/infra/context"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// TokenVerifier checks the raw Authorization header of a request.
type TokenVerifier interface {
	Verify(ctx context.Context, authorization string) (domain.Claims, error)
}

// AuthorizingMiddleware creates middleware that validates bearer tokens.
// Requests without a valid token are rejected with 401 before reaching next.
// On success the verified claims are stored in the request context.
func AuthorizingMiddleware(next http.Handler, verifier TokenVerifier, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			log.WarnContext(r.Context(), "request not authorized", "error", err)
			_ = WriteError(w, err, false)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithPrincipal(r.Context(), claims)))
	})
}

// Authorizing adapts AuthorizingMiddleware to the func(http.Handler) http.Handler
// shape used by routers.
func Authorizing(verifier TokenVerifier, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return AuthorizingMiddleware(next, verifier, log)
	}
}
