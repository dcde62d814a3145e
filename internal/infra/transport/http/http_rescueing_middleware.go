package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// RescueingMiddleware recovers from handler panics. The panic value and stack are
// logged; the client only sees the generic internal error body. Aborted handlers
// (http.ErrAbortHandler) are re-panicked so net/http drops the connection.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler { //nolint:errorlint,goerr113
					panic(p)
				}

				log.ErrorContext(ctx, "handler panicked",
					slog.Group("http", "method", r.Method, "uri", r.RequestURI),
					slog.Group("error", "panic", fmt.Sprint(p), "stack", string(debug.Stack())),
				)

				_ = WriteJSON(w, http.StatusInternalServerError, domain.MessageResponse{Message: internalErrorMessage})
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}
