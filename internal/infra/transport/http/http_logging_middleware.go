package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// statusRecorder remembers the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter

	status      int
	bytesSent   int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	w.bytesSent += len(b)

	return w.ResponseWriter.Write(b) //nolint:wrapcheck
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// responseLevel picks the log level of a finished request: server errors are
// errors, client errors warnings, everything else info.
func responseLevel(status int) logging.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logging.LevelError
	case status >= http.StatusBadRequest:
		return logging.LevelWarn
	default:
		return logging.LevelInfo
	}
}

// LoggingMiddleware creates middleware that logs one line per request once the
// response is written. Request bodies and Authorization headers are never logged.
func LoggingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Log(r.Context(), responseLevel(rec.status), "response", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", rec.status,
			"bytes_sent", rec.bytesSent,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		))
	})
}
