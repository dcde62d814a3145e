package logging

import "github.com/mkrupp/taskmanager/internal/domain"

// ErrorLevel picks the level for logging a failed operation: caller mistakes
// (errors with a public kind) are warnings, everything else is an error.
func ErrorLevel(err error) Level {
	if _, ok := domain.PublicError(err); ok {
		return LevelWarn
	}

	return LevelError
}
