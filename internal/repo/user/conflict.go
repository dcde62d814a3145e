package user

import (
	"errors"
	"strings"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// conflictError attributes a unique constraint violation to the offending field
// by looking for the column or index name in the driver's message.
func conflictError(detail string, err error) error {
	switch {
	case strings.Contains(detail, "email"):
		return errors.Join(domain.ErrEmailTaken, err)
	case strings.Contains(detail, "username"):
		return errors.Join(domain.ErrUsernameTaken, err)
	default:
		return errors.Join(domain.ErrUserAlreadyExists, err)
	}
}
