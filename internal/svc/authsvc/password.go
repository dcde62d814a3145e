package authsvc

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// ErrInvalidBcryptCost is returned for a cost outside bcrypt's accepted range.
var ErrInvalidBcryptCost = fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)

func hashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, errors.Join(domain.ErrPasswordTooLong, err)
		}

		return nil, fmt.Errorf("hash password: %w", err)
	}

	return hash, nil
}

// passwordMatches compares in constant time with respect to the password.
func passwordMatches(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
