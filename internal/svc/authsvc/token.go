package authsvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// tokenClaims is the JWT payload: {userId, username, iat, exp}.
type tokenClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs claims with HS256.
func IssueToken(secret []byte, claims domain.Claims) (string, error) {
	//nolint:exhaustruct
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken verifies an HS256 token at the given time and returns its claims.
// Errors wrap domain.ErrTokenExpired, domain.ErrTokenSignature or domain.ErrTokenMalformed.
func ParseToken(secret []byte, tokenString string, now time.Time) (domain.Claims, error) {
	var claims tokenClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.Claims{}, errors.Join(domain.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.Claims{}, errors.Join(domain.ErrTokenSignature, err)
	default:
		return domain.Claims{}, errors.Join(domain.ErrTokenMalformed, err)
	}

	if claims.UserID == "" || claims.IssuedAt == nil {
		return domain.Claims{}, domain.ErrTokenMalformed
	}

	return domain.Claims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
