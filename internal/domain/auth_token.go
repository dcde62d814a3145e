package domain

import "time"

var (
	// ErrTokenMalformed is returned when the Authorization header is missing, is not
	// a bearer credential, or the token cannot be decoded.
	ErrTokenMalformed = newError(ErrUnauthenticated, "missing or malformed token")
	// ErrTokenSignature is returned when a token's signature does not verify.
	ErrTokenSignature = newError(ErrUnauthenticated, "invalid token")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = newError(ErrUnauthenticated, "token expired, please log in again")
)

// DefaultTokenTTL is the validity of a session token.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the identity embedded in a session token.
type Claims struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    UserPublic `json:"user"`
}

// MessageResponse is a plain confirmation or error body.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
