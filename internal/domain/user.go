package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrMissingFields is returned when username, email or password is empty.
	ErrMissingFields = newError(ErrValidation, "username, email and password are required")
	// ErrInvalidUsername is returned when a username is outside the allowed length.
	ErrInvalidUsername = newError(ErrValidation, "username must be between 3 and 30 characters")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = newError(ErrValidation, "email address is invalid")
	// ErrPasswordTooShort is returned when a password is shorter than MinPasswordLength.
	ErrPasswordTooShort = newError(ErrValidation, "password must be at least 8 characters")
	// ErrPasswordTooLong is returned when a password exceeds what bcrypt can hash.
	ErrPasswordTooLong = newError(ErrValidation, "password must be at most 72 bytes")
	// ErrMissingCredentials is returned when a login request lacks a login name or password.
	ErrMissingCredentials = newError(ErrValidation, "username or email and password are required")

	// ErrUsernameTaken is returned when trying to register an existing username.
	ErrUsernameTaken = newError(ErrConflict, "username already taken")
	// ErrEmailTaken is returned when trying to register an existing email address.
	ErrEmailTaken = newError(ErrConflict, "email address already registered")
	// ErrUserAlreadyExists is returned by repositories when a uniqueness violation
	// cannot be attributed to a single field.
	ErrUserAlreadyExists = newError(ErrConflict, "user already exists")

	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = newError(ErrNotFound, "user not found")
	// ErrInvalidCredentials is returned when the login/password combination is incorrect.
	// Unknown users and wrong passwords both yield this error.
	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid credentials")
	// ErrWrongCurrentPassword is returned by a password change whose current password
	// does not match. It is a validation error so clients keep their session.
	ErrWrongCurrentPassword = newError(ErrValidation, "current password is incorrect")
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// User represents a registered account.
type User struct {
	ID           string     // UUIDv7
	Username     string     // Login username, case-sensitive
	Email        string     // Lowercased email address
	PasswordHash []byte     // bcrypt hash
	CreatedAt    time.Time  // Registration time
	LastLogin    *time.Time // Last successful login, nil if never
}

// UserPublic is the projection of a user returned alongside tokens.
type UserPublic struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserProfile is the projection returned by the profile endpoint.
type UserProfile struct {
	UserPublic

	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin"`
}

// Public returns the fields of u that may leave the server alongside a token.
func (u *User) Public() UserPublic {
	return UserPublic{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// Profile returns the fields of u shown on the profile endpoint.
func (u *User) Profile() UserProfile {
	return UserProfile{
		UserPublic: u.Public(),
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLogin,
	}
}

// Registration holds the raw input of a sign-up request.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims username and email and lowercases the email.
// The password is left untouched.
func (r Registration) Normalize() Registration {
	return Registration{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.ToLower(strings.TrimSpace(r.Email)),
		Password: r.Password,
	}
}

// Validate checks a normalized registration.
func (r Registration) Validate() error {
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return ErrMissingFields
	}

	if n := utf8.RuneCountInString(r.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}

	if !emailPattern.MatchString(r.Email) {
		return ErrInvalidEmail
	}

	return ValidatePassword(r.Password)
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	return nil
}

// NormalizeLogin trims a username-or-email login name. Email lookups are
// lowercased by the repositories.
func NormalizeLogin(login string) string {
	return strings.TrimSpace(login)
}

// Credentials is the body of a login request. Username is accepted for
// clients that predate login by email.
type Credentials struct {
	UsernameOrEmail string `json:"usernameOrEmail,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password"`
}

// Login returns the login name, preferring UsernameOrEmail.
func (c Credentials) Login() string {
	if login := NormalizeLogin(c.UsernameOrEmail); login != "" {
		return login
	}

	return NormalizeLogin(c.Username)
}

// PasswordChange is the body of a password change request.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
