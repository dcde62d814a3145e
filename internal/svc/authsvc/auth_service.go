package authsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/taskmanager/internal/domain"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
	"github.com/mkrupp/taskmanager/internal/repo/user"
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret
	JWTSecret string `env:"JWT_SECRET" default:""`

	// JWTSecretID names a secret holding JWTSecret in AWS Secrets Manager ("<id>" or "<id>#<key>")
	JWTSecretID string `env:"JWT_SECRET_ID" default:""`

	// TokenTTL is the validity of issued tokens
	TokenTTL time.Duration `env:"TOKEN_TTL" default:"24h"`

	// BcryptCost is the work factor of password hashes
	BcryptCost int `env:"BCRYPT_COST" default:"10"`
}

// AuthService provides authentication and user management functionality.
// It handles user registration, login, token verification and password changes.
type AuthService struct {
	Config        AuthConfig
	UserRepo      user.Repository
	Log           logging.Logger
	SigningSecret []byte

	// Now returns the current time; replaced in tests.
	Now func() time.Time

	// dummyHash is compared against when a login names an unknown user, so
	// unknown users and wrong passwords take the same time.
	dummyHash []byte
}

// NewAuthService creates a new AuthService with the given user repository factory,
// configuration and signing secret.
func NewAuthService(repoFactory user.RepositoryFactory, cfg AuthConfig, secret []byte) (*AuthService, error) {
	log := logging.GetLogger("svc.authsvc.auth_service")

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, ErrInvalidBcryptCost
	}

	if len(secret) == 0 {
		return nil, ErrNoSigningSecret
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = domain.DefaultTokenTTL
	}

	userRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &AuthService{
		Config:        cfg,
		UserRepo:      userRepo,
		Log:           log,
		SigningSecret: secret,
		Now:           time.Now,
		dummyHash:     dummyHash,
	}, nil
}

func (s *AuthService) now() time.Time {
	return s.Now().UTC().Truncate(time.Millisecond)
}

// Register creates a new account and returns a session token for it.
// The password is hashed before storage.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (_ string, _ *domain.User, err error) {
	reg = reg.Normalize()
	log := s.Log.With(logging.Group("user", "username", reg.Username))

	defer func() {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "register user failed", "error", err)
		} else {
			log.InfoContext(ctx, "user registered")
		}
	}()

	if err := reg.Validate(); err != nil {
		return "", nil, err
	}

	if err := s.checkAvailable(ctx, reg); err != nil {
		return "", nil, err
	}

	passwordHash, err := hashPassword(reg.Password, s.Config.BcryptCost)
	if err != nil {
		return "", nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", nil, fmt.Errorf("new user id: %w", err)
	}

	newUser := &domain.User{
		ID:           id.String(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}

	// A concurrent registration may still win the race; the repository reports
	// it with the same conflict errors as the check above.
	if err := s.UserRepo.CreateUser(ctx, newUser); err != nil {
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issue(newUser)
	if err != nil {
		return "", nil, err
	}

	return token, newUser, nil
}

func (s *AuthService) checkAvailable(ctx context.Context, reg domain.Registration) error {
	if _, err := s.UserRepo.GetUserByUsername(ctx, reg.Username); err == nil {
		return domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("get user by username: %w", err)
	}

	if _, err := s.UserRepo.GetUserByEmail(ctx, reg.Email); err == nil {
		return domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("get user by email: %w", err)
	}

	return nil
}

// Login authenticates a user by username or email and returns a session token.
// Unknown users and wrong passwords both return domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, login, password string) (_ string, _ *domain.User, err error) {
	login = domain.NormalizeLogin(login)
	log := s.Log

	defer func() {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "login failed", "error", err)
		} else {
			log.InfoContext(ctx, "login successful")
		}
	}()

	if login == "" || password == "" {
		return "", nil, domain.ErrMissingCredentials
	}

	found, err := s.lookupLogin(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		passwordMatches(s.dummyHash, password)
		log.DebugContext(ctx, "login for unknown user")

		return "", nil, domain.ErrInvalidCredentials
	} else if err != nil {
		return "", nil, err
	}

	log = log.With(logging.Group("user", "id", found.ID))

	if !passwordMatches(found.PasswordHash, password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.UserRepo.UpdateLastLogin(ctx, found.ID, now); err != nil {
		log.WarnContext(ctx, "update last login failed", "error", err)
	} else {
		found.LastLogin = &now
	}

	token, err := s.issue(found)
	if err != nil {
		return "", nil, err
	}

	return token, found, nil
}

// lookupLogin resolves a login name, trying the username first and then, for
// names that look like an address, the email.
func (s *AuthService) lookupLogin(ctx context.Context, login string) (*domain.User, error) {
	found, err := s.UserRepo.GetUserByUsername(ctx, login)
	if err == nil || !errors.Is(err, domain.ErrUserNotFound) || !strings.Contains(login, "@") {
		return found, err //nolint:wrapcheck
	}

	return s.UserRepo.GetUserByEmail(ctx, login) //nolint:wrapcheck
}

func (s *AuthService) issue(u *domain.User) (string, error) {
	now := s.Now()

	return IssueToken(s.SigningSecret, domain.Claims{
		UserID:    u.ID,
		Username:  u.Username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.Config.TokenTTL),
	})
}

// Verify checks an Authorization header value ("Bearer <token>") and returns
// the token's claims. It implements http.TokenVerifier.
func (s *AuthService) Verify(ctx context.Context, authorization string) (_ domain.Claims, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "verify token failed", "error", err)
		}
	}()

	tokenString, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return domain.Claims{}, domain.ErrTokenMalformed
	}

	claims, err := ParseToken(s.SigningSecret, strings.TrimSpace(tokenString), s.Now())
	if err != nil {
		return domain.Claims{}, err
	}

	return claims, nil
}

// Me returns the account of an authenticated user.
// Returns domain.ErrUserNotFound if the account was removed after the token was issued.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	found, err := s.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return found, nil
}

// ChangePassword replaces the password of userID after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, change domain.PasswordChange) (err error) {
	log := s.Log.With(logging.Group("user", "id", userID))

	defer func() {
		if err != nil {
			log.Log(ctx, logging.ErrorLevel(err), "change password failed", "error", err)
		} else {
			log.InfoContext(ctx, "password changed")
		}
	}()

	if change.CurrentPassword == "" || change.NewPassword == "" {
		return domain.ErrMissingCredentials
	}

	if err := domain.ValidatePassword(change.NewPassword); err != nil {
		return err
	}

	found, err := s.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !passwordMatches(found.PasswordHash, change.CurrentPassword) {
		return domain.ErrWrongCurrentPassword
	}

	passwordHash, err := hashPassword(change.NewPassword, s.Config.BcryptCost)
	if err != nil {
		return err
	}

	if err := s.UserRepo.UpdatePasswordHash(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}
