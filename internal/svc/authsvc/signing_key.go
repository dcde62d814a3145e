package authsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

// InsecureDevelopmentSecret signs tokens when no secret is configured in development.
const InsecureDevelopmentSecret = "insecure-development-secret-do-not-use-in-production"

// MinSecretLength is the minimum accepted length of a configured signing secret.
const MinSecretLength = 32

var (
	// ErrNoSigningSecret is returned outside development when neither
	// AUTH_JWT_SECRET nor AUTH_JWT_SECRET_ID is set.
	ErrNoSigningSecret = errors.New("no jwt signing secret configured")
	// ErrWeakSigningSecret is returned outside development for short secrets.
	ErrWeakSigningSecret = fmt.Errorf("jwt signing secret must be at least %d bytes", MinSecretLength)
)

// SecretResolver fetches a secret value by reference.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// GetSigningSecret returns the HS256 signing secret: cfg.JWTSecret if set, otherwise
// the secret named by cfg.JWTSecretID from resolver. In development a missing secret
// falls back to InsecureDevelopmentSecret; elsewhere it is an error.
func GetSigningSecret(
	ctx context.Context,
	cfg AuthConfig,
	resolver SecretResolver,
	development bool,
) (_ []byte, err error) {
	log := logging.GetLogger("svc.authsvc.signing_key")

	secret := cfg.JWTSecret

	if secret == "" && cfg.JWTSecretID != "" {
		if resolver == nil {
			return nil, fmt.Errorf("%w: no resolver for secret id %q", ErrNoSigningSecret, cfg.JWTSecretID)
		}

		if secret, err = resolver.Resolve(ctx, cfg.JWTSecretID); err != nil {
			return nil, fmt.Errorf("resolve signing secret: %w", err)
		}
	}

	switch {
	case secret == "" && development:
		log.WarnContext(ctx, "no jwt secret configured, using insecure development secret")

		return []byte(InsecureDevelopmentSecret), nil
	case secret == "":
		return nil, ErrNoSigningSecret
	case len(secret) < MinSecretLength && !development:
		return nil, ErrWeakSigningSecret
	default:
		return []byte(secret), nil
	}
}
