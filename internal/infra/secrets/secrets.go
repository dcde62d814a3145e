// Package secrets resolves sensitive configuration values, such as the token
// signing secret, from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

var (
	// ErrSecretEmpty is returned when a secret exists but holds no string value.
	ErrSecretEmpty = errors.New("secret has no string value")
	// ErrSecretKeyMissing is returned when a JSON secret lacks the requested key.
	ErrSecretKeyMissing = errors.New("secret key missing")
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSConfig holds configuration for the Secrets Manager resolver.
type AWSConfig struct {
	// Region overrides the region of the default AWS credential chain
	Region string `env:"REGION" default:""`
	// Endpoint overrides the service endpoint (LocalStack)
	Endpoint string `env:"ENDPOINT" default:""`
}

// Resolver fetches secret strings by id.
type Resolver struct {
	client SecretsManagerAPI
	log    logging.Logger
}

// NewResolver creates a Resolver using the given client.
func NewResolver(client SecretsManagerAPI) *Resolver {
	return &Resolver{
		client: client,
		log:    logging.GetLogger("infra.secrets"),
	}
}

// NewAWSResolver creates a Resolver backed by the default AWS credential chain.
func NewAWSResolver(ctx context.Context, cfg AWSConfig) (*Resolver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewResolver(client), nil
}

// Resolve returns the value of the secret named by ref. A ref of the form
// "<secret-id>#<key>" selects a key from a JSON object secret.
func (r *Resolver) Resolve(ctx context.Context, ref string) (_ string, err error) {
	secretID, key, _ := strings.Cut(ref, "#")
	log := r.log.With(logging.Group("secret", "id", secretID, "key", key))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "resolve secret failed", "error", err)
		} else {
			log.DebugContext(ctx, "secret resolved")
		}
	}()

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}

	value := aws.ToString(out.SecretString)
	if value == "" {
		return "", ErrSecretEmpty
	}

	if key == "" {
		return value, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	field, ok := fields[key]
	if !ok || field == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretKeyMissing, key)
	}

	return field, nil
}
