package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkrupp/taskmanager/internal/infra/config"
	"github.com/mkrupp/taskmanager/internal/svc/authsvc"
)

// unsetEnv removes the variables for the duration of the test.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()

	for _, name := range names {
		for _, prefix := range []string{"", "TASKMANAGER_", "TASKMANAGER_TASKSVC_"} {
			t.Setenv(prefix+name, "")
			os.Unsetenv(prefix + name)
		}
	}
}

//nolint:paralleltest
func TestConfig_DefaultsToProduction(t *testing.T) {
	unsetEnv(t, "ENV", "AUTH_JWT_SECRET", "AUTH_JWT_SECRET_ID", "HTTP_EXPOSE_ERRORS")
	t.Setenv(config.DotenvFileVar, filepath.Join(t.TempDir(), "missing.env"))

	ctx := context.Background()

	var cfg Config
	if err := config.Parse(ctx, &cfg, "TASKMANAGER_TASKSVC"); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Env != "production" || cfg.development() {
		t.Errorf("Env = %q, development() = %v, want production", cfg.Env, cfg.development())
	}

	if cfg.HTTP.ExposeErrors {
		t.Error("ExposeErrors = true, want false outside development")
	}

	secret, err := authsvc.GetSigningSecret(ctx, cfg.Auth, nil, cfg.development())
	if !errors.Is(err, authsvc.ErrNoSigningSecret) {
		t.Errorf("GetSigningSecret() = %q, %v, want ErrNoSigningSecret", secret, err)
	}
}

//nolint:paralleltest
func TestConfig_DevelopmentIsExplicit(t *testing.T) {
	unsetEnv(t, "ENV", "AUTH_JWT_SECRET", "AUTH_JWT_SECRET_ID")

	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, []byte("ENV=development\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.DotenvFileVar, dotenv)

	ctx := context.Background()

	var cfg Config
	if err := config.Parse(ctx, &cfg, "TASKMANAGER_TASKSVC"); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !cfg.development() {
		t.Fatalf("Env = %q, want development from .env", cfg.Env)
	}

	secret, err := authsvc.GetSigningSecret(ctx, cfg.Auth, nil, cfg.development())
	if err != nil || string(secret) != authsvc.InsecureDevelopmentSecret {
		t.Errorf("GetSigningSecret() = %q, %v, want the development secret", secret, err)
	}
}
