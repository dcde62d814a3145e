package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/taskmanager/internal/api"
	"github.com/mkrupp/taskmanager/internal/infra/config"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
	"github.com/mkrupp/taskmanager/internal/infra/secrets"
	"github.com/mkrupp/taskmanager/internal/infra/transport/http"
	"github.com/mkrupp/taskmanager/internal/repo"
	"github.com/mkrupp/taskmanager/internal/svc/authsvc"
)

const (
	appName = "taskmanager"
	svcName = "tasksvc"

	envDevelopment = "development"
)

type Config struct {
	config.EnvConfig

	// Env is the deployment environment; only an explicit "development" relaxes
	// secret checks and exposes internal error details
	Env string `env:"ENV" default:"production"`

	Log   logging.LoggerConfig     `envPrefix:"LOG_"`
	Auth  authsvc.AuthConfig       `envPrefix:"AUTH_"`
	HTTP  http.HTTPTransportConfig `envPrefix:"HTTP_"`
	Store repo.StoreConfig         `envPrefix:"STORE_"`
	AWS   secrets.AWSConfig        `envPrefix:"AWS_"`
}

func (c Config) development() bool {
	return c.Env == envDevelopment
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.tasksvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	log.InfoContext(ctx, "starting", "env", cfg.Env, "addr", cfg.HTTP.ServerAddr)

	var resolver authsvc.SecretResolver

	if cfg.Auth.JWTSecret == "" && cfg.Auth.JWTSecretID != "" {
		if resolver, err = secrets.NewAWSResolver(ctx, cfg.AWS); err != nil {
			return fmt.Errorf("new secret resolver: %w", err)
		}
	}

	secret, err := authsvc.GetSigningSecret(ctx, cfg.Auth, resolver, cfg.development())
	if err != nil {
		return fmt.Errorf("get signing secret: %w", err)
	}

	store, err := repo.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer func() {
		if closeErr := store.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.WarnContext(ctx, "close store failed", "error", closeErr)
		}
	}()

	cfg.HTTP.ExposeErrors = cfg.HTTP.ExposeErrors || cfg.development()

	router, err := api.New(store, cfg.Auth, secret, cfg.HTTP)
	if err != nil {
		return fmt.Errorf("new api: %w", err)
	}

	if err := http.ListenAndServe(ctx, router, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
