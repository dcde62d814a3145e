package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mkrupp/taskmanager/internal/client"
	"github.com/mkrupp/taskmanager/internal/infra/config"
	"github.com/mkrupp/taskmanager/internal/infra/logging"
)

const (
	appName = "taskctl"
)

type Config struct {
	config.EnvConfig

	Log    logging.LoggerConfig `envPrefix:"LOG_"`
	Client client.Config
}

func main() {
	var (
		cfg Config
		ctx = context.Background()
	)

	// TASKCTL_API_URL, falling back to API_URL
	if err := config.Parse(ctx, &cfg, strings.ToUpper(appName)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logging.Configure(ctx, cfg.Log, appName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := newRootCmd(cfg, deps{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
