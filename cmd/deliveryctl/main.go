package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/homedeliver/api/internal/app"
	"github.com/homedeliver/api/internal/cli"
	"github.com/homedeliver/api/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(connect)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

// connect builds the services from the environment. The sweep report mailer
// is wired; websocket broadcast is not, since no dashboards attach to a CLI
// process.
func connect(ctx context.Context) (*cli.Backend, func(), error) {
	cfg := config.Load()
	pool, err := app.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, closeIntegrations := app.Integrations(ctx, cfg)
	svc := app.NewServices(cfg, pool, opts)

	return &cli.Backend{Sweeper: svc.Lifecycle, Migrator: svc.Migration}, func() {
		closeIntegrations()
		pool.Close()
	}, nil
}
