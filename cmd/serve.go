package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/watchlist/internal/server"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the mock movie API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	cfg := config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Opts{
		Config:       cfg,
		Logger:       shared.WithLogger(r.logger, "component", "server"),
		LegacyErrors: cmd.Bool("legacy-errors"),
	})
	return srv.Start(ctx)
}
