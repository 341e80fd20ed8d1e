package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	app := newApp(runner)

	err := app.Run(context.Background(), os.Args)
	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("failed to close database", "error", closeErr)
	}

	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command. The --config flag only fills the runner's path when the runner has none.
// A path given by flag or environment must exist; the default path falls back to built-in settings.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watchlist",
		Usage:   "Keep a movie watchlist on a remote API",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(EnvConfigPath),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if r.configPath == "" {
				r.configPath = cmd.String("config")
				r.requireConfig = cmd.IsSet("config")
			}
			if cmd.Bool("debug") {
				shared.SetLogLevel(r.logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: r.register(),
	}
}
