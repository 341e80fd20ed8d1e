// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/watchlist/internal/formatter"
	"github.com/urfave/cli/v3"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "genre",
			Usage: "Only movies whose genre contains this text",
		},
		&cli.StringFlag{
			Name:  "watched",
			Usage: "Watched filter: all, watched or unwatched",
			Value: "all",
		},
	}
}

func movieFlags(titleRequired bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "title",
			Aliases:  []string{"t"},
			Usage:    "Movie title",
			Required: titleRequired,
		},
		&cli.StringFlag{
			Name:  "director",
			Usage: "Director",
		},
		&cli.StringFlag{
			Name:  "genre",
			Usage: "Genre",
		},
		&cli.StringFlag{
			Name:  "year",
			Usage: "Release year",
		},
		&cli.StringFlag{
			Name:  "rating",
			Usage: "Rating between 0 and 10",
		},
		&cli.BoolFlag{
			Name:  "watched",
			Usage: "Mark as watched",
		},
	}
}

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the example configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "Set api.base_url in the written file",
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "Set session.store in the written file (sqlite, file or memory)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles login, registration and session inspection
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, register and manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and store the credential",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars(EnvPassword),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars(EnvPassword),
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored credential",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the session state",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "events",
						Usage: "Also show this many recent session transitions",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// moviesCommand handles the watchlist itself
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "List and edit the watchlist",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List movies",
				Flags: append(filterFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				),
				Action: r.MoviesList,
			},
			{
				Name:   "add",
				Usage:  "Add a movie",
				Flags:  movieFlags(true),
				Action: r.MoviesAdd,
			},
			{
				Name:  "edit",
				Usage: "Change fields of a movie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  movieFlags(false),
				Action: r.MoviesEdit,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a movie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Confirm the deletion",
					},
				},
				Action: r.MoviesDelete,
			},
			{
				Name:  "export",
				Usage: "Write the watchlist to a file",
				Flags: append(filterFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, markdown, text or json",
						Value:   string(formatter.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: watchlist.<ext>)",
					},
				),
				Action: r.MoviesExport,
			},
			{
				Name:  "import",
				Usage: "Create movies from a CSV file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate rows without creating anything",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second (default: api.rate_limit)",
					},
				},
				Action: r.MoviesImport,
			},
		},
	}
}

// apiCommand handles direct API calls through the gateway
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls with the stored credential",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with a JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON request body",
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "patch",
				Usage: "Direct PATCH with a JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON request body",
					},
				},
				Action: r.APIPatch,
			},
			{
				Name:  "delete",
				Usage: "Direct DELETE",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.APIDelete,
			},
		},
	}
}

// serveCommand runs the local mock API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the in-memory mock movie API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
			&cli.BoolFlag{
				Name:  "legacy-errors",
				Usage: "Omit structured error codes so clients fall back to message matching",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where the TUI writes its logs",
				Value: "./tmp/watchlist-tui.log",
			},
		},
		Action: r.TUI,
	}
}
