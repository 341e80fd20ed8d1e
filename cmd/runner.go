package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/repositories"
	"github.com/desertthunder/watchlist/internal/services"
	"github.com/desertthunder/watchlist/internal/session"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/desertthunder/watchlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Environment variables read at startup.
const (
	EnvConfigPath = "WATCHLIST_CONFIG"
	EnvAPIURL     = "WATCHLIST_API_URL"
	EnvPassword   = "WATCHLIST_PASSWORD"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The client stack (store, gateway, session, collection) is built lazily by [Runner.connect]
// so commands like `setup config` work without a valid configuration.
type Runner struct {
	config        *shared.Config
	configPath    string
	requireConfig bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	store      models.CredentialStore

	db         *sql.DB
	events     *repositories.SessionEventRepository
	gateway    *services.Gateway
	session    *session.Machine
	auth       *tasks.AuthFlow
	collection *tasks.Collection
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Store overrides the backend named by the session config.
	Store models.CredentialStore
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Config is loaded from ConfigPath on first use.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moviesCommand, apiCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig resolves the configuration once: explicit config, then file, then embedded defaults.
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	config := shared.DefaultConfig()
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			loaded, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return nil, err
			}
			config = loaded
		} else if r.requireConfig {
			return nil, fmt.Errorf("%w: %s (run `watchlist setup config` to create it)", shared.ErrMissingConfig, r.configPath)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if url := os.Getenv(EnvAPIURL); url != "" {
		config.API.BaseURL = url
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	r.config = config
	return config, nil
}

// sessionOpts selects how the session surfaces notifications and navigation.
type sessionOpts struct {
	Notifier  session.Notifier
	Navigator session.Navigator
	Scheduler session.Scheduler
}

// connect builds the client stack. It is a no-op after the first successful call.
func (r *Runner) connect(opts sessionOpts) error {
	if r.session != nil {
		return nil
	}

	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	if opts.Notifier == nil {
		opts.Notifier = session.NotifierFunc(r.notify)
	}
	if opts.Navigator == nil {
		opts.Navigator = session.NavigatorFunc(func(route session.Route) {
			r.logger.Debug("navigate", "route", route)
		})
	}
	if opts.Scheduler == nil {
		opts.Scheduler = session.ImmediateScheduler{}
	}

	if config.Session.Store == shared.StoreSQLite && r.db == nil {
		db, err := shared.OpenMigrated(config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.events = repositories.NewSessionEventRepository(db)
	}

	if r.store == nil {
		store, err := repositories.NewCredentialStore(config.Session, r.db)
		if err != nil {
			return err
		}
		r.store = store
	}

	httpClient := r.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.API.Timeout()}
	}

	r.gateway = services.NewGateway(services.GatewayOpts{
		BaseURL:    config.API.BaseURL,
		HTTPClient: httpClient,
		Store:      r.store,
		Logger:     shared.WithLogger(r.logger, "component", "gateway"),
	})

	machine := session.NewMachine(session.MachineOpts{
		Store:         r.store,
		Notifier:      opts.Notifier,
		Navigator:     opts.Navigator,
		Scheduler:     opts.Scheduler,
		RedirectDelay: config.Session.RedirectDelay(),
		Logger:        shared.WithLogger(r.logger, "component", "session"),
	})
	machine.OnTransition(r.recordTransition)
	r.gateway.SetInvalidator(machine)

	r.auth = tasks.NewAuthFlow(tasks.AuthFlowOpts{
		API:       services.NewAuthClient(r.gateway),
		Session:   machine,
		Notifier:  opts.Notifier,
		Navigator: opts.Navigator,
		Logger:    r.logger,
	})
	r.collection = tasks.NewCollection(tasks.CollectionOpts{
		API:      services.NewMovieClient(r.gateway),
		Notifier: opts.Notifier,
		Logger:   r.logger,
	})

	if err := machine.Start(); err != nil {
		return err
	}
	r.session = machine
	return nil
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// recordTransition persists session transitions for `auth status --events`.
func (r *Runner) recordTransition(t session.Transition) {
	if r.events == nil {
		return
	}
	event := models.NewSessionEvent(t.From.String(), t.To.String(), t.Reason)
	if err := r.events.Create(event); err != nil {
		r.logger.Warn("failed to record session event", "error", err)
	}
}

// notify prints a notification as a single prefixed line.
func (r *Runner) notify(n session.Notification) {
	prefix := map[session.Level]string{
		session.LevelSuccess: "✓",
		session.LevelWarn:    "!",
		session.LevelError:   "✗",
	}[n.Level]
	if prefix == "" {
		prefix = "•"
	}
	r.writePlain("%s %s\n", prefix, n.Message)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
