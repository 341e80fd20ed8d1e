// package server contains the routes and middleware of the mock movie API used for local development and tests
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/watchlist/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Opts configures a [Server].
type Opts struct {
	Config shared.ServerConfig
	Logger *log.Logger
	// LegacyErrors omits the structured "code" field from 401 bodies so clients must match on message text.
	LegacyErrors bool
	// BcryptCost defaults to [bcrypt.DefaultCost].
	BcryptCost int
	// Now defaults to [time.Now]. Tests override it to expire tokens.
	Now func() time.Time
}

// Server is an in-memory implementation of the movie API.
type Server struct {
	cfg    shared.ServerConfig
	logger *log.Logger
	store  *Store
	tokens *TokenIssuer
	legacy bool
	cost   int
	router chi.Router

	httpSrv *http.Server
}

// New builds a server with its routes registered. The JWT secret falls back to a random one per process.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	secret := opts.Config.JWTSecret
	if secret == "" {
		secret = shared.GenerateID()
		opts.Logger.Warn("server.jwt_secret is not set, tokens will not survive a restart")
	}

	s := &Server{
		cfg:    opts.Config,
		logger: opts.Logger,
		store:  NewStore(),
		tokens: NewTokenIssuer([]byte(secret), opts.Config.TokenTTL(), opts.Now),
		legacy: opts.LegacyErrors,
		cost:   opts.BcryptCost,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})
	r.Route("/movies", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/", s.handleListMovies)
		r.Post("/", s.handleCreateMovie)
		r.Patch("/{id}", s.handleUpdateMovie)
		r.Delete("/{id}", s.handleDeleteMovie)
	})
	return r
}

// ServeHTTP lets the server be mounted directly, e.g. in [net/http/httptest].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store exposes the in-memory data, mainly for tests.
func (s *Server) Store() *Store { return s.store }

// Tokens exposes the token issuer, mainly for tests.
func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// Start listens on the configured address until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock API listening", "addr", s.cfg.Addr())
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("mock API stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
