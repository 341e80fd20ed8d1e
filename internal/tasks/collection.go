package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/services"
	"github.com/desertthunder/watchlist/internal/session"
	"github.com/desertthunder/watchlist/internal/shared"
)

const (
	MessageFetchFailed  = "Failed to fetch movies"
	MessageSaveFailed   = "Failed to save movie"
	MessageDeleteFailed = "Failed to delete movie"
	MessageImportFailed = "Failed to import movies"
	MessageExportFailed = "Failed to export movies"
	MessageCreated      = "Movie added successfully!"
	MessageUpdated      = "Movie updated successfully!"
	MessageDeleted      = "Movie deleted successfully!"
)

// MovieAPI is the remote side of the collection. [services.MovieClient] implements it.
type MovieAPI interface {
	List(ctx context.Context, filter models.Filter) ([]models.Movie, error)
	Create(ctx context.Context, draft models.MovieDraft) (models.Movie, error)
	Update(ctx context.Context, id models.MovieID, fields models.MovieFields) (models.Movie, error)
	Delete(ctx context.Context, id models.MovieID) error
}

// Op names a collection operation for busy tracking.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Collection mirrors the server's movie list for the current filter.
//
// The local list only changes after a successful server response. Failures notify the user and leave it untouched.
// Overlapping calls are allowed; [Collection.Busy] lets UIs disable the control that triggered one.
type Collection struct {
	mu     sync.Mutex
	movies []models.Movie
	filter models.Filter
	busy   map[Op]int

	api      MovieAPI
	notifier session.Notifier
	logger   *log.Logger
}

// CollectionOpts configures a [Collection].
type CollectionOpts struct {
	API      MovieAPI
	Notifier session.Notifier
	Logger   *log.Logger
}

func NewCollection(opts CollectionOpts) *Collection {
	if opts.Notifier == nil {
		opts.Notifier = session.NotifierFunc(func(session.Notification) {})
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Collection{
		movies:   []models.Movie{},
		busy:     map[Op]int{},
		api:      opts.API,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// Movies returns a copy of the current list.
func (c *Collection) Movies() []models.Movie {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Movie{}, c.movies...)
}

// Filter returns the filter of the last successful fetch, or the one set by [Collection.SetFilter].
func (c *Collection) Filter() models.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Find returns the movie with the given id from the local list.
func (c *Collection) Find(id models.MovieID) (models.Movie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.movies[i], true
	}
	return models.Movie{}, false
}

// Busy reports whether any call of op is in flight.
func (c *Collection) Busy(op Op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[op] > 0
}

// Reset drops the local list, e.g. after the session ends.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movies = []models.Movie{}
	c.filter = models.Filter{}
}

// List fetches movies matching filter and replaces the whole local list.
func (c *Collection) List(ctx context.Context, filter models.Filter) ([]models.Movie, error) {
	defer c.begin(OpList)()

	movies, err := c.api.List(ctx, filter)
	if err != nil {
		c.fail(err, MessageFetchFailed, false)
		return nil, err
	}

	c.mu.Lock()
	c.movies = append([]models.Movie{}, movies...)
	c.filter = filter
	c.mu.Unlock()

	c.logger.Debug("movies fetched", "count", len(movies), "genre", filter.Genre, "watched", filter.WatchedLabel())
	return append([]models.Movie{}, movies...), nil
}

// SetFilter stores filter and refetches with it.
func (c *Collection) SetFilter(ctx context.Context, filter models.Filter) ([]models.Movie, error) {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
	return c.List(ctx, filter)
}

// Create validates draft locally, posts it and appends the server's movie.
func (c *Collection) Create(ctx context.Context, draft models.MovieDraft) (models.Movie, error) {
	return c.create(ctx, draft, true)
}

// create is [Collection.Create] with optional notifications, so bulk imports can report once.
func (c *Collection) create(ctx context.Context, draft models.MovieDraft, notify bool) (models.Movie, error) {
	if err := draft.Validate(); err != nil {
		if notify {
			c.fail(err, MessageSaveFailed, true)
		}
		return models.Movie{}, err
	}

	defer c.begin(OpCreate)()

	movie, err := c.api.Create(ctx, draft)
	if err != nil {
		if notify {
			c.fail(err, MessageSaveFailed, true)
		}
		return models.Movie{}, err
	}

	c.mu.Lock()
	c.movies = append(c.movies, movie)
	c.mu.Unlock()

	if notify {
		c.notifier.Notify(session.Notification{Level: session.LevelSuccess, Message: MessageCreated})
	}
	return movie, nil
}

// Update sends a partial update and replaces the local entry with the server's merged movie.
//
// If the id is not in the local list, the list is left as is.
func (c *Collection) Update(ctx context.Context, id models.MovieID, fields models.MovieFields) (models.Movie, error) {
	if err := fields.Validate(); err != nil {
		c.fail(err, MessageSaveFailed, true)
		return models.Movie{}, err
	}

	defer c.begin(OpUpdate)()

	movie, err := c.api.Update(ctx, id, fields)
	if err != nil {
		c.fail(err, MessageSaveFailed, true)
		return models.Movie{}, err
	}

	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.movies[i] = movie
	}
	c.mu.Unlock()

	c.notifier.Notify(session.Notification{Level: session.LevelSuccess, Message: MessageUpdated})
	return movie, nil
}

// Delete removes a movie. Callers confirm with the user first.
func (c *Collection) Delete(ctx context.Context, id models.MovieID) error {
	defer c.begin(OpDelete)()

	if err := c.api.Delete(ctx, id); err != nil {
		c.fail(err, MessageDeleteFailed, false)
		return err
	}

	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.movies = append(c.movies[:i:i], c.movies[i+1:]...)
	}
	c.mu.Unlock()

	c.notifier.Notify(session.Notification{Level: session.LevelSuccess, Message: MessageDeleted})
	return nil
}

func (c *Collection) begin(op Op) func() {
	c.mu.Lock()
	c.busy[op]++
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.busy[op]--
		c.mu.Unlock()
	}
}

func (c *Collection) indexLocked(id models.MovieID) int {
	for i, m := range c.movies {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (c *Collection) fail(err error, fallback string, useServerMessage bool) {
	c.logger.Warn(fallback, "error", err)
	msg := fallback
	if useServerMessage {
		msg = failureMessage(err, fallback)
	}
	c.notifier.Notify(session.Notification{Level: session.LevelError, Message: msg})
}

// failureMessage picks the text shown for a failed operation: a local validation message, the server's
// message, or fallback.
func failureMessage(err error, fallback string) string {
	if errors.Is(err, shared.ErrValidation) {
		msg := strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": ")
		if msg == "" {
			return fallback
		}
		return strings.ToUpper(msg[:1]) + msg[1:]
	}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) && !apiErr.Outcome.Invalidates() {
		if msg := apiErr.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// IsSessionEnded reports whether err means the session was invalidated by the server.
func IsSessionEnded(err error) bool {
	return errors.Is(err, shared.ErrSessionExpired) || errors.Is(err, shared.ErrUnauthenticated)
}

var _ MovieAPI = (*services.MovieClient)(nil)
