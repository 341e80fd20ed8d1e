package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/services"
	"github.com/desertthunder/watchlist/internal/session"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

// fakeMovieAPI is an in-memory [MovieAPI] that records calls.
type fakeMovieAPI struct {
	mu     sync.Mutex
	movies []models.Movie
	nextID int
	calls  []string

	listErr   error
	createErr error
	updateErr error
	deleteErr error
	// failAfter makes Create fail with createErr after this many successful creates; 0 means always.
	failAfter int
	filters   []models.Filter
}

func (f *fakeMovieAPI) List(_ context.Context, filter models.Filter) ([]models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}

	out := []models.Movie{}
	for _, m := range f.movies {
		if filter.Genre != "" && m.Genre != filter.Genre {
			continue
		}
		if filter.Watched != nil && m.Watched != *filter.Watched {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMovieAPI) Create(_ context.Context, d models.MovieDraft) (models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil && (f.failAfter == 0 || f.nextID >= f.failAfter) {
		return models.Movie{}, f.createErr
	}

	f.nextID++
	m := models.Movie{
		ID:       models.MovieID(strconv.Itoa(f.nextID)),
		Title:    d.Title,
		Director: d.Director,
		Genre:    d.Genre,
		Year:     d.Year,
		Rating:   d.Rating,
		Watched:  d.Watched,
	}
	f.movies = append(f.movies, m)
	return m, nil
}

func (f *fakeMovieAPI) Update(_ context.Context, id models.MovieID, fields models.MovieFields) (models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	if f.updateErr != nil {
		return models.Movie{}, f.updateErr
	}
	for i, m := range f.movies {
		if m.ID == id {
			f.movies[i] = fields.Apply(m)
			return f.movies[i], nil
		}
	}
	return models.Movie{}, &services.APIError{StatusCode: 404, Detail: "Filme não encontrado.", Outcome: services.OutcomeRejected}
}

func (f *fakeMovieAPI) Delete(_ context.Context, id models.MovieID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, m := range f.movies {
		if m.ID == id {
			f.movies = append(f.movies[:i], f.movies[i+1:]...)
			return nil
		}
	}
	return &services.APIError{StatusCode: 404, Detail: "Filme não encontrado.", Outcome: services.OutcomeRejected}
}

func (f *fakeMovieAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func seededAPI() *fakeMovieAPI {
	return &fakeMovieAPI{
		nextID: 5,
		movies: []models.Movie{
			{ID: "1", Title: "Alien", Genre: "Horror", Year: ptr(1979), Rating: ptr(8.5), Watched: true},
			{ID: "5", Title: "Heat", Director: "Michael Mann", Genre: "Crime", Year: ptr(1995), Rating: ptr(7.0)},
		},
	}
}

func newTestCollection(t *testing.T, api *fakeMovieAPI) (*Collection, *session.Inbox) {
	t.Helper()
	inbox := session.NewInbox()
	c := NewCollection(CollectionOpts{API: api, Notifier: inbox})
	if _, err := c.List(context.Background(), models.Filter{}); err != nil {
		t.Fatalf("failed to load collection: %v", err)
	}
	inbox.Drain()
	return c, inbox
}

func expiredErr() error {
	return &services.APIError{StatusCode: 401, Message: services.MessageTokenInvalid, Outcome: services.OutcomeSessionExpired}
}

func lastMessage(t *testing.T, inbox *session.Inbox) session.Notification {
	t.Helper()
	notes := inbox.Notifications()
	if len(notes) == 0 {
		t.Fatal("expected a notification")
	}
	return notes[len(notes)-1]
}

func TestCollection_List(t *testing.T) {
	t.Run("replaces the collection", func(t *testing.T) {
		api := seededAPI()
		c, _ := newTestCollection(t, api)

		got, err := c.List(context.Background(), models.Filter{Genre: "Horror"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "1" {
			t.Errorf("expected only Alien, got %+v", got)
		}
		if diff := cmp.Diff(got, c.Movies()); diff != "" {
			t.Errorf("collection mismatch (-want +got):\n%s", diff)
		}
		if c.Filter().Genre != "Horror" {
			t.Errorf("expected filter to be stored, got %+v", c.Filter())
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		c, _ := newTestCollection(t, seededAPI())
		first := c.Movies()

		if _, err := c.List(context.Background(), models.Filter{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(first, c.Movies()); diff != "" {
			t.Errorf("second list changed collection (-first +second):\n%s", diff)
		}
	})

	t.Run("failure leaves collection unchanged", func(t *testing.T) {
		api := seededAPI()
		c, inbox := newTestCollection(t, api)
		before := c.Movies()

		api.listErr = fmt.Errorf("%w: connection refused", shared.ErrServiceUnavailable)
		if _, err := c.List(context.Background(), models.Filter{Genre: "Crime"}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}

		if diff := cmp.Diff(before, c.Movies()); diff != "" {
			t.Errorf("collection changed (-before +after):\n%s", diff)
		}
		if c.Filter().Genre != "" {
			t.Errorf("filter should not change on failure, got %+v", c.Filter())
		}
		if n := lastMessage(t, inbox); n.Level != session.LevelError || n.Message != MessageFetchFailed {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("SetFilter refetches", func(t *testing.T) {
		api := seededAPI()
		c, _ := newTestCollection(t, api)

		got, err := c.SetFilter(context.Background(), models.Filter{Watched: ptr(false)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Heat" {
			t.Errorf("expected only Heat, got %+v", got)
		}
		if calls := api.Calls(); len(calls) != 2 {
			t.Errorf("expected 2 list calls, got %v", calls)
		}
	})
}

func TestCollection_Create(t *testing.T) {
	t.Run("blank title is rejected before any request", func(t *testing.T) {
		api := seededAPI()
		c, inbox := newTestCollection(t, api)
		before := c.Movies()

		_, err := c.Create(context.Background(), models.MovieDraft{Title: ""})
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}

		if calls := api.Calls(); len(calls) != 1 {
			t.Errorf("expected no create request, got calls %v", calls)
		}
		if diff := cmp.Diff(before, c.Movies()); diff != "" {
			t.Errorf("collection changed (-before +after):\n%s", diff)
		}
		if n := lastMessage(t, inbox); n.Message != "Title is required" {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("appends the server entity", func(t *testing.T) {
		c, inbox := newTestCollection(t, seededAPI())

		m, err := c.Create(context.Background(), models.MovieDraft{Title: "Heat 2", Rating: ptr(6.0)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.ID != "6" {
			t.Errorf("expected server id 6, got %s", m.ID)
		}

		movies := c.Movies()
		if len(movies) != 3 || movies[2].ID != "6" {
			t.Errorf("expected new movie appended, got %+v", movies)
		}
		if n := lastMessage(t, inbox); n.Level != session.LevelSuccess || n.Message != MessageCreated {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("server message is shown", func(t *testing.T) {
		api := seededAPI()
		api.createErr = &services.APIError{StatusCode: 400, Detail: "Título é obrigatório.", Outcome: services.OutcomeRejected}
		c, inbox := newTestCollection(t, api)

		if _, err := c.Create(context.Background(), models.MovieDraft{Title: "X"}); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if len(c.Movies()) != 2 {
			t.Errorf("collection should be unchanged, got %d movies", len(c.Movies()))
		}
		if n := lastMessage(t, inbox); n.Message != "Título é obrigatório." {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("session expiry falls back to generic message", func(t *testing.T) {
		api := seededAPI()
		api.createErr = expiredErr()
		c, inbox := newTestCollection(t, api)

		_, err := c.Create(context.Background(), models.MovieDraft{Title: "X"})
		if !IsSessionEnded(err) {
			t.Fatalf("expected session-ended error, got %v", err)
		}
		if n := lastMessage(t, inbox); n.Message != MessageSaveFailed {
			t.Errorf("unexpected notification: %+v", n)
		}
	})
}

func TestCollection_Update(t *testing.T) {
	t.Run("replaces only the updated entry", func(t *testing.T) {
		c, inbox := newTestCollection(t, seededAPI())

		got, err := c.Update(context.Background(), "5", models.MovieFields{Rating: ptr(9.5)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := models.Movie{ID: "5", Title: "Heat", Director: "Michael Mann", Genre: "Crime", Year: ptr(1995), Rating: ptr(9.5)}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("returned movie mismatch (-want +got):\n%s", diff)
		}

		movies := c.Movies()
		if diff := cmp.Diff(want, movies[1]); diff != "" {
			t.Errorf("collection entry mismatch (-want +got):\n%s", diff)
		}
		if movies[0].Title != "Alien" || *movies[0].Rating != 8.5 {
			t.Errorf("other entries should be untouched, got %+v", movies[0])
		}
		if n := lastMessage(t, inbox); n.Message != MessageUpdated {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("invalid fields are rejected locally", func(t *testing.T) {
		api := seededAPI()
		c, _ := newTestCollection(t, api)

		if _, err := c.Update(context.Background(), "5", models.MovieFields{Rating: ptr(11.0)}); !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if calls := api.Calls(); len(calls) != 1 {
			t.Errorf("expected no update request, got %v", calls)
		}
	})

	t.Run("failure leaves collection unchanged", func(t *testing.T) {
		api := seededAPI()
		c, inbox := newTestCollection(t, api)
		before := c.Movies()

		api.updateErr = fmt.Errorf("%w: 500", shared.ErrAPIRequest)
		if _, err := c.Update(context.Background(), "5", models.MovieFields{Watched: ptr(true)}); err == nil {
			t.Fatal("expected error")
		}
		if diff := cmp.Diff(before, c.Movies()); diff != "" {
			t.Errorf("collection changed (-before +after):\n%s", diff)
		}
		if n := lastMessage(t, inbox); n.Message != MessageSaveFailed {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("id outside the local list leaves it unchanged", func(t *testing.T) {
		api := seededAPI()
		c, _ := newTestCollection(t, api)
		if _, err := c.List(context.Background(), models.Filter{Genre: "Horror"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		before := c.Movies()

		if _, err := c.Update(context.Background(), "5", models.MovieFields{Watched: ptr(true)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(before, c.Movies()); diff != "" {
			t.Errorf("collection changed (-before +after):\n%s", diff)
		}
	})
}

func TestCollection_Delete(t *testing.T) {
	t.Run("removes the entry", func(t *testing.T) {
		c, inbox := newTestCollection(t, seededAPI())

		if err := c.Delete(context.Background(), "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := c.Find("1"); ok {
			t.Error("expected movie 1 to be removed")
		}
		if _, ok := c.Find("5"); !ok {
			t.Error("expected movie 5 to remain")
		}
		if n := lastMessage(t, inbox); n.Message != MessageDeleted {
			t.Errorf("unexpected notification: %+v", n)
		}
	})

	t.Run("not found leaves collection unchanged", func(t *testing.T) {
		c, inbox := newTestCollection(t, seededAPI())
		before := c.Movies()

		if err := c.Delete(context.Background(), "99"); err == nil {
			t.Fatal("expected error")
		}
		if diff := cmp.Diff(before, c.Movies()); diff != "" {
			t.Errorf("collection changed (-before +after):\n%s", diff)
		}
		if n := lastMessage(t, inbox); n.Message != MessageDeleteFailed {
			t.Errorf("unexpected notification: %+v", n)
		}
	})
}

// blockingAPI holds Create until release is closed.
type blockingAPI struct {
	*fakeMovieAPI
	started chan struct{}
	release chan struct{}
}

func (b *blockingAPI) Create(ctx context.Context, d models.MovieDraft) (models.Movie, error) {
	close(b.started)
	<-b.release
	return b.fakeMovieAPI.Create(ctx, d)
}

func TestCollection_Busy(t *testing.T) {
	api := &blockingAPI{fakeMovieAPI: seededAPI(), started: make(chan struct{}), release: make(chan struct{})}
	c := NewCollection(CollectionOpts{API: api})

	done := make(chan error)
	go func() {
		_, err := c.Create(context.Background(), models.MovieDraft{Title: "Ronin"})
		done <- err
	}()

	<-api.started
	if !c.Busy(OpCreate) {
		t.Error("expected create to be busy while in flight")
	}
	if c.Busy(OpDelete) {
		t.Error("delete should not be busy")
	}

	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Busy(OpCreate) {
		t.Error("expected create to be idle after completion")
	}
}

func TestCollection_Reset(t *testing.T) {
	c, _ := newTestCollection(t, seededAPI())
	c.Reset()
	if len(c.Movies()) != 0 {
		t.Errorf("expected empty collection, got %d", len(c.Movies()))
	}
}
