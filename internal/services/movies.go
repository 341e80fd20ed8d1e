package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// MovieClient maps the /movies resource onto typed calls.
type MovieClient struct {
	api Requester
}

// NewMovieClient creates a [MovieClient] on top of a [Requester], usually a [Gateway].
func NewMovieClient(api Requester) *MovieClient {
	return &MovieClient{api: api}
}

// List fetches the movies matching filter. It never returns a nil slice on success.
func (c *MovieClient) List(ctx context.Context, filter models.Filter) ([]models.Movie, error) {
	resp, err := c.api.Request(ctx, http.MethodGet, "/movies", nil, filter.Query())
	if err != nil {
		return nil, err
	}

	var movies []models.Movie
	if err := resp.Decode(&movies); err != nil {
		return nil, err
	}
	if movies == nil {
		movies = []models.Movie{}
	}
	return movies, nil
}

// Create posts a draft and returns the movie with its server-assigned id.
func (c *MovieClient) Create(ctx context.Context, draft models.MovieDraft) (models.Movie, error) {
	resp, err := c.api.Request(ctx, http.MethodPost, "/movies", draft, nil)
	if err != nil {
		return models.Movie{}, err
	}
	return decodeMovie(resp)
}

// Update sends a partial update and returns the merged movie.
func (c *MovieClient) Update(ctx context.Context, id models.MovieID, fields models.MovieFields) (models.Movie, error) {
	if id == "" {
		return models.Movie{}, fmt.Errorf("%w: movie id is required", shared.ErrMissingArgument)
	}

	resp, err := c.api.Request(ctx, http.MethodPatch, moviePath(id), fields, nil)
	if err != nil {
		return models.Movie{}, err
	}
	return decodeMovie(resp)
}

// Delete removes a movie.
func (c *MovieClient) Delete(ctx context.Context, id models.MovieID) error {
	if id == "" {
		return fmt.Errorf("%w: movie id is required", shared.ErrMissingArgument)
	}

	_, err := c.api.Request(ctx, http.MethodDelete, moviePath(id), nil, nil)
	return err
}

func moviePath(id models.MovieID) string {
	return "/movies/" + url.PathEscape(id.String())
}

func decodeMovie(resp *APIResponse) (models.Movie, error) {
	var movie models.Movie
	if err := resp.Decode(&movie); err != nil {
		return models.Movie{}, err
	}
	if movie.Pending() {
		return models.Movie{}, fmt.Errorf("%w: response movie has no id", shared.ErrAPIRequest)
	}
	return movie, nil
}
