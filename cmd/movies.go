package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/desertthunder/watchlist/internal/formatter"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/desertthunder/watchlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// MoviesList prints the movies matching the filter flags.
func (r *Runner) MoviesList(ctx context.Context, cmd *cli.Command) error {
	filter, err := filterFrom(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	movies, err := r.collection.List(ctx, filter)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(movies, cmd.Bool("pretty"))
	}

	if len(movies) == 0 {
		return r.writePlain("No movies found (genre: %s, status: %s)\n", orAll(filter.Genre), filter.WatchedLabel())
	}

	r.writePlainHeader(fmt.Sprintf("Watchlist (%d)", len(movies)))
	for _, m := range movies {
		r.writePlain("[%s] %s\n    %s\n", m.ID, formatter.Heading(m), formatter.Details(m))
	}
	return nil
}

// MoviesAdd creates a movie from flags.
func (r *Runner) MoviesAdd(ctx context.Context, cmd *cli.Command) error {
	draft, err := models.ParseDraft(models.DraftInput{
		Title:    cmd.String("title"),
		Director: cmd.String("director"),
		Genre:    cmd.String("genre"),
		Year:     cmd.String("year"),
		Rating:   cmd.String("rating"),
		Watched:  cmd.Bool("watched"),
	})
	if err != nil {
		return err
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	movie, err := r.collection.Create(ctx, draft)
	if err != nil {
		return err
	}

	r.logger.Debug("movie created", "id", movie.ID)
	return r.writePlain("[%s] %s\n", movie.ID, formatter.Heading(movie))
}

// MoviesEdit sends only the fields whose flags were given.
func (r *Runner) MoviesEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := movieIDArg(cmd)
	if err != nil {
		return err
	}

	fields, err := fieldsFrom(cmd)
	if err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	movie, err := r.collection.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	return r.writePlain("[%s] %s\n    %s\n", movie.ID, formatter.Heading(movie), formatter.Details(movie))
}

// MoviesDelete removes a movie. --yes stands in for the TUI's confirmation dialog.
func (r *Runner) MoviesDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := movieIDArg(cmd)
	if err != nil {
		return err
	}
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: deleting movie %s requires --yes", shared.ErrCanceled, id)
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	return r.collection.Delete(ctx, id)
}

// MoviesExport writes the filtered watchlist to a file.
func (r *Runner) MoviesExport(ctx context.Context, cmd *cli.Command) error {
	filter, err := filterFrom(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	progress, done := r.logProgress()
	result, err := r.collection.Export(ctx, filter, format, cmd.String("output"), progress)
	done()
	if err != nil {
		return err
	}

	r.logger.Info("export complete", "path", result.Path, "count", result.Count, "format", result.Format)
	return nil
}

// MoviesImport creates movies from a CSV file, one request at a time.
func (r *Runner) MoviesImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: CSV file path is required", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	rateLimit := cmd.Float("rate")
	if rateLimit <= 0 {
		rateLimit = r.config.API.RateLimit
	}

	progress, done := r.logProgress()
	result, err := r.collection.Import(ctx, f, tasks.ImportOpts{RateLimit: rateLimit, DryRun: cmd.Bool("dry-run")}, progress)
	done()
	if err != nil {
		return err
	}

	for _, rowErr := range result.Errors {
		r.writePlain("  row %d: %v\n", rowErr.Row, rowErr.Err)
	}
	if result.Stopped {
		return fmt.Errorf("%w: import stopped after %d of %d rows", shared.ErrNotAuthenticated, len(result.Created), result.Total)
	}
	return nil
}

// logProgress drains progress updates into the debug log until done is called.
func (r *Runner) logProgress() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	return progress, func() {
		close(progress)
		wg.Wait()
	}
}

func filterFrom(cmd *cli.Command) (models.Filter, error) {
	watched, err := models.ParseWatched(cmd.String("watched"))
	if err != nil {
		return models.Filter{}, err
	}
	return models.Filter{Genre: strings.TrimSpace(cmd.String("genre")), Watched: watched}, nil
}

func movieIDArg(cmd *cli.Command) (models.MovieID, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: movie id is required", shared.ErrMissingArgument)
	}
	return models.MovieID(id), nil
}

// fieldsFrom builds a partial update from the flags the user actually passed.
func fieldsFrom(cmd *cli.Command) (models.MovieFields, error) {
	var fields models.MovieFields

	str := func(name string) *string {
		if !cmd.IsSet(name) {
			return nil
		}
		v := strings.TrimSpace(cmd.String(name))
		return &v
	}
	fields.Title = str("title")
	fields.Director = str("director")
	fields.Genre = str("genre")

	if cmd.IsSet("year") {
		year, err := models.ParseYear(cmd.String("year"))
		if err != nil {
			return fields, err
		}
		fields.Year = year
	}
	if cmd.IsSet("rating") {
		rating, err := models.ParseRating(cmd.String("rating"))
		if err != nil {
			return fields, err
		}
		fields.Rating = rating
	}
	if cmd.IsSet("watched") {
		watched := cmd.Bool("watched")
		fields.Watched = &watched
	}
	return fields, nil
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
