package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/desertthunder/watchlist/internal/formatter"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/session"
	"golang.org/x/time/rate"
)

// DefaultImportRate is the default number of create requests per second during an import.
const DefaultImportRate = 5.0

// ImportOpts configures [Collection.Import].
type ImportOpts struct {
	RateLimit float64 // requests per second; 0 or less uses [DefaultImportRate]
	DryRun    bool    // parse and validate rows without creating anything
}

// RowError is one row that could not be imported. Row is 1-based and excludes the header.
type RowError struct {
	Row   int
	Title string
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Title, e.Err)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Total   int
	Created []models.Movie
	Errors  []RowError
	Stopped bool // the session ended mid-import and remaining rows were skipped
}

// Failed is the number of rows that were not created.
func (r ImportResult) Failed() int { return r.Total - len(r.Created) }

// Import creates one movie per CSV row, one request at a time under a rate limit.
//
// Invalid rows are recorded and skipped. If the session ends, the import stops and the rows so far are kept.
func (c *Collection) Import(ctx context.Context, r io.Reader, opts ImportOpts, progress chan<- ProgressUpdate) (*ImportResult, error) {
	rows, err := formatter.ParseCSV(r)
	if err != nil {
		c.fail(err, MessageImportFailed, false)
		return nil, err
	}

	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultImportRate
	}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	result := &ImportResult{Total: len(rows)}
	for i, row := range rows {
		step := i + 1
		sendProgress(progress, importingRowUpdate(step, len(rows), row.Title))

		draft, err := models.ParseDraft(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: step, Title: row.Title, Err: err})
			sendProgress(progress, importFailedUpdate(step, len(rows), row.Title, err))
			continue
		}
		if opts.DryRun {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("rate limiter error: %w", err)
		}

		movie, err := c.create(ctx, draft, false)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: step, Title: draft.Title, Err: err})
			sendProgress(progress, importFailedUpdate(step, len(rows), draft.Title, err))
			if IsSessionEnded(err) {
				result.Stopped = true
				break
			}
			continue
		}

		result.Created = append(result.Created, movie)
		sendProgress(progress, importedRowUpdate(step, len(rows), movie))
	}

	c.logger.Info("import finished", "total", result.Total, "created", len(result.Created), "failed", len(result.Errors))
	c.notifyImport(result, opts.DryRun)
	return result, nil
}

func (c *Collection) notifyImport(result *ImportResult, dryRun bool) {
	switch {
	case result.Stopped:
		// The session already told the user why.
	case dryRun:
		c.notifier.Notify(session.Notification{
			Level:   session.LevelInfo,
			Message: fmt.Sprintf("%d of %d rows are valid", result.Total-len(result.Errors), result.Total),
		})
	case len(result.Errors) > 0:
		c.notifier.Notify(session.Notification{
			Level:   session.LevelWarn,
			Message: fmt.Sprintf("Imported %d of %d movies", len(result.Created), result.Total),
		})
	default:
		c.notifier.Notify(session.Notification{
			Level:   session.LevelSuccess,
			Message: fmt.Sprintf("Imported %d movies", len(result.Created)),
		})
	}
}
