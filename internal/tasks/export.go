package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/watchlist/internal/formatter"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/session"
)

// ExportResult describes a written export.
type ExportResult struct {
	Path   string
	Count  int
	Format formatter.Format
}

// Export fetches the movies matching filter and writes them to path in the given format.
//
// The fetch goes through [Collection.List], so the local list reflects what was exported.
func (c *Collection) Export(ctx context.Context, filter models.Filter, format formatter.Format, path string, progress chan<- ProgressUpdate) (*ExportResult, error) {
	sendProgress(progress, fetchingMoviesUpdate(filter))

	movies, err := c.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	written, err := formatter.WriteExport(movies, format, filter, path)
	if err != nil {
		c.fail(err, MessageExportFailed, false)
		return nil, err
	}

	sendProgress(progress, exportWrittenUpdate(len(movies), written))
	c.notifier.Notify(session.Notification{
		Level:   session.LevelSuccess,
		Message: fmt.Sprintf("Exported %d movies to %s", len(movies), written),
	})
	return &ExportResult{Path: written, Count: len(movies), Format: format}, nil
}
