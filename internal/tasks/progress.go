package tasks

import (
	"fmt"

	"github.com/desertthunder/watchlist/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchMovies Phase = iota
	ImportMovies
	ExportMovies
)

func (p Phase) String() string {
	switch p {
	case FetchMovies:
		return "fetch_movies"
	case ImportMovies:
		return "import_movies"
	case ExportMovies:
		return "export_movies"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingMoviesUpdate(filter models.Filter) ProgressUpdate {
	msg := "Fetching movies..."
	if filter.Genre != "" || filter.Watched != nil {
		msg = fmt.Sprintf("Fetching movies (genre: %q, status: %s)...", filter.Genre, filter.WatchedLabel())
	}
	return ProgressUpdate{Phase: FetchMovies, Step: 1, Total: 1, Message: msg}
}

func importingRowUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportMovies,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Importing: %s...", step, total, title),
	}
}

func importedRowUpdate(step, total int, movie models.Movie) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportMovies,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (ID: %s)", step, total, movie.Title, movie.ID),
		Data:    movie,
	}
}

func importFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportMovies,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}

func exportWrittenUpdate(count int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportMovies,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote %d movies to %s", count, path),
	}
}
