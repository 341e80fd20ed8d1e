// package formatter renders movie collections as CSV, Markdown or plain text and reads CSV imports
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// Format is an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the format names and their common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (use csv, markdown, text or json)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for the format, with the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

var csvHeaders = []string{"ID", "Title", "Director", "Genre", "Year", "Rating", "Watched"}

// FormatYear renders an optional year, or N/A.
func FormatYear(y *int) string {
	if y == nil {
		return "N/A"
	}
	return strconv.Itoa(*y)
}

// FormatRating renders an optional rating as "x / 10".
func FormatRating(r *float64) string {
	if r == nil {
		return "N/A / 10"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64) + " / 10"
}

// WatchedStatus renders the watched flag for people.
func WatchedStatus(watched bool) string {
	if watched {
		return "Watched"
	}
	return "Not watched"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// Heading renders the "Title (Year)" line shown for each movie.
func Heading(m models.Movie) string {
	return fmt.Sprintf("%s (%s)", m.Title, FormatYear(m.Year))
}

// Details renders the secondary line shown under [Heading].
func Details(m models.Movie) string {
	return fmt.Sprintf("Director: %s · Genre: %s · Rating: %s · %s",
		orNA(m.Director), orNA(m.Genre), FormatRating(m.Rating), WatchedStatus(m.Watched))
}

// ExportToCSV converts movies to CSV with columns: ID, Title, Director, Genre, Year, Rating, Watched
func ExportToCSV(movies []models.Movie) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range movies {
		year, rating := "", ""
		if m.Year != nil {
			year = strconv.Itoa(*m.Year)
		}
		if m.Rating != nil {
			rating = strconv.FormatFloat(*m.Rating, 'f', -1, 64)
		}

		record := []string{m.ID.String(), m.Title, m.Director, m.Genre, year, rating, strconv.FormatBool(m.Watched)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts movies to a Markdown document with a summary and a table.
func ExportToMarkdown(movies []models.Movie, filter models.Filter) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Watchlist\n\n")
	if g := strings.TrimSpace(filter.Genre); g != "" {
		buf.WriteString(fmt.Sprintf("**Genre**: %s\n", g))
	}
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", filter.WatchedLabel()))

	watched := 0
	for _, m := range movies {
		if m.Watched {
			watched++
		}
	}
	buf.WriteString(fmt.Sprintf("**Movies**: %d (%d watched)\n\n", len(movies), watched))

	buf.WriteString("| Title | Year | Director | Genre | Rating | Status |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, m := range movies {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			escapeCell(m.Title), FormatYear(m.Year), escapeCell(orNA(m.Director)),
			escapeCell(orNA(m.Genre)), FormatRating(m.Rating), WatchedStatus(m.Watched)))
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportToText converts movies to the plain text listing used by the CLI.
func ExportToText(movies []models.Movie) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Movies: %d\n\n", len(movies)))
	for i, m := range movies {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s\n   %s\n", i+1, m.ID, Heading(m), Details(m)))
	}

	return buf.Bytes(), nil
}

// Export renders movies in the given format.
func Export(movies []models.Movie, format Format, filter models.Filter) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(movies)
	case FormatMarkdown:
		return ExportToMarkdown(movies, filter)
	case FormatJSON:
		return shared.MarshalJSON(movies, true)
	default:
		return ExportToText(movies)
	}
}

// WriteExport renders movies and writes them to path, creating parent directories.
//
// An empty path defaults to watchlist with the format's extension.
func WriteExport(movies []models.Movie, format Format, filter models.Filter, path string) (string, error) {
	if path == "" {
		path = "watchlist" + format.Extension()
	}

	data, err := Export(movies, format, filter)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

// ParseCSV reads movie rows for import.
//
// The first row is a header; columns are matched by name, case-insensitively, and unknown columns are
// ignored. A title column is required. Any ID column is ignored since the server assigns ids.
func ParseCSV(r io.Reader) ([]models.DraftInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV file is empty", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", shared.ErrInvalidInput, err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("%w: CSV header has no title column", shared.ErrInvalidInput)
	}

	get := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []models.DraftInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", shared.ErrInvalidInput, line, err)
		}

		rows = append(rows, models.DraftInput{
			Title:    get(record, "title"),
			Director: get(record, "director"),
			Genre:    get(record, "genre"),
			Year:     get(record, "year"),
			Rating:   get(record, "rating"),
			Watched:  parseWatchedCell(get(record, "watched")),
		})
	}
	return rows, nil
}

func parseWatchedCell(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "watched", "x":
		return true
	default:
		return false
	}
}
