package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// SessionEventRepository persists [models.SessionEvent] records.
type SessionEventRepository struct {
	db *sql.DB
}

// NewSessionEventRepository creates a new [SessionEventRepository] with the given database connection
func NewSessionEventRepository(db *sql.DB) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

// Create inserts a new event with a generated ID
func (r *SessionEventRepository) Create(event *models.SessionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	event.SetID(shared.GenerateID())
	if event.CreatedAt().IsZero() {
		event.SetCreatedAt(time.Now().UTC())
	}

	query := `
		INSERT INTO session_events (id, from_state, to_state, reason, created_at) VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, event.ID(), event.From, event.To, event.Reason, event.CreatedAt()); err != nil {
		return fmt.Errorf("failed to insert session event: %w", err)
	}
	return nil
}

// List returns the most recent events first. A limit of zero or less returns all events.
func (r *SessionEventRepository) List(limit int) ([]*models.SessionEvent, error) {
	query := `
		SELECT id, from_state, to_state, reason, created_at
		FROM session_events
		ORDER BY created_at DESC, rowid DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var events []*models.SessionEvent
	for rows.Next() {
		var (
			id        string
			from      string
			to        string
			reason    string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &from, &to, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}

		event := models.NewSessionEvent(from, to, reason)
		event.SetID(id)
		event.SetCreatedAt(createdAt)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

// Prune deletes all but the newest keep events and returns how many were removed.
func (r *SessionEventRepository) Prune(keep int) (int64, error) {
	query := `
		DELETE FROM session_events
		WHERE id NOT IN (SELECT id FROM session_events ORDER BY created_at DESC, rowid DESC LIMIT ?)
	`
	result, err := r.db.Exec(query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune session events: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
