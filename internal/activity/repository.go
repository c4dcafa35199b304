package activity

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/wongsakornss/music-discovery-go/internal/db"
)

const defaultFeedLimit = 50

// Repository persists activity events.
type Repository struct {
	db *db.DBPair
}

func NewRepository(dbPair *db.DBPair) *Repository {
	return &Repository{db: dbPair}
}

// Insert stores one event. Payload is serialized as JSON; a nil payload is
// stored as NULL.
func (r *Repository) Insert(event Event) error {
	var payload any
	if event.Payload != nil {
		encoded, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payload = string(encoded)
	}

	_, err := r.db.Writer().Exec(
		`INSERT INTO activity_events (event_id, user_id, playlist_id, type, message, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.UserID, event.PlaylistID, event.Type, event.Message, payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListByUser returns the user's newest events first.
func (r *Repository) ListByUser(userID int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	rows, err := r.db.Reader().Query(
		`SELECT event_id, user_id, playlist_id, type, message, payload, created_at
		 FROM activity_events WHERE user_id = ?
		 ORDER BY created_at DESC, event_id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var event Event
		var playlistID sql.NullInt64
		var payload sql.NullString
		err := rows.Scan(&event.EventID, &event.UserID, &playlistID, &event.Type,
			&event.Message, &payload, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if playlistID.Valid {
			event.PlaylistID = &playlistID.Int64
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &event.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteOlderThan removes events created before the cutoff (RFC3339) and
// returns how many were deleted.
func (r *Repository) DeleteOlderThan(cutoff string) (int64, error) {
	result, err := r.db.Writer().Exec(
		`DELETE FROM activity_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}
