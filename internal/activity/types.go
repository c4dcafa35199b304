package activity

// Event is one entry in a user's activity feed.
type Event struct {
	EventID    string         `json:"event_id"`
	UserID     int64          `json:"user_id"`
	PlaylistID *int64         `json:"playlist_id,omitempty"`
	Type       string         `json:"type"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  string         `json:"created_at"`
}
