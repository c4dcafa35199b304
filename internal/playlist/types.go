package playlist

// Playlist is a named, ordered collection of tracks owned by a user.
type Playlist struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	IsPublic    bool    `json:"is_public"`
	ShareToken  *string `json:"share_token,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	TrackCount  int     `json:"track_count"`
}

// Track is a saved song inside a playlist. Position is zero-based and
// assigned on insert; gaps may appear after deletions.
type Track struct {
	ID         int64  `json:"id"`
	PlaylistID int64  `json:"playlist_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	URL        string `json:"url,omitempty"`
	MBID       string `json:"mbid,omitempty"`
	Position   int    `json:"position"`
	AddedAt    string `json:"added_at"`
}

// MoveDirection selects which neighbor a track swaps with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// NewTrack carries the fields of a track to be added.
type NewTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
	MBID   string `json:"mbid"`
}
