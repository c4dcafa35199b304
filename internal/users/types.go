package users

// User is a registered account without credential material.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// Preferences holds per-user settings.
type Preferences struct {
	DefaultGenre string `json:"default_genre"`
}

// PlaylistSummary is the per-playlist row shown on a profile page.
type PlaylistSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
	TrackCount  int    `json:"track_count"`
	UpdatedAt   string `json:"updated_at"`
}

// MusicStats aggregates a user's library.
type MusicStats struct {
	PlaylistCount    int `json:"playlist_count"`
	TrackCount       int `json:"track_count"`
	PublicPlaylists  int `json:"public_playlists"`
	PrivatePlaylists int `json:"private_playlists"`
	DistinctArtists  int `json:"distinct_artists"`
}

// Profile is the aggregate returned by the profile endpoint.
type Profile struct {
	User      User              `json:"user"`
	Playlists []PlaylistSummary `json:"playlists"`
	Stats     MusicStats        `json:"stats"`
}

// LibraryProvider supplies playlist data for profile pages. Implemented by
// the playlist repository.
type LibraryProvider interface {
	// PlaylistSummaries lists the owner's playlists newest-updated first.
	// Private playlists are included only when requesterID equals ownerID.
	PlaylistSummaries(ownerID, requesterID int64) ([]PlaylistSummary, error)
	// MusicStats aggregates counts across all of the owner's playlists.
	MusicStats(ownerID int64) (MusicStats, error)
}
