package lastfm

// Track is a normalized Last.fm track result.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url,omitempty"`
	MBID   string `json:"mbid,omitempty"`
}

// Artist is a normalized Last.fm artist result. Match is the similarity
// score in [0, 1] and is only set by similar-artist lookups.
type Artist struct {
	Name  string  `json:"name"`
	URL   string  `json:"url,omitempty"`
	MBID  string  `json:"mbid,omitempty"`
	Match float64 `json:"match,omitempty"`
	Image string  `json:"image,omitempty"`
}
