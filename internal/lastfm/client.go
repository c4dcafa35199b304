package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Image sizes in preference order.
var imageSizePreference = []string{"extralarge", "mega", "large", "medium"}

// ClientConfig configures the Last.fm API client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string // defaults to the public Last.fm endpoint
	Timeout    time.Duration
	RatePerSec float64 // outbound request budget
	CacheSize  int     // similar-artist LRU capacity
}

// Client calls the Last.fm web API. Similar-artist lookups are cached in a
// bounded LRU; everything else goes to the network on each call. Safe for
// concurrent use.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	similarCache *lruCache
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 512
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(ratePerSec), 1),
		similarCache: newLRUCache(cacheSize),
	}
}

type apiArtistRef struct {
	Name string `json:"name"`
}

type apiTrack struct {
	Name   string       `json:"name"`
	URL    string       `json:"url"`
	MBID   string       `json:"mbid"`
	Artist apiArtistRef `json:"artist"`
}

type apiImage struct {
	Text string `json:"#text"`
	Size string `json:"size"`
}

type apiSimilarArtist struct {
	Name  string     `json:"name"`
	URL   string     `json:"url"`
	MBID  string     `json:"mbid"`
	Match string     `json:"match"`
	Image []apiImage `json:"image"`
}

type tagTopTracksResponse struct {
	Tracks struct {
		Track []apiTrack `json:"track"`
	} `json:"tracks"`
}

type artistTopTracksResponse struct {
	TopTracks struct {
		Track []apiTrack `json:"track"`
	} `json:"toptracks"`
}

type similarArtistsResponse struct {
	SimilarArtists struct {
		Artist []apiSimilarArtist `json:"artist"`
	} `json:"similarartists"`
}

// TopTracksByTag returns the most popular tracks for a genre tag.
func (c *Client) TopTracksByTag(ctx context.Context, tag string, limit int) ([]Track, error) {
	params := url.Values{}
	params.Set("tag", tag)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response tagTopTracksResponse
	if err := c.call(ctx, "tag.gettoptracks", params, &response); err != nil {
		return nil, err
	}
	return normalizeTracks(response.Tracks.Track), nil
}

// TopTracksByArtist returns an artist's most popular tracks.
func (c *Client) TopTracksByArtist(ctx context.Context, artist string, limit int) ([]Track, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("autocorrect", "1")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response artistTopTracksResponse
	if err := c.call(ctx, "artist.gettoptracks", params, &response); err != nil {
		return nil, err
	}
	tracks := normalizeTracks(response.TopTracks.Track)
	// artist.gettoptracks omits the artist on some rows; backfill the query.
	for i := range tracks {
		if tracks[i].Artist == "" {
			tracks[i].Artist = artist
		}
	}
	return tracks, nil
}

// SimilarArtists returns artists similar to the given one, sorted by match
// score. Results are served from the LRU cache on repeat lookups.
func (c *Client) SimilarArtists(ctx context.Context, artist string, limit int) ([]Artist, error) {
	limit = clampLimit(limit)
	cacheKey := strings.ToLower(strings.TrimSpace(artist)) + "|" + strconv.Itoa(limit)
	if cached, ok := c.similarCache.Get(cacheKey); ok {
		return cached.([]Artist), nil
	}

	params := url.Values{}
	params.Set("artist", artist)
	params.Set("autocorrect", "1")
	params.Set("limit", strconv.Itoa(limit))

	var response similarArtistsResponse
	if err := c.call(ctx, "artist.getsimilar", params, &response); err != nil {
		return nil, err
	}

	artists := make([]Artist, 0, len(response.SimilarArtists.Artist))
	for _, raw := range response.SimilarArtists.Artist {
		if raw.Name == "" {
			continue
		}
		match, _ := strconv.ParseFloat(raw.Match, 64)
		artists = append(artists, Artist{
			Name:  raw.Name,
			URL:   raw.URL,
			MBID:  raw.MBID,
			Match: match,
			Image: pickImage(raw.Image),
		})
	}

	c.similarCache.Put(cacheKey, artists)
	return artists, nil
}

// call performs one rate-limited API request and decodes the response.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if c.apiKey == "" {
		return apperrors.NewRemoteServiceError("Last.fm API key not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return apperrors.NewRemoteServiceError("Last.fm request failed", map[string]any{"method": method})
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return apperrors.NewRemoteServiceError("Last.fm response unreadable", map[string]any{"method": method})
	}
	if response.StatusCode != http.StatusOK {
		return apperrors.NewRemoteServiceError("Last.fm returned an error",
			map[string]any{"method": method, "status": response.StatusCode})
	}

	// Last.fm reports API errors as 200s with a top-level error field.
	var probe struct {
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != 0 {
		return apperrors.NewRemoteServiceError("Last.fm error: "+probe.Message,
			map[string]any{"method": method, "lastfm_code": probe.Error})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewRemoteServiceError("Last.fm response malformed", map[string]any{"method": method})
	}
	return nil
}

func normalizeTracks(raw []apiTrack) []Track {
	tracks := make([]Track, 0, len(raw))
	for _, track := range raw {
		if track.Name == "" {
			continue
		}
		tracks = append(tracks, Track{
			Title:  track.Name,
			Artist: track.Artist.Name,
			URL:    track.URL,
			MBID:   track.MBID,
		})
	}
	return tracks
}

func pickImage(images []apiImage) string {
	for _, size := range imageSizePreference {
		for _, image := range images {
			if image.Size == size && image.Text != "" {
				return image.Text
			}
		}
	}
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].Text != "" {
			return images[i].Text
		}
	}
	return ""
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
