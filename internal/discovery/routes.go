package discovery

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
	"github.com/wongsakornss/music-discovery-go/internal/lastfm"
)

// MetadataClient is the Last.fm surface discovery needs.
type MetadataClient interface {
	TopTracksByTag(ctx context.Context, tag string, limit int) ([]lastfm.Track, error)
	TopTracksByArtist(ctx context.Context, artist string, limit int) ([]lastfm.Track, error)
	SimilarArtists(ctx context.Context, artist string, limit int) ([]lastfm.Artist, error)
}

// GenreProvider supplies a user's fallback genre.
type GenreProvider interface {
	DefaultGenre(userID int64) (string, error)
}

type moodResponse struct {
	Mood   string         `json:"mood"`
	Tag    string         `json:"tag"`
	Tracks []lastfm.Track `json:"tracks"`
}

type searchResponse struct {
	Query  string         `json:"query"`
	Tag    string         `json:"tag,omitempty"`
	Tracks []lastfm.Track `json:"tracks"`
}

// RegisterRoutes mounts the discovery endpoints.
func RegisterRoutes(router chi.Router, client MetadataClient, genres GenreProvider) {
	router.Method("GET", "/discover/tags", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteList(w, r.URL.Path, TagCards(), false)
	}))

	router.Method("GET", "/discover/tags/{tag}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		tag := strings.TrimSpace(chi.URLParam(r, "tag"))
		if tag == "" {
			return apperrors.NewValidationError("tag is required", nil)
		}
		tracks, err := client.TopTracksByTag(r.Context(), tag, queryLimit(r))
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, tracks, false)
	}))

	// Artist search; with no query it falls back to the caller's default
	// genre so the page is never empty.
	router.Method("GET", "/discover/search", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}

		artist := strings.TrimSpace(r.URL.Query().Get("artist"))
		limit := queryLimit(r)

		if artist != "" {
			tracks, err := client.TopTracksByArtist(r.Context(), artist, limit)
			if err != nil {
				return err
			}
			return api.WriteResource(w, http.StatusOK, searchResponse{Query: artist, Tracks: tracks})
		}

		genre, err := genres.DefaultGenre(requester.ID)
		if err != nil {
			return err
		}
		tracks, err := client.TopTracksByTag(r.Context(), genre, limit)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, searchResponse{Query: "", Tag: genre, Tracks: tracks})
	}))

	router.Method("GET", "/discover/mood", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		mood := r.URL.Query().Get("q")
		tag := MoodToTag(mood)
		tracks, err := client.TopTracksByTag(r.Context(), tag, queryLimit(r))
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, moodResponse{Mood: mood, Tag: tag, Tracks: tracks})
	}))

	router.Method("GET", "/discover/similar", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		artist := strings.TrimSpace(r.URL.Query().Get("artist"))
		if artist == "" {
			return apperrors.NewValidationError("artist is required", nil)
		}

		minMatch := 0.0
		if raw := r.URL.Query().Get("min_match"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				return apperrors.NewValidationError("min_match must be a number in [0, 1]", nil)
			}
			minMatch = parsed
		}

		artists, err := client.SimilarArtists(r.Context(), artist, queryLimit(r))
		if err != nil {
			return err
		}

		filtered := make([]lastfm.Artist, 0, len(artists))
		for _, candidate := range artists {
			if candidate.Match >= minMatch {
				filtered = append(filtered, candidate)
			}
		}
		return api.WriteList(w, r.URL.Path, filtered, false)
	}))
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
