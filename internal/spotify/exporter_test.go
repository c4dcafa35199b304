package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/playlist"
)

// fakeSpotify implements the handful of Web API endpoints the exporter
// touches. Track titles containing "missing" never resolve in search.
type fakeSpotify struct {
	server      *httptest.Server
	createReqs  []createPlaylistRequest
	addBatches  [][]string
	searchCalls atomic.Int32
	rateLimited atomic.Int32 // remaining 429s to serve on /me
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	fake := &fakeSpotify{}
	mux := http.NewServeMux()

	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if fake.rateLimited.Load() > 0 {
			fake.rateLimited.Add(-1)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "spotify-user"})
	})

	mux.HandleFunc("/users/spotify-user/playlists", func(w http.ResponseWriter, r *http.Request) {
		var req createPlaylistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fake.createReqs = append(fake.createReqs, req)
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "sp-playlist-1",
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/sp-playlist-1"},
		})
	})

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fake.searchCalls.Add(1)
		query := r.URL.Query().Get("q")
		items := []map[string]string{}
		if !strings.Contains(query, "missing") {
			items = append(items, map[string]string{"uri": "spotify:track:" + sanitize(query)})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"tracks": map[string]any{"items": items},
		})
	})

	mux.HandleFunc("/playlists/sp-playlist-1/tracks", func(w http.ResponseWriter, r *http.Request) {
		var req addTracksRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fake.addBatches = append(fake.addBatches, req.URIs)
		json.NewEncoder(w).Encode(map[string]string{"snapshot_id": "snap"})
	})

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' {
			return '-'
		}
		return r
	}, s)
}

func setupExporter(t *testing.T, fake *fakeSpotify) (*Exporter, int64) {
	t.Helper()
	repo, userID := setupTokenRepo(t)
	require.NoError(t, repo.Upsert(userID, &oauth2.Token{
		AccessToken:  "valid-access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	logger := log.New(os.Stderr, "[test] ", log.LstdFlags)
	client := NewClient(ClientConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/callback",
		APIBaseURL:   fake.server.URL,
		Timeout:      5 * time.Second,
	}, repo, logger)
	return NewExporter(client, logger), userID
}

func testTracks(titles ...string) []playlist.Track {
	tracks := make([]playlist.Track, len(titles))
	for i, title := range titles {
		tracks[i] = playlist.Track{ID: int64(i + 1), Title: title, Artist: "Artist", Position: i}
	}
	return tracks
}

func TestExportHappyPath(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)

	source := &playlist.Playlist{ID: 1, Name: "Mix", Description: "desc"}
	result, err := exporter.Export(context.Background(), userID, source, testTracks("One", "Two", "Three"))
	require.NoError(t, err)
	require.Equal(t, "sp-playlist-1", result.SpotifyPlaylistID)
	require.Equal(t, 3, result.Exported)
	require.Empty(t, result.Skipped)
	require.Len(t, fake.addBatches, 1)
	require.Len(t, fake.addBatches[0], 3)
}

func TestExportMirrorsPlaylistVisibility(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)

	public := &playlist.Playlist{ID: 1, Name: "Shared Mix", Description: "open", IsPublic: true}
	_, err := exporter.Export(context.Background(), userID, public, testTracks("One"))
	require.NoError(t, err)

	private := &playlist.Playlist{ID: 2, Name: "Secret Mix", IsPublic: false}
	_, err = exporter.Export(context.Background(), userID, private, testTracks("Two"))
	require.NoError(t, err)

	require.Len(t, fake.createReqs, 2)
	require.True(t, fake.createReqs[0].Public)
	require.Equal(t, "Shared Mix", fake.createReqs[0].Name)
	require.Equal(t, "open", fake.createReqs[0].Description)
	require.False(t, fake.createReqs[1].Public)
}

func TestExportSkipsUnresolvedTracks(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)

	source := &playlist.Playlist{ID: 1, Name: "Mix"}
	result, err := exporter.Export(context.Background(), userID, source,
		testTracks("One", "missing song", "Three"))
	require.NoError(t, err)
	require.Equal(t, 2, result.Exported)
	require.Equal(t, []string{"missing song - Artist"}, result.Skipped)
}

func TestExportFailsWhenNothingResolves(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)

	source := &playlist.Playlist{ID: 1, Name: "Mix"}
	_, err := exporter.Export(context.Background(), userID, source,
		testTracks("missing one", "missing two"))
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrorCodeExportFailed, appErr.Code)
	// The remote playlist was created before the failure and stays behind.
	require.Equal(t, "sp-playlist-1", appErr.Details["spotify_playlist_id"])
	require.Empty(t, fake.addBatches)
}

func TestExportBatchesLargePlaylists(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)

	titles := make([]string, 150)
	for i := range titles {
		titles[i] = fmt.Sprintf("Song %d", i)
	}

	source := &playlist.Playlist{ID: 1, Name: "Big"}
	result, err := exporter.Export(context.Background(), userID, source, testTracks(titles...))
	require.NoError(t, err)
	require.Equal(t, 150, result.Exported)
	require.Len(t, fake.addBatches, 2)
	require.Len(t, fake.addBatches[0], 100)
	require.Len(t, fake.addBatches[1], 50)
}

func TestExportRetriesOnceOnRateLimit(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)
	fake.rateLimited.Store(1)

	source := &playlist.Playlist{ID: 1, Name: "Mix"}
	result, err := exporter.Export(context.Background(), userID, source, testTracks("One"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Exported)
}

func TestExportGivesUpOnRepeatedRateLimit(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)
	fake.rateLimited.Store(2)

	source := &playlist.Playlist{ID: 1, Name: "Mix"}
	_, err := exporter.Export(context.Background(), userID, source, testTracks("One"))
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrorCodeRateLimited, appErr.Code)
}

func TestExportRequiresLinkedAccount(t *testing.T) {
	fake := newFakeSpotify(t)
	repo, userID := setupTokenRepo(t)

	logger := log.New(os.Stderr, "[test] ", log.LstdFlags)
	client := NewClient(ClientConfig{
		ClientID: "id", ClientSecret: "secret",
		APIBaseURL: fake.server.URL,
	}, repo, logger)
	exporter := NewExporter(client, logger)

	source := &playlist.Playlist{ID: 1, Name: "Mix"}
	_, err := exporter.Export(context.Background(), userID, source, testTracks("One"))
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrorCodeSpotifyNotLinked, appErr.Code)
}

func TestExportRejectsEmptyPlaylist(t *testing.T) {
	fake := newFakeSpotify(t)
	exporter, userID := setupExporter(t, fake)

	source := &playlist.Playlist{ID: 1, Name: "Empty"}
	_, err := exporter.Export(context.Background(), userID, source, nil)
	require.Error(t, err)
	require.Zero(t, fake.searchCalls.Load())
}
