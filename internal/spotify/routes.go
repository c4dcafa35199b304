package spotify

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
	"github.com/wongsakornss/music-discovery-go/internal/playlist"
)

// EventPlaylistExported is emitted to the activity log after a successful
// export.
const EventPlaylistExported = "PLAYLIST_EXPORTED"

type loginResponse struct {
	AuthURL string `json:"auth_url"`
}

type statusResponse struct {
	Linked bool `json:"linked"`
}

type callbackResponse struct {
	Linked bool `json:"linked"`
}

// RegisterRoutes mounts the Spotify account-linking and export endpoints.
func RegisterRoutes(router chi.Router, client *Client, exporter *Exporter, states *StateStore,
	playlists *playlist.Service, activity playlist.ActivityRecorder) {

	router.Method("GET", "/spotify/login", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		if !client.Configured() {
			return apperrors.NewAppError(apperrors.ErrorCodeSpotifyNotLinked,
				"Spotify integration is not configured", 503, nil)
		}
		state := states.Issue(requester.ID)
		return api.WriteResource(w, http.StatusOK, loginResponse{AuthURL: client.AuthURL(state)})
	}))

	// Provider redirect target; identified by state, not by bearer token.
	router.Method("GET", "/spotify/callback", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		query := r.URL.Query()
		if errParam := query.Get("error"); errParam != "" {
			return apperrors.NewRemoteServiceError("Spotify authorization denied: "+errParam, nil)
		}
		code := query.Get("code")
		state := query.Get("state")
		if code == "" || state == "" {
			return apperrors.NewValidationError("code and state are required", nil)
		}

		userID, ok := states.Consume(state)
		if !ok {
			return apperrors.NewUnauthorizedError("unknown or expired state")
		}
		if err := client.Exchange(r.Context(), userID, code); err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, callbackResponse{Linked: true})
	}))

	router.Method("GET", "/spotify/status", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		linked, err := client.Linked(requester.ID)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, statusResponse{Linked: linked})
	}))

	router.Method("POST", "/playlists/{playlistID}/export/spotify", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := strconv.ParseInt(chi.URLParam(r, "playlistID"), 10, 64)
		if err != nil || playlistID <= 0 {
			return apperrors.NewValidationError("playlistID must be a positive integer", nil)
		}

		source, err := playlists.Get(playlistID, requester.ID)
		if err != nil {
			return err
		}
		tracks, err := playlists.Tracks(playlistID, requester.ID, 0)
		if err != nil {
			return err
		}

		result, err := exporter.Export(r.Context(), requester.ID, source, tracks)
		if err != nil {
			return err
		}

		if activity != nil {
			_ = activity.Record(requester.ID, &playlistID, EventPlaylistExported,
				"exported playlist to Spotify",
				map[string]any{"spotify_playlist_id": result.SpotifyPlaylistID, "exported": result.Exported})
		}
		return api.WriteResource(w, http.StatusOK, result)
	}))
}
