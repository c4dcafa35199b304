package playlist

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
)

const maxNameLength = 120

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

type moveTrackRequest struct {
	Direction string `json:"direction"`
}

type shareResponse struct {
	ShareToken string `json:"share_token"`
	URL        string `json:"url"`
}

type clearResponse struct {
	Removed int `json:"removed"`
}

type publicPlaylistResponse struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// RegisterRoutes mounts the playlist CRUD, track and sharing endpoints.
// appBaseURL is used to render absolute share links.
func RegisterRoutes(router chi.Router, service *Service, appBaseURL string) {
	router.Method("POST", "/playlists", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}

		var req createPlaylistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return apperrors.NewValidationError("name is required", nil)
		}
		if len(req.Name) > maxNameLength {
			return apperrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", maxNameLength), nil)
		}

		playlist, err := service.Create(requester.ID, req.Name, strings.TrimSpace(req.Description), req.IsPublic)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusCreated, playlist)
	}))

	router.Method("GET", "/playlists", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlists, err := service.List(requester.ID)
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, playlists, false)
	}))

	router.Method("GET", "/playlists/{playlistID}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		playlist, err := service.Get(playlistID, requester.ID)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, playlist)
	}))

	router.Method("PATCH", "/playlists/{playlistID}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}

		var req updatePlaylistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}
		if req.Name != nil {
			trimmed := strings.TrimSpace(*req.Name)
			if trimmed == "" {
				return apperrors.NewValidationError("name must not be empty", nil)
			}
			if len(trimmed) > maxNameLength {
				return apperrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", maxNameLength), nil)
			}
			req.Name = &trimmed
		}

		playlist, err := service.UpdateMeta(playlistID, requester.ID, req.Name, req.Description, req.IsPublic)
		if err != nil {
			return err
		}
		if playlist == nil {
			return notFoundPlaylist(playlistID)
		}
		return api.WriteResource(w, http.StatusOK, playlist)
	}))

	router.Method("DELETE", "/playlists/{playlistID}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		if err := service.Delete(playlistID, requester.ID); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}))

	router.Method("POST", "/playlists/{playlistID}/share", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		token, err := service.Share(playlistID, requester.ID)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, shareResponse{
			ShareToken: token,
			URL:        strings.TrimRight(appBaseURL, "/") + "/v1/public/playlists/" + token,
		})
	}))

	router.Method("GET", "/playlists/{playlistID}/tracks", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				return apperrors.NewValidationError("limit must be a non-negative integer", nil)
			}
		}

		tracks, err := service.Tracks(playlistID, requester.ID, limit)
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, tracks, false)
	}))

	router.Method("POST", "/playlists/{playlistID}/tracks", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}

		var req NewTrack
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}
		req.Title = strings.TrimSpace(req.Title)
		req.Artist = strings.TrimSpace(req.Artist)
		if req.Title == "" || req.Artist == "" {
			return apperrors.NewValidationError("title and artist are required", nil)
		}

		track, err := service.AddTrack(playlistID, requester.ID, req)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusCreated, track)
	}))

	router.Method("DELETE", "/playlists/{playlistID}/tracks/{trackID}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		trackID, err := urlParamID(r, "trackID")
		if err != nil {
			return err
		}
		if err := service.RemoveTrack(playlistID, trackID, requester.ID); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}))

	router.Method("POST", "/playlists/{playlistID}/tracks/{trackID}/move", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		trackID, err := urlParamID(r, "trackID")
		if err != nil {
			return err
		}

		var req moveTrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}

		if err := service.MoveTrack(playlistID, trackID, requester.ID, MoveDirection(req.Direction)); err != nil {
			return err
		}
		tracks, err := service.Tracks(playlistID, requester.ID, 0)
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, tracks, false)
	}))

	router.Method("POST", "/playlists/{playlistID}/clear", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		removed, err := service.Clear(playlistID, requester.ID)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, clearResponse{Removed: removed})
	}))

	router.Method("GET", "/playlists/{playlistID}/export.csv", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}
		playlistID, err := urlParamID(r, "playlistID")
		if err != nil {
			return err
		}
		data, err := service.ExportCSV(playlistID, requester.ID)
		if err != nil {
			return err
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="playlist-%d.csv"`, playlistID))
		w.WriteHeader(http.StatusOK)
		_, err = w.Write(data)
		return err
	}))

	// Anonymous access via share token.
	router.Method("GET", "/public/playlists/{token}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		token := chi.URLParam(r, "token")
		if token == "" {
			return apperrors.NewValidationError("share token is required", nil)
		}
		shared, tracks, err := service.GetPublicByToken(token)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, publicPlaylistResponse{
			Playlist: *shared,
			Tracks:   tracks,
		})
	}))
}

func urlParamID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name+" must be a positive integer", nil)
	}
	return id, nil
}
