package users

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
)

// RegisterRoutes mounts the user profile and preference endpoints.
func RegisterRoutes(router chi.Router, repo *Repository, library LibraryProvider) {
	router.Method("GET", "/users/{username}/profile", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}

		username := chi.URLParam(r, "username")
		user, err := repo.GetByUsername(username)
		if err != nil {
			return err
		}
		if user == nil {
			return apperrors.NewNotFoundResource("user", username)
		}

		playlists, err := library.PlaylistSummaries(user.ID, requester.ID)
		if err != nil {
			return err
		}
		stats, err := library.MusicStats(user.ID)
		if err != nil {
			return err
		}

		return api.WriteResource(w, http.StatusOK, Profile{
			User:      *user,
			Playlists: playlists,
			Stats:     stats,
		})
	}))

	router.Method("GET", "/me/preferences", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}

		genre, err := repo.DefaultGenre(requester.ID)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, Preferences{DefaultGenre: genre})
	}))

	router.Method("PUT", "/me/preferences", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}

		var prefs Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}
		prefs.DefaultGenre = strings.TrimSpace(prefs.DefaultGenre)
		if prefs.DefaultGenre == "" {
			return apperrors.NewValidationError("default_genre is required", nil)
		}
		if len(prefs.DefaultGenre) > 64 {
			return apperrors.NewValidationError("default_genre must be at most 64 characters", nil)
		}

		if err := repo.SetDefaultGenre(requester.ID, prefs.DefaultGenre); err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, prefs)
	}))
}
