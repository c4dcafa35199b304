package activity

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
)

// RegisterRoutes mounts the activity feed endpoint.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method("GET", "/activity", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		requester, ok := auth.UserFromRequest(r)
		if !ok {
			return apperrors.NewUnauthorizedError("authentication required")
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				return apperrors.NewValidationError("limit must be a non-negative integer", nil)
			}
			limit = parsed
		}

		events, err := service.Feed(requester.ID, limit)
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, events, false)
	}))
}
