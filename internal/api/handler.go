package api

import (
	"log"
	"net/http"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
)

// Handler is an http.Handler whose handlers return errors instead of
// writing error responses themselves. Returned errors flow through
// WriteError, which maps AppError codes to status and body.
type Handler func(w http.ResponseWriter, r *http.Request) error

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// RecovererMiddleware keeps a panicking handler from taking the whole
// connection down; the client gets a plain 500.
func RecovererMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Printf("panic recovered: %v", recovered)
				WriteError(w, r, apperrors.NewInternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
