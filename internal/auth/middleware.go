package auth

import (
	"net/http"
	"strings"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/config"
)

// Routes reachable without a bearer token.
var publicExactPaths = map[string]bool{
	"/v1/auth/register":    true,
	"/v1/auth/login":       true,
	"/v1/auth/refresh":     true,
	"/v1/spotify/callback": true,
}

var publicPathPrefixes = []string{
	"/v1/health",
	"/v1/public/",
	"/v1/openapi",
}

func isPublicPath(path string) bool {
	if publicExactPaths[path] {
		return true
	}
	for _, prefix := range publicPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware enforces bearer-token auth on all non-public routes and
// places the authenticated user on the request context.
func Middleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("missing bearer token"))
				return
			}

			payload, err := VerifyToken(cfg, token)
			if err != nil {
				switch err {
				case ErrTokenExpired:
					api.WriteError(w, r, apperrors.NewUnauthorizedError("token expired", apperrors.ErrorCodeAuthTokenExpired))
				default:
					api.WriteError(w, r, apperrors.NewUnauthorizedError("token invalid", apperrors.ErrorCodeAuthTokenInvalid))
				}
				return
			}
			if payload.Type != TokenTypeAccess {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("access token required", apperrors.ErrorCodeAuthTokenInvalid))
				return
			}

			ctx := WithUser(r.Context(), ContextUser{ID: payload.UserID, Username: payload.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
