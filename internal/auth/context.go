package auth

import (
	"context"
	"net/http"
)

type contextKey string

const userContextKey contextKey = "authUser"

// ContextUser holds the authenticated caller identity for a request.
type ContextUser struct {
	ID       int64
	Username string
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user ContextUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user, if any.
func UserFromContext(ctx context.Context) (ContextUser, bool) {
	user, ok := ctx.Value(userContextKey).(ContextUser)
	return user, ok
}

// UserFromRequest is a convenience wrapper for handlers.
func UserFromRequest(r *http.Request) (ContextUser, bool) {
	return UserFromContext(r.Context())
}
