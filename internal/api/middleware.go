package api

import (
	"context"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDHeader carries the acting user's id, resolved and verified by the
// upstream auth gateway. This service never authenticates; it only
// authorizes by comparing ids.
const UserIDHeader = "X-User-ID"

// RequireUser rejects requests that arrive without a resolved identity and
// stores the id in the request context for the handlers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Authentication required."})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the acting user's id, or "" on unauthenticated routes.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
