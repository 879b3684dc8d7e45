package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kalambet/folio/internal/storage"
)

// SessionStore resolves bearer tokens to usernames.
type SessionStore interface {
	LookupSession(token string) (string, error)
}

type ctxKey int

const usernameKey ctxKey = iota

// SessionAuth rejects requests without a valid session token and stores the
// session's username in the request context.
func SessionAuth(sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			username, err := sessions.LookupSession(strings.TrimSpace(auth[len(prefix):]))
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to look up session: %v", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), usernameKey, username)))
		})
	}
}

// SessionUser returns the username stored by SessionAuth.
func SessionUser(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey).(string)
	return u, ok && u != ""
}
