package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/darkwavepulse/pulse-access/internal/http/response"
	"github.com/darkwavepulse/pulse-access/internal/service"
)

type contextKey string

const (
	// UserIDContextKey carries the authenticated principal through the
	// request context.
	UserIDContextKey contextKey = "user_id"
	// SessionTokenContextKey carries the raw bearer token so handlers like
	// logout can revoke it without re-reading headers.
	SessionTokenContextKey contextKey = "session_token"

	// SessionTokenHeader is the only place clients present session tokens.
	SessionTokenHeader = "X-Session-Token"
)

// SessionAuth gates a route group on a live session. Auth-negative outcomes
// are 401s that tell the client whether re-entering the access code will
// help; infrastructure faults are 500s and say nothing about the token.
func SessionAuth(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionTokenHeader)
			userID, err := sessions.CheckRequest(r.Context(), token)
			if err != nil {
				writeSessionError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			ctx = context.WithValue(ctx, SessionTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTokenMissing), errors.Is(err, service.ErrTokenUnknown):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED",
			"Access denied. Please enter the access code.",
			map[string]any{"requiresAccessCode": true})
	case errors.Is(err, service.ErrSessionExpired):
		response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED",
			"Session expired. Please enter the access code again.",
			map[string]any{"requiresAccessCode": true})
	case errors.Is(err, service.ErrSessionUnbound):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED",
			"Invalid session: no user ID", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL",
			"Session validation failed", nil)
	}
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok
}

func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenContextKey).(string)
	return token, ok
}
