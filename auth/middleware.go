package auth

import (
	"context"
	"messenger/domain"
	"messenger/errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// ErrorWriter renders an error response; the HTTP layer supplies its own.
type ErrorWriter func(w http.ResponseWriter, err error)

// Middleware verifies the bearer token and injects the caller's id into the
// request context. Websocket clients cannot set headers from a browser, so an
// access_token query parameter is accepted as well.
func Middleware(issuer *TokenIssuer, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearer(r)
			if tokenStr == "" {
				writeError(w, errors.ErrUnauthenticated)
				return
			}
			claims, err := issuer.ValidateToken(tokenStr)
			if err != nil {
				writeError(w, errors.ErrUnauthenticated)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RolesKey, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// UserIDFrom returns the authenticated caller set by Middleware.
func UserIDFrom(ctx context.Context) (domain.UserID, bool) {
	id, ok := ctx.Value(UserIDKey).(domain.UserID)
	return id, ok
}

// RequireCaller fails with ErrNotCaller when acting is not the authenticated user.
func RequireCaller(ctx context.Context, acting domain.UserID) error {
	caller, ok := UserIDFrom(ctx)
	if !ok {
		return errors.ErrUnauthenticated
	}
	if caller != acting {
		return errors.ErrNotCaller
	}
	return nil
}
