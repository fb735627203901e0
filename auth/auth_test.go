package auth

import (
	"context"
	"messenger/domain"
	"messenger/errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.GenerateToken(42, []string{"user"}, time.Hour)
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	userID, err := claims.UserID()
	req.NoError(err)
	req.Equal(domain.UserID(42), userID)
	req.Equal([]string{"user"}, claims.Roles)
}

func TestTokenIssuer_Rejects_Bad_Tokens(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret")

	// Signed with another secret
	other, err := NewTokenIssuer("other-secret").GenerateToken(1, nil, time.Hour)
	req.NoError(err)
	_, err = issuer.ValidateToken(other)
	req.Error(err)

	// Expired
	expired, err := issuer.GenerateToken(1, nil, -time.Minute)
	req.NoError(err)
	_, err = issuer.ValidateToken(expired)
	req.ErrorIs(err, jwt.ErrTokenExpired)

	// Garbage
	_, err = issuer.ValidateToken("not-a-jwt")
	req.Error(err)
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	var status int
	writeError := func(w http.ResponseWriter, err error) {
		status = errors.MapToHTTPStatus(err)
		w.WriteHeader(status)
	}
	var seen domain.UserID
	handler := Middleware(issuer, writeError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("should reject a request without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/friend/1", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should inject the subject from the header", func(t *testing.T) {
		req := require.New(t)
		token, err := issuer.GenerateToken(7, nil, time.Hour)
		req.NoError(err)
		r := httptest.NewRequest(http.MethodGet, "/api/friend/7", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, r)

		req.Equal(http.StatusNoContent, rec.Code)
		req.Equal(domain.UserID(7), seen)
	})

	t.Run("should accept the query parameter used by websockets", func(t *testing.T) {
		req := require.New(t)
		token, err := issuer.GenerateToken(8, nil, time.Hour)
		req.NoError(err)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil))

		req.Equal(http.StatusNoContent, rec.Code)
		req.Equal(domain.UserID(8), seen)
	})
}

func TestRequireCaller(t *testing.T) {
	req := require.New(t)
	ctx := context.WithValue(context.Background(), UserIDKey, domain.UserID(1))

	req.NoError(RequireCaller(ctx, 1))
	req.ErrorIs(RequireCaller(ctx, 2), errors.ErrNotCaller)
	req.ErrorIs(RequireCaller(context.Background(), 1), errors.ErrUnauthenticated)
}
