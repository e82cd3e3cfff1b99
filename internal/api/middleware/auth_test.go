package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/glossa-api/internal/service/auth"
)

// stubJWTService validates exactly one known token string.
type stubJWTService struct {
	validToken string
	userID     uuid.UUID
	err        error
}

func (s *stubJWTService) GenerateToken(_ context.Context, _ uuid.UUID) (string, error) {
	return s.validToken, nil
}

func (s *stubJWTService) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.validToken {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: s.userID}, nil
}

func runAuthenticated(t *testing.T, svc auth.JWTService, header string) (*httptest.ResponseRecorder, uuid.UUID, bool) {
	t.Helper()

	var gotUserID uuid.UUID
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, reached = GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	NewAuthMiddleware(svc).Authenticate(next).ServeHTTP(rec, req)
	return rec, gotUserID, reached
}

func TestAuthenticateValidToken(t *testing.T) {
	userID := uuid.New()
	svc := &stubJWTService{validToken: "good-token", userID: userID}

	rec, gotUserID, reached := runAuthenticated(t, svc, "Bearer good-token")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, userID, gotUserID)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	rec, _, reached := runAuthenticated(t, &stubJWTService{}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	assert.Contains(t, rec.Body.String(), "Authorization header required")
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	for _, header := range []string{"good-token", "Basic abc123", "Bearer a b"} {
		rec, _, reached := runAuthenticated(t, &stubJWTService{validToken: "good-token"}, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.False(t, reached)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc := &stubJWTService{err: auth.ErrExpiredToken}

	rec, _, reached := runAuthenticated(t, svc, "Bearer anything")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	assert.Contains(t, rec.Body.String(), "Token expired")
}

func TestAuthenticateInvalidToken(t *testing.T) {
	svc := &stubJWTService{validToken: "good-token"}

	rec, _, reached := runAuthenticated(t, svc, "Bearer forged-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	assert.Contains(t, rec.Body.String(), "Invalid token")
}

func TestGetUserIDAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserID(req)
	assert.False(t, ok)
}
