package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/glossa-api/internal/config"
)

const testSecret = "test-secret-key-thats-at-least-32-chars"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:          testSecret,
		TokenLifetimeHours: 24,
	}
}

func newTestService(t *testing.T, timeFunc func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacJWTService)
	require.True(t, ok)
	if timeFunc != nil {
		impl.timeFunc = timeFunc
	}
	return impl
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{
		JWTSecret:          "too-short",
		TokenLifetimeHours: 24,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(t, nil)
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestValidateTokenExpired(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, func() time.Time { return now })
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	// Jump past the lifetime plus the clock skew allowance.
	svc.timeFunc = func() time.Time { return now.Add(24*time.Hour + 3*time.Minute) }

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWithinClockSkew(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, func() time.Time { return now })

	token, err := svc.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	// Just past expiry but inside the allowed drift.
	svc.timeFunc = func() time.Time { return now.Add(24*time.Hour + time.Minute) }

	_, err = svc.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}

func TestValidateTokenTampered(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	_, err = svc.ValidateToken(context.Background(), tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	svc := newTestService(t, nil)
	other := newTestService(t, nil)
	other.signingKey = []byte("another-secret-key-also-32-chars-long!")

	token, err := other.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestService(t, nil)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.ValidateToken(context.Background(), tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tokenString)
	}
}
