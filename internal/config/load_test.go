package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GLOSSA_DATABASE_URL", "postgres://localhost:5432/glossa_test")
	t.Setenv("GLOSSA_AUTH_JWT_SECRET", "test-secret-key-thats-at-least-32-chars")
	t.Setenv("GLOSSA_LLM_GEMINI_API_KEY", "test-api-key")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 24, cfg.Auth.TokenLifetimeHours)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
	assert.Equal(t, 30*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 2.0, cfg.Engine.RemediationWeight)
	assert.Equal(t, 0.05, cfg.Engine.MinWeight)
	assert.Equal(t, 0.25, cfg.Engine.RecencyPenalty)
	assert.Equal(t, "beginner", cfg.Engine.DefaultDifficulty)
}

func TestLoadReadsSecretsFromEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/glossa_test", cfg.Database.URL)
	assert.Equal(t, "test-secret-key-thats-at-least-32-chars", cfg.Auth.JWTSecret)
	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GLOSSA_SERVER_PORT", "9090")
	t.Setenv("GLOSSA_SERVER_LOG_LEVEL", "debug")
	t.Setenv("GLOSSA_ENGINE_DEFAULT_DIFFICULTY", "advanced")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "advanced", cfg.Engine.DefaultDifficulty)
}

func TestLoadFailsWithoutRequiredSecrets(t *testing.T) {
	// Only two of the three required secrets set. Viper ignores empty env
	// values, so this also shields the test from the outer environment.
	t.Setenv("GLOSSA_DATABASE_URL", "postgres://localhost:5432/glossa_test")
	t.Setenv("GLOSSA_AUTH_JWT_SECRET", "test-secret-key-thats-at-least-32-chars")
	t.Setenv("GLOSSA_LLM_GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GLOSSA_AUTH_JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GLOSSA_SERVER_LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
