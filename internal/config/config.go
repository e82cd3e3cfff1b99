package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret"           validate:"required,min=32"`
	TokenLifetimeHours int    `mapstructure:"token_lifetime_hours" validate:"required,gt=0"`
	BcryptCost         int    `mapstructure:"bcrypt_cost"          validate:"omitempty,gte=4,lte=31"`
}

// LLMConfig contains settings for the external content synthesizer and
// the optional judgment assistant, both backed by Gemini.
type LLMConfig struct {
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"  validate:"required"`
	ModelName      string        `mapstructure:"model_name"      validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EngineConfig contains tunable policy constants for the learning
// progression engine. The picker weighting is deliberately configurable
// rather than fixed; see internal/picker for how each value is applied.
type EngineConfig struct {
	// RemediationWeight scales how strongly low accuracy pulls a
	// (submodule, schema) pair forward in next-step selection.
	RemediationWeight float64 `mapstructure:"remediation_weight" validate:"gt=0"`

	// MinWeight is the floor applied to every candidate pair so that
	// no pair is ever starved entirely.
	MinWeight float64 `mapstructure:"min_weight" validate:"gt=0"`

	// RecencyPenalty multiplies the weight of the pair chosen in the
	// immediately preceding step, to discourage repetition.
	RecencyPenalty float64 `mapstructure:"recency_penalty" validate:"gt=0,lte=1"`

	// DefaultDifficulty is used when the caller does not force one.
	DefaultDifficulty string `mapstructure:"default_difficulty" validate:"required,oneof=beginner intermediate advanced"`
}
