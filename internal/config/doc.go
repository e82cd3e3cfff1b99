// Package config defines the application configuration structure and
// loading logic. Configuration is read from environment variables with
// the GLOSSA_ prefix and an optional config.yaml file, then validated.
package config
