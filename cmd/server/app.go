package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/glossa-api/internal/config"
	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/generation"
	"github.com/phrazzld/glossa-api/internal/marking"
	"github.com/phrazzld/glossa-api/internal/picker"
	"github.com/phrazzld/glossa-api/internal/platform/gemini"
	"github.com/phrazzld/glossa-api/internal/platform/postgres"
	"github.com/phrazzld/glossa-api/internal/service/auth"
	"github.com/phrazzld/glossa-api/internal/service/session"
	"github.com/phrazzld/glossa-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore    store.UserStore
	sessionStore store.SessionStore
	eventStore   store.EventStore

	// Curriculum
	registry *curriculum.Registry

	// Services
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	sessionService   session.Service
}

// newApplication creates a new application instance with all dependencies
// initialized. Core dependencies like configuration, logger, and database
// connection must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Curriculum registry backs module listing, step selection, and
	// generation; everything else depends on it.
	app.registry = curriculum.NewRegistry()
	if err := app.registry.Init(); err != nil {
		return nil, fmt.Errorf("failed to load curriculum registry: %w", err)
	}
	logger.Info("Curriculum registry loaded",
		"concepts", len(app.registry.UniqueConcepts()),
		"modal_schemas", len(app.registry.SchemaIDs()))

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_hours", cfg.Auth.TokenLifetimeHours)

	app.passwordHasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.eventStore = postgres.NewPostgresEventStore(db, logger)

	synthesizer, err := gemini.NewSynthesizer(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content synthesizer: %w", err)
	}
	logger.Info("Content synthesizer initialized", "model", cfg.LLM.ModelName)

	judge, err := gemini.NewJudge(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize judgment assistant: %w", err)
	}

	constraintService := generation.NewConstraintService(
		synthesizer,
		cfg.Engine.DefaultDifficulty,
		cfg.LLM.RequestTimeout,
		logger,
	)
	marker := marking.NewMarker(judge, logger)
	stepPicker := picker.New(cfg.Engine)

	app.sessionService = session.NewService(
		db,
		app.sessionStore,
		app.eventStore,
		app.registry,
		constraintService,
		marker,
		stepPicker,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
