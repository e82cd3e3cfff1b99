package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/glossa-api/internal/domain"
)

// SessionStore defines the interface for learning session persistence.
type SessionStore interface {
	// Create saves a new learning session.
	// Returns validation errors from the domain LearningSession if data is
	// invalid, or ErrDuplicate if the ID already exists.
	Create(ctx context.Context, session *domain.LearningSession) error

	// GetByID retrieves a learning session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LearningSession, error)

	// Update modifies an existing session (currently only the end time).
	// Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, session *domain.LearningSession) error

	// WithTx returns a new SessionStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) SessionStore
}

// EventStore defines the interface for session event persistence. Events
// are append-only attempt records; the only in-place update allowed is
// attaching an answer and mark to a previously issued event.
type EventStore interface {
	// Create appends a new session event.
	Create(ctx context.Context, event *domain.SessionEvent) error

	// Complete attaches the user answer and mark data to the event with the
	// given ID. The write is conditional on the stored event being ungraded:
	// returns ErrEventAlreadyGraded if a mark is already present (a racing
	// submission won), and ErrEventNotFound if the event does not exist.
	Complete(ctx context.Context, event *domain.SessionEvent) error

	// GetLatest returns the most recent event for a session, or
	// ErrEventNotFound if the session has no events yet.
	GetLatest(ctx context.Context, sessionID uuid.UUID) (*domain.SessionEvent, error)

	// ListBySession returns all events for a session in chronological order.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.SessionEvent, error)

	// ListByUserModule returns all events across every session the user has
	// for the given module and target language, in chronological order. This
	// is the read the picker and the performance tracker are built on.
	ListByUserModule(ctx context.Context, userID uuid.UUID, moduleID, targetLanguage string) ([]*domain.SessionEvent, error)

	// WithTx returns a new EventStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) EventStore
}
