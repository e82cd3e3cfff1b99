package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/glossa-api/internal/domain"
	"github.com/phrazzld/glossa-api/internal/store"
)

// PostgresEventStore implements the store.EventStore interface
// using a PostgreSQL database as the storage backend. Question data,
// user answers, and mark data are stored as JSONB.
type PostgresEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEventStore creates a new PostgreSQL implementation of the
// EventStore interface.
func NewPostgresEventStore(db store.DBTX, logger *slog.Logger) *PostgresEventStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "event_store")),
	}
}

// Ensure PostgresEventStore implements store.EventStore
var _ store.EventStore = (*PostgresEventStore)(nil)

const eventColumns = `
	id, session_id, submodule_id, modal_schema_id,
	question_data, user_answer, mark_data, created_at`

// Create implements store.EventStore.Create
func (s *PostgresEventStore) Create(ctx context.Context, event *domain.SessionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	markJSON, err := marshalMark(event.MarkData)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO session_events
			(id, session_id, submodule_id, modal_schema_id, question_data, user_answer, mark_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.SubmoduleID, event.ModalSchemaID,
		[]byte(event.QuestionData), nullableJSON(event.UserAnswer), markJSON,
		event.CreatedAt)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// Complete implements store.EventStore.Complete
func (s *PostgresEventStore) Complete(ctx context.Context, event *domain.SessionEvent) error {
	markJSON, err := marshalMark(event.MarkData)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	// The predicate makes the grade write-once at the database level: two
	// requests racing on the same live event cannot both update it.
	query := `
		UPDATE session_events
		SET user_answer = $2, mark_data = $3
		WHERE id = $1 AND mark_data IS NULL`

	result, err := s.db.ExecContext(ctx, query,
		event.ID, nullableJSON(event.UserAnswer), markJSON)
	if err != nil {
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return s.completeConflict(ctx, event.ID)
	}
	return nil
}

// completeConflict distinguishes the two reasons a conditional Complete can
// match no row: the event is already graded, or it does not exist.
func (s *PostgresEventStore) completeConflict(ctx context.Context, eventID uuid.UUID) error {
	var graded bool
	err := s.db.QueryRowContext(ctx,
		`SELECT mark_data IS NOT NULL FROM session_events WHERE id = $1`,
		eventID).Scan(&graded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrEventNotFound
		}
		return MapError(err)
	}
	// The row exists, so the conditional update was blocked by an existing
	// mark. Marks are immutable once written, so the event stays graded.
	return store.ErrEventAlreadyGraded
}

// GetLatest implements store.EventStore.GetLatest
func (s *PostgresEventStore) GetLatest(ctx context.Context, sessionID uuid.UUID) (*domain.SessionEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM session_events
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEventNotFound
		}
		return nil, MapError(err)
	}
	return event, nil
}

// ListBySession implements store.EventStore.ListBySession
func (s *PostgresEventStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.SessionEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM session_events
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	return collectEvents(rows)
}

// ListByUserModule implements store.EventStore.ListByUserModule
func (s *PostgresEventStore) ListByUserModule(ctx context.Context, userID uuid.UUID, moduleID, targetLanguage string) ([]*domain.SessionEvent, error) {
	query := `
		SELECT e.id, e.session_id, e.submodule_id, e.modal_schema_id,
			e.question_data, e.user_answer, e.mark_data, e.created_at
		FROM session_events e
		JOIN learning_sessions s ON s.id = e.session_id
		WHERE s.user_id = $1 AND s.module_id = $2 AND s.target_language = $3
		ORDER BY e.created_at ASC, e.id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, moduleID, targetLanguage)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	return collectEvents(rows)
}

// WithTx implements store.EventStore.WithTx
func (s *PostgresEventStore) WithTx(tx *sql.Tx) store.EventStore {
	return &PostgresEventStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.SessionEvent, error) {
	var (
		event      domain.SessionEvent
		question   []byte
		userAnswer []byte
		markData   []byte
	)

	err := row.Scan(
		&event.ID, &event.SessionID, &event.SubmoduleID, &event.ModalSchemaID,
		&question, &userAnswer, &markData, &event.CreatedAt)
	if err != nil {
		return nil, err
	}

	event.QuestionData = json.RawMessage(question)
	if userAnswer != nil {
		event.UserAnswer = json.RawMessage(userAnswer)
	}
	if markData != nil {
		var mark domain.MarkResult
		if err := json.Unmarshal(markData, &mark); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mark data: %w", err)
		}
		event.MarkData = &mark
	}
	return &event, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.SessionEvent, error) {
	var events []*domain.SessionEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return events, nil
}

func marshalMark(mark *domain.MarkResult) ([]byte, error) {
	if mark == nil {
		return nil, nil
	}
	return json.Marshal(mark)
}

// nullableJSON converts an empty raw message to nil so the column stores
// SQL NULL rather than an empty string.
func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
