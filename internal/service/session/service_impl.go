package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/domain"
	"github.com/phrazzld/glossa-api/internal/generation"
	"github.com/phrazzld/glossa-api/internal/marking"
	"github.com/phrazzld/glossa-api/internal/picker"
	"github.com/phrazzld/glossa-api/internal/platform/logger"
	"github.com/phrazzld/glossa-api/internal/stats"
	"github.com/phrazzld/glossa-api/internal/store"
)

// Generator produces one validated question payload for a step. Satisfied
// by *generation.ConstraintService.
type Generator interface {
	Generate(
		ctx context.Context,
		sub *curriculum.SubmoduleDefinition,
		schema *curriculum.ModalSchemaDefinition,
		targetLanguage, sourceLanguage string,
		forced *generation.Constraints,
	) (*generation.Result, error)
}

// AnswerMarker grades one submitted answer. Satisfied by *marking.Marker.
type AnswerMarker interface {
	Mark(ctx context.Context, in marking.Input) (*domain.MarkResult, error)
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// serviceImpl implements the Service interface.
type serviceImpl struct {
	db        *sql.DB
	sessions  store.SessionStore
	events    store.EventStore
	registry  *curriculum.Registry
	generator Generator
	marker    AnswerMarker
	picker    *picker.Picker
	logger    *slog.Logger

	// runTx is store.RunInTransaction in production; tests substitute a
	// pass-through so store mocks can run without a live database.
	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewService creates a new session Service implementation.
func NewService(
	db *sql.DB,
	sessions store.SessionStore,
	events store.EventStore,
	registry *curriculum.Registry,
	generator Generator,
	marker AnswerMarker,
	stepPicker *picker.Picker,
	log *slog.Logger,
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if events == nil {
		panic("events cannot be nil")
	}
	if registry == nil {
		panic("registry cannot be nil")
	}
	if generator == nil {
		panic("generator cannot be nil")
	}
	if marker == nil {
		panic("marker cannot be nil")
	}
	if stepPicker == nil {
		panic("stepPicker cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &serviceImpl{
		db:        db,
		sessions:  sessions,
		events:    events,
		registry:  registry,
		generator: generator,
		marker:    marker,
		picker:    stepPicker,
		logger:    log.With(slog.String("component", "session_service")),
		runTx:     store.RunInTransaction,
	}
}

// Start implements Service.Start.
func (s *serviceImpl) Start(
	ctx context.Context,
	userID uuid.UUID,
	conceptID, targetLanguage, sourceLanguage string,
) (*StartResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	module, err := s.registry.GetModule(conceptID, targetLanguage)
	if err != nil {
		if errors.Is(err, curriculum.ErrModuleNotFound) {
			log.Debug("module not found",
				slog.String("concept_id", conceptID),
				slog.String("target_language", targetLanguage))
			return nil, ErrModuleNotFound
		}
		return nil, NewStartError("failed to resolve module", err)
	}

	session, err := domain.NewLearningSession(userID, conceptID, targetLanguage, sourceLanguage)
	if err != nil {
		return nil, NewStartError("invalid session parameters", err)
	}

	history, err := s.events.ListByUserModule(ctx, userID, conceptID, targetLanguage)
	if err != nil {
		return nil, NewStartError("failed to load attempt history", err)
	}

	event, question, err := s.issueStep(ctx, session, module, history, nil)
	if err != nil {
		return nil, err
	}

	// The session and its first question commit together so an open
	// session always has a live question to answer.
	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.sessions.WithTx(tx).Create(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if err := s.events.WithTx(tx).Create(ctx, event); err != nil {
			return fmt.Errorf("failed to record first question: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, NewStartError("failed to persist session", err)
	}

	log.Info("session started",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("module_id", conceptID),
		slog.String("target_language", targetLanguage),
		slog.String("first_step", question.SubmoduleID+"/"+question.ModalSchemaID))

	return &StartResult{Session: session, Question: question}, nil
}

// Submit implements Service.Submit.
func (s *serviceImpl) Submit(
	ctx context.Context,
	userID, sessionID uuid.UUID,
	answer json.RawMessage,
) (*SubmitResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, ErrSessionEnded
	}

	live, err := s.events.GetLatest(ctx, sessionID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrNoLiveQuestion
		}
		return nil, NewSubmitError("failed to load live question", err)
	}
	if live.Graded() {
		log.Warn("answer submitted for already graded question",
			slog.String("session_id", sessionID.String()),
			slog.String("event_id", live.ID.String()))
		return nil, ErrNoLiveQuestion
	}

	schema, err := s.registry.GetSchema(live.ModalSchemaID)
	if err != nil {
		return nil, NewSubmitError("live question has unknown modal schema", err)
	}

	mark, err := s.marker.Mark(ctx, marking.Input{
		Schema:         schema,
		QuestionData:   live.QuestionData,
		UserAnswer:     answer,
		TargetLanguage: session.TargetLanguage,
		SourceLanguage: session.SourceLanguage,
	})
	if err != nil {
		if errors.Is(err, marking.ErrMalformedAnswer) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		return nil, NewSubmitError("failed to grade answer", err)
	}

	if err := live.Complete(answer, mark); err != nil {
		return nil, NewSubmitError("failed to attach mark", err)
	}

	module, err := s.registry.GetModule(session.ModuleID, session.TargetLanguage)
	if err != nil {
		return nil, NewSubmitError("failed to resolve module", err)
	}

	history, err := s.events.ListByUserModule(ctx, userID, session.ModuleID, session.TargetLanguage)
	if err != nil {
		return nil, NewSubmitError("failed to load attempt history", err)
	}
	// The just-graded attempt is not yet persisted; count it by hand so the
	// picker sees the freshest accuracy.
	attempts := append(attemptsFrom(history), picker.Attempt{
		Pair:      pairOf(live),
		IsCorrect: mark.IsCorrect,
	})

	previous := pairOf(live)
	next, nextQuestion, err := s.issueStepFromAttempts(ctx, session, module, attempts, &previous)
	if err != nil {
		return nil, err
	}

	// Grade and advance commit atomically: on any failure the live
	// question stays ungraded and answerable.
	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txEvents := s.events.WithTx(tx)
		if err := txEvents.Complete(ctx, live); err != nil {
			return fmt.Errorf("failed to save mark: %w", err)
		}
		if err := txEvents.Create(ctx, next); err != nil {
			return fmt.Errorf("failed to record next question: %w", err)
		}
		return nil
	})
	if err != nil {
		// A racing submission graded the live event between our snapshot
		// read and the conditional write; its mark stands, ours is dropped.
		if errors.Is(err, store.ErrEventAlreadyGraded) {
			log.Warn("concurrent submission lost the grading race",
				slog.String("session_id", sessionID.String()),
				slog.String("event_id", live.ID.String()))
			return nil, ErrNoLiveQuestion
		}
		return nil, NewSubmitError("failed to persist answer", err)
	}

	log.Info("answer graded",
		slog.String("session_id", sessionID.String()),
		slog.String("event_id", live.ID.String()),
		slog.Bool("is_correct", mark.IsCorrect),
		slog.Int("score", mark.Score),
		slog.String("next_step", nextQuestion.SubmoduleID+"/"+nextQuestion.ModalSchemaID))

	return &SubmitResult{Mark: mark, Next: nextQuestion}, nil
}

// End implements Service.End.
func (s *serviceImpl) End(ctx context.Context, userID, sessionID uuid.UUID) (*EndResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, NewEndError("failed to load session events", err)
	}
	summary := stats.Summarize(events)

	if !session.Ended() {
		session.End(time.Now())
		if err := s.sessions.Update(ctx, session); err != nil {
			return nil, NewEndError("failed to close session", err)
		}
		log.Info("session ended",
			slog.String("session_id", sessionID.String()),
			slog.Int("questions_answered", summary.QuestionsAnswered),
			slog.Float64("accuracy", summary.Accuracy))
	}

	return &EndResult{Session: session, Summary: summary}, nil
}

// Performance implements Service.Performance.
func (s *serviceImpl) Performance(
	ctx context.Context,
	userID uuid.UUID,
	conceptID, targetLanguage string,
) (*domain.ModulePerformance, error) {
	if _, err := s.registry.GetModule(conceptID, targetLanguage); err != nil {
		if errors.Is(err, curriculum.ErrModuleNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, NewPerformanceError("failed to resolve module", err)
	}

	events, err := s.events.ListByUserModule(ctx, userID, conceptID, targetLanguage)
	if err != nil {
		return nil, NewPerformanceError("failed to load attempt history", err)
	}

	return stats.Performance(events, s.registry), nil
}

// loadOwnedSession fetches a session and verifies the caller owns it.
func (s *serviceImpl) loadOwnedSession(
	ctx context.Context,
	userID, sessionID uuid.UUID,
) (*domain.LearningSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		s.logger.Warn("session access denied",
			slog.String("session_id", sessionID.String()),
			slog.String("user_id", userID.String()),
			slog.String("owner_id", session.UserID.String()))
		return nil, ErrSessionNotOwned
	}
	return session, nil
}

// issueStep picks and generates the next question from raw event history.
func (s *serviceImpl) issueStep(
	ctx context.Context,
	session *domain.LearningSession,
	module *curriculum.ModuleDefinition,
	history []*domain.SessionEvent,
	previous *picker.Pair,
) (*domain.SessionEvent, *Question, error) {
	return s.issueStepFromAttempts(ctx, session, module, attemptsFrom(history), previous)
}

// issueStepFromAttempts picks the next submodule/schema pair, generates a
// question for it, and builds the unsaved event plus its learner view.
func (s *serviceImpl) issueStepFromAttempts(
	ctx context.Context,
	session *domain.LearningSession,
	module *curriculum.ModuleDefinition,
	attempts []picker.Attempt,
	previous *picker.Pair,
) (*domain.SessionEvent, *Question, error) {
	pair, err := s.picker.Next(module, attempts, previous)
	if err != nil {
		// A module with no selectable steps cannot serve content.
		return nil, nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	sub, err := s.registry.GetSubmodule(session.ModuleID, session.TargetLanguage, pair.SubmoduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve submodule %q: %w", pair.SubmoduleID, err)
	}
	// Every recorded event must pair a submodule with one of its supported
	// schemas. The picker only emits such pairs, but the invariant is
	// enforced here too in case the module definition and the registry ever
	// disagree.
	if !sub.SupportsSchema(pair.ModalSchemaID) {
		return nil, nil, fmt.Errorf("modal schema %q not supported by submodule %q", pair.ModalSchemaID, pair.SubmoduleID)
	}
	schema, err := s.registry.GetSchema(pair.ModalSchemaID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve modal schema %q: %w", pair.ModalSchemaID, err)
	}

	result, err := s.generator.Generate(ctx, sub, schema, session.TargetLanguage, session.SourceLanguage, nil)
	if err != nil {
		if errors.Is(err, generation.ErrGenerationFailed) || errors.Is(err, generation.ErrTransientFailure) {
			return nil, nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		return nil, nil, fmt.Errorf("failed to generate question: %w", err)
	}

	event, err := domain.NewSessionEvent(session.ID, pair.SubmoduleID, pair.ModalSchemaID, result.QuestionData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build session event: %w", err)
	}

	return event, &Question{
		EventID:       event.ID,
		SubmoduleID:   pair.SubmoduleID,
		ModalSchemaID: pair.ModalSchemaID,
		UIComponent:   uiComponentFor(sub, schema),
		QuestionData:  result.QuestionData,
	}, nil
}

// uiComponentFor resolves the UI component for a step, honoring the
// submodule's per-schema override.
func uiComponentFor(sub *curriculum.SubmoduleDefinition, schema *curriculum.ModalSchemaDefinition) string {
	if override, ok := sub.Overrides[schema.ID]; ok && override.UIComponent != "" {
		return override.UIComponent
	}
	return schema.UIComponent
}

// attemptsFrom converts graded events to picker attempts; ungraded events
// carry no signal and are skipped.
func attemptsFrom(events []*domain.SessionEvent) []picker.Attempt {
	var attempts []picker.Attempt
	for _, e := range events {
		if !e.Graded() {
			continue
		}
		attempts = append(attempts, picker.Attempt{
			Pair:      pairOf(e),
			IsCorrect: e.MarkData.IsCorrect,
		})
	}
	return attempts
}

func pairOf(e *domain.SessionEvent) picker.Pair {
	return picker.Pair{SubmoduleID: e.SubmoduleID, ModalSchemaID: e.ModalSchemaID}
}
