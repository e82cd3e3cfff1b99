// Package session implements the learning session workflow: starting a
// session with its first question, grading submitted answers and advancing
// to the next step, ending a session with a summary, and reporting module
// performance. It orchestrates the curriculum registry, next-step picker,
// question generation, and marking behind a single service interface.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/glossa-api/internal/domain"
	"github.com/phrazzld/glossa-api/internal/stats"
)

// Common error types for the session service.
var (
	// ErrModuleNotFound indicates the requested concept/language pair has no
	// registered module.
	ErrModuleNotFound = errors.New("learning module not found")

	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotOwned indicates the session belongs to another user.
	ErrSessionNotOwned = errors.New("unauthorized access: session not owned by user")

	// ErrSessionEnded indicates the session has already been ended and can
	// no longer accept answers.
	ErrSessionEnded = errors.New("session already ended")

	// ErrNoLiveQuestion indicates the session has no pending question to
	// answer, typically because the latest question was already graded.
	ErrNoLiveQuestion = errors.New("no live question awaiting an answer")

	// ErrInvalidAnswer indicates the submitted answer payload does not fit
	// the live question's modal schema.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrGenerationUnavailable indicates question generation failed and the
	// step could not be served.
	ErrGenerationUnavailable = errors.New("question generation unavailable")
)

// Question is the learner-facing view of an issued question.
type Question struct {
	EventID       uuid.UUID       `json:"event_id"`
	SubmoduleID   string          `json:"submodule_id"`
	ModalSchemaID string          `json:"modal_schema_id"`
	UIComponent   string          `json:"ui_component"`
	QuestionData  json.RawMessage `json:"question_data"`
}

// StartResult is the outcome of starting a session: the new session and
// its first question.
type StartResult struct {
	Session  *domain.LearningSession `json:"session"`
	Question *Question               `json:"question"`
}

// SubmitResult is the outcome of answering: the mark for the submitted
// answer and the next question to attempt.
type SubmitResult struct {
	Mark *domain.MarkResult `json:"mark"`
	Next *Question          `json:"next_question"`
}

// EndResult is the outcome of ending a session.
type EndResult struct {
	Session *domain.LearningSession `json:"session"`
	Summary *stats.SessionSummary   `json:"summary"`
}

// Service manages the lifecycle of learning sessions.
type Service interface {
	// Start creates a new session for the user on the given module and
	// issues its first question. The first step favors submodule/schema
	// pairs the user has never attempted.
	//
	// Returns ErrModuleNotFound if no module is registered for the
	// concept/language pair, and ErrGenerationUnavailable if the first
	// question could not be generated.
	Start(ctx context.Context, userID uuid.UUID, conceptID, targetLanguage, sourceLanguage string) (*StartResult, error)

	// Submit grades the user's answer to the session's live question and
	// advances the session to its next question. The grade and the next
	// question are committed atomically; if anything fails, the live
	// question stays answerable.
	//
	// Returns ErrSessionNotFound, ErrSessionNotOwned, or ErrSessionEnded
	// for lifecycle violations; ErrNoLiveQuestion when the latest question
	// was already graded; ErrInvalidAnswer when the payload does not fit the
	// schema; ErrGenerationUnavailable when the next step cannot be served.
	Submit(ctx context.Context, userID, sessionID uuid.UUID, answer json.RawMessage) (*SubmitResult, error)

	// End closes the session and returns its summary. Ending an already
	// ended session returns the same summary again rather than an error.
	End(ctx context.Context, userID, sessionID uuid.UUID) (*EndResult, error)

	// Performance computes the user's cumulative performance for a module
	// across all their sessions, including the per-skill breakdown and the
	// estimated CEFR band.
	Performance(ctx context.Context, userID uuid.UUID, conceptID, targetLanguage string) (*domain.ModulePerformance, error)
}

// ServiceError wraps errors from the session service with operation
// context, so consumers can use errors.As instead of string matching.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewStartError returns a new ServiceError for the start_session operation.
func NewStartError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "start_session", Message: message, Err: err}
}

// NewSubmitError returns a new ServiceError for the submit_answer operation.
func NewSubmitError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "submit_answer", Message: message, Err: err}
}

// NewEndError returns a new ServiceError for the end_session operation.
func NewEndError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "end_session", Message: message, Err: err}
}

// NewPerformanceError returns a new ServiceError for the performance operation.
func NewPerformanceError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "module_performance", Message: message, Err: err}
}
