package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event-specific validation errors
var (
	// ErrEventIDEmpty is returned when an event ID is empty or nil.
	ErrEventIDEmpty = errors.New("event ID cannot be empty")

	// ErrEventSessionIDEmpty is returned when an event's session ID is empty or nil.
	ErrEventSessionIDEmpty = errors.New("event session ID cannot be empty")

	// ErrEventSubmoduleEmpty is returned when an event's submodule ID is empty.
	ErrEventSubmoduleEmpty = errors.New("event submodule ID cannot be empty")

	// ErrEventSchemaEmpty is returned when an event's modal schema ID is empty.
	ErrEventSchemaEmpty = errors.New("event modal schema ID cannot be empty")

	// ErrEventQuestionEmpty is returned when an event has no question data.
	ErrEventQuestionEmpty = errors.New("event question data cannot be empty")

	// ErrEventQuestionInvalid is returned when an event's question data is not valid JSON.
	ErrEventQuestionInvalid = errors.New("event question data must be valid JSON")

	// ErrEventAlreadyGraded is returned when a mark is attached to an event
	// that already carries one.
	ErrEventAlreadyGraded = errors.New("event already graded")
)

// SessionEvent is one attempt record within a learning session: a question
// issued to the learner, optionally answered and graded. Events are
// append-only; the session's current "live" question is always its most
// recent event without mark data.
type SessionEvent struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	SubmoduleID   string          `json:"submodule_id"`
	ModalSchemaID string          `json:"modal_schema_id"`
	QuestionData  json.RawMessage `json:"question_data"`
	UserAnswer    json.RawMessage `json:"user_answer,omitempty"`
	MarkData      *MarkResult     `json:"mark_data,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewSessionEvent creates a new issuing event for the given session and
// step: the question has been shown but not yet answered, so UserAnswer
// and MarkData are nil. Returns an error if validation fails.
func NewSessionEvent(
	sessionID uuid.UUID,
	submoduleID, modalSchemaID string,
	questionData json.RawMessage,
) (*SessionEvent, error) {
	event := &SessionEvent{
		ID:            uuid.New(),
		SessionID:     sessionID,
		SubmoduleID:   submoduleID,
		ModalSchemaID: modalSchemaID,
		QuestionData:  questionData,
		CreatedAt:     time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// Validate checks if the SessionEvent has valid data.
// Returns an error if any field fails validation.
func (e *SessionEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEventIDEmpty
	}

	if e.SessionID == uuid.Nil {
		return ErrEventSessionIDEmpty
	}

	if e.SubmoduleID == "" {
		return ErrEventSubmoduleEmpty
	}

	if e.ModalSchemaID == "" {
		return ErrEventSchemaEmpty
	}

	if len(e.QuestionData) == 0 {
		return ErrEventQuestionEmpty
	}

	var js json.RawMessage
	if err := json.Unmarshal(e.QuestionData, &js); err != nil {
		return ErrEventQuestionInvalid
	}

	return nil
}

// Graded reports whether the event already carries a mark.
func (e *SessionEvent) Graded() bool {
	return e.MarkData != nil
}

// Complete attaches the learner's answer and its mark to the event.
// Returns ErrEventAlreadyGraded if the event was graded before; a mark
// is produced once per event and is immutable thereafter.
func (e *SessionEvent) Complete(answer json.RawMessage, mark *MarkResult) error {
	if e.Graded() {
		return ErrEventAlreadyGraded
	}
	if mark == nil {
		return ErrValidation
	}
	e.UserAnswer = answer
	e.MarkData = mark
	return nil
}
