package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session-specific validation errors
var (
	// ErrSessionIDEmpty is returned when a session ID is empty or nil.
	ErrSessionIDEmpty = errors.New("session ID cannot be empty")

	// ErrSessionUserIDEmpty is returned when a session's user ID is empty or nil.
	ErrSessionUserIDEmpty = errors.New("session user ID cannot be empty")

	// ErrSessionModuleEmpty is returned when a session's module ID is empty.
	ErrSessionModuleEmpty = errors.New("session module ID cannot be empty")

	// ErrSessionLanguageEmpty is returned when a session is missing its
	// target or source language.
	ErrSessionLanguageEmpty = errors.New("session languages cannot be empty")
)

// LearningSession represents one learning session for a user practicing a
// module: started once, accumulating attempt events, and eventually ended.
// The session is owned exclusively by its user for its whole lifetime.
type LearningSession struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	ModuleID       string     `json:"module_id"`
	TargetLanguage string     `json:"target_language"`
	SourceLanguage string     `json:"source_language"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// NewLearningSession creates a new LearningSession for the given user,
// module, and language pair. It generates a new UUID for the session ID
// and sets the start timestamp. Returns an error if validation fails.
func NewLearningSession(
	userID uuid.UUID,
	moduleID, targetLanguage, sourceLanguage string,
) (*LearningSession, error) {
	session := &LearningSession{
		ID:             uuid.New(),
		UserID:         userID,
		ModuleID:       moduleID,
		TargetLanguage: targetLanguage,
		SourceLanguage: sourceLanguage,
		StartedAt:      time.Now().UTC(),
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the LearningSession has valid data.
// Returns an error if any field fails validation.
func (s *LearningSession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSessionIDEmpty
	}

	if s.UserID == uuid.Nil {
		return ErrSessionUserIDEmpty
	}

	if s.ModuleID == "" {
		return ErrSessionModuleEmpty
	}

	if s.TargetLanguage == "" || s.SourceLanguage == "" {
		return ErrSessionLanguageEmpty
	}

	return nil
}

// Ended reports whether the session has been closed.
func (s *LearningSession) Ended() bool {
	return s.EndedAt != nil
}

// End marks the session as ended at the given time. Ending an already-ended
// session is a no-op so the operation stays idempotent.
func (s *LearningSession) End(at time.Time) {
	if s.EndedAt != nil {
		return
	}
	t := at.UTC()
	s.EndedAt = &t
}
