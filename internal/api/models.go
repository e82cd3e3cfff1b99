package api

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RegisterRequest is the payload for the /auth/register endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest is the payload for the /auth/login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by successful register and login calls.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// StartSessionRequest is the payload for starting a learning session.
type StartSessionRequest struct {
	ConceptID      string `json:"concept_id"      validate:"required"`
	TargetLanguage string `json:"target_language" validate:"required,bcp47_language_tag"`
	SourceLanguage string `json:"source_language" validate:"required,bcp47_language_tag"`
}

// SubmitAnswerRequest is the payload for answering the session's live
// question. The answer shape depends on the question's modal schema, so it
// is passed through as raw JSON and validated by the marking layer.
type SubmitAnswerRequest struct {
	Answer json.RawMessage `json:"answer" validate:"required"`
}
