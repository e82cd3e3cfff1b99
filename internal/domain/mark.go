package domain

import "errors"

// Mark-specific validation errors
var (
	// ErrMarkScoreRange is returned when a mark's score is outside 0-100.
	ErrMarkScoreRange = errors.New("mark score must be between 0 and 100")

	// ErrMarkFeedbackEmpty is returned when a mark has no feedback text.
	// Feedback is always populated, even for trivially correct answers,
	// to support the downstream tutoring UI.
	ErrMarkFeedbackEmpty = errors.New("mark feedback cannot be empty")
)

// MarkResult is the graded outcome of one answered question. Produced once
// per session event and immutable thereafter.
type MarkResult struct {
	IsCorrect     bool   `json:"is_correct"`
	Score         int    `json:"score"`
	Feedback      string `json:"feedback"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Validate checks if the MarkResult has valid data.
func (m *MarkResult) Validate() error {
	if m.Score < 0 || m.Score > 100 {
		return ErrMarkScoreRange
	}
	if m.Feedback == "" {
		return ErrMarkFeedbackEmpty
	}
	return nil
}
