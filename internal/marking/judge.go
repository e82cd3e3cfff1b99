package marking

import (
	"context"
	"errors"
)

// ErrJudgeUnavailable is returned by Judge implementations when the
// external judgment assistant cannot produce a result. The marker treats
// it as recoverable and falls back to the lexical-overlap heuristic; it
// never fails a submission.
var ErrJudgeUnavailable = errors.New("judgment assistant unavailable")

// JudgeRequest describes one free-form answer to be judged qualitatively.
type JudgeRequest struct {
	Question        string
	Criteria        string
	ReferenceAnswer string
	SubmittedAnswer string
	TargetLanguage  string
}

// JudgeResult is the assistant's verdict: a 0-100 score and a short
// rationale suitable for learner-facing feedback.
type JudgeResult struct {
	Score     int
	Rationale string
}

// Judge is the boundary to the external judgment/grading assistant.
// Implementations are best-effort; see internal/platform/gemini.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (*JudgeResult, error)
}
