package marking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/phrazzld/glossa-api/internal/domain"
)

// exactMatchStrategy grades schemas whose canonical answer is a single
// string (true-false, multiple-choice, fill-in-blank): both sides are
// normalized, then compared for equality.
type exactMatchStrategy struct{}

func (exactMatchStrategy) mark(_ context.Context, in Input) (*domain.MarkResult, error) {
	canonical, err := decodeString(in.QuestionData, in.Schema.AnswerField)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}

	submitted, err := decodeString(in.UserAnswer, "answer")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}

	if normalize(submitted) == normalize(canonical) {
		return &domain.MarkResult{
			IsCorrect:     true,
			Score:         100,
			Feedback:      "Correct!",
			CorrectAnswer: canonical,
		}, nil
	}

	return &domain.MarkResult{
		IsCorrect:     false,
		Score:         0,
		Feedback:      fmt.Sprintf("Not quite. The expected answer was %q.", canonical),
		CorrectAnswer: canonical,
	}, nil
}

// multiItem mirrors the item shape in the multi-item response schema.
type multiItem struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Points int    `json:"points"`
}

// multiItemStrategy grades each sub-item independently and aggregates
// earned points over total points. The whole answer is correct only when
// every sub-item is.
type multiItemStrategy struct{}

func (multiItemStrategy) mark(_ context.Context, in Input) (*domain.MarkResult, error) {
	var question struct {
		Items []multiItem `json:"items"`
	}
	if err := json.Unmarshal(in.QuestionData, &question); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}
	if len(question.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrMalformedQuestion)
	}

	var answers []string
	if err := json.Unmarshal(in.UserAnswer, &answers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}

	earned, total := 0, 0
	correctCount := 0
	for i, item := range question.Items {
		points := item.Points
		if points < 1 {
			points = 1
		}
		total += points

		// Missing answers count as wrong.
		if i < len(answers) && normalize(answers[i]) == normalize(item.Answer) {
			earned += points
			correctCount++
		}
	}

	score := int(math.Round(float64(earned) / float64(total) * 100))
	allCorrect := correctCount == len(question.Items)

	feedback := fmt.Sprintf("You got %d of %d items right.", correctCount, len(question.Items))
	if allCorrect {
		feedback = "All items correct, well done!"
	}

	return &domain.MarkResult{
		IsCorrect: allCorrect,
		Score:     score,
		Feedback:  feedback,
	}, nil
}

// judgedCorrectThreshold is the judge score at or above which a free-form
// answer counts as correct.
const judgedCorrectThreshold = 80

// judgedStrategy delegates free-form answers to the external judgment
// assistant. Assistant failure is recoverable: grading falls back to a
// conservative lexical-overlap heuristic rather than failing the
// submission. The heuristic is a policy default, not a contract.
type judgedStrategy struct {
	judge  Judge
	logger *slog.Logger
}

func (s judgedStrategy) mark(ctx context.Context, in Input) (*domain.MarkResult, error) {
	var question struct {
		Prompt    string `json:"prompt"`
		Reference string `json:"reference_translation"`
		Criteria  string `json:"criteria"`
	}
	if err := json.Unmarshal(in.QuestionData, &question); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}
	if question.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference translation", ErrMalformedQuestion)
	}

	submitted, err := decodeString(in.UserAnswer, "answer")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}

	if s.judge != nil {
		verdict, judgeErr := s.judge.Judge(ctx, JudgeRequest{
			Question:        question.Prompt,
			Criteria:        question.Criteria,
			ReferenceAnswer: question.Reference,
			SubmittedAnswer: submitted,
			TargetLanguage:  in.TargetLanguage,
		})
		if judgeErr == nil {
			score := clampScore(verdict.Score)
			return &domain.MarkResult{
				IsCorrect:     score >= judgedCorrectThreshold,
				Score:         score,
				Feedback:      verdict.Rationale,
				CorrectAnswer: question.Reference,
			}, nil
		}
		s.logger.Warn("judgment assistant failed, using heuristic fallback",
			slog.String("error", judgeErr.Error()))
	}

	overlap := lexicalOverlap(question.Reference, submitted)
	score := int(math.Round(overlap * 100))

	return &domain.MarkResult{
		IsCorrect: overlap >= 0.999,
		Score:     score,
		Feedback: fmt.Sprintf(
			"Graded by word overlap with the reference translation (%d%% match). A tutor review may differ.",
			score),
		CorrectAnswer: question.Reference,
	}, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
