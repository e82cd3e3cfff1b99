package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/glossa-api/internal/config"
	"github.com/phrazzld/glossa-api/internal/marking"
	"google.golang.org/genai"
)

// judgePromptTemplate frames the grading request. The model is told to
// return structured JSON; the response schema below enforces the shape.
const judgePromptTemplate = `You are a %s language tutor grading a learner's free-form answer.

Question: %s
Reference answer: %s
Grading criteria: %s

Learner's answer: %s

Score the learner's answer from 0 to 100 against the reference answer and
criteria. Award partial credit for answers that convey the right meaning
with minor errors. Provide a short rationale in English that a learner
would find helpful.`

// judgeResponseSchema constrains the judge's structured output to a score
// and rationale.
var judgeResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score": {
			Type:        genai.TypeInteger,
			Description: "Score from 0 to 100",
		},
		"rationale": {
			Type:        genai.TypeString,
			Description: "Short explanation of the score",
		},
	},
	Required: []string{"score", "rationale"},
}

// Judge implements the marking.Judge interface using Gemini to assess
// free-form answers against a reference.
type Judge struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewJudge creates a Gemini-backed judgment assistant. The client is
// shared-nothing with the synthesizer so either can be swapped out
// independently.
func NewJudge(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Judge, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Judge{
		logger: log.With(slog.String("component", "gemini_judge")),
		client: client,
		model:  cfg.ModelName,
	}, nil
}

var _ marking.Judge = (*Judge)(nil)

// Judge implements marking.Judge.
func (j *Judge) Judge(ctx context.Context, req marking.JudgeRequest) (*marking.JudgeResult, error) {
	prompt := fmt.Sprintf(judgePromptTemplate,
		req.TargetLanguage,
		req.Question,
		req.ReferenceAnswer,
		orDefault(req.Criteria, "meaning and grammatical accuracy"),
		req.SubmittedAnswer)

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	result, err := j.client.Models.GenerateContent(ctx, j.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   judgeResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marking.ErrJudgeUnavailable, err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", marking.ErrJudgeUnavailable)
	}

	var verdict struct {
		Score     int    `json:"score"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("%w: malformed verdict: %v", marking.ErrJudgeUnavailable, err)
	}
	if strings.TrimSpace(verdict.Rationale) == "" {
		return nil, fmt.Errorf("%w: verdict missing rationale", marking.ErrJudgeUnavailable)
	}

	return &marking.JudgeResult{
		Score:     verdict.Score,
		Rationale: verdict.Rationale,
	}, nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
