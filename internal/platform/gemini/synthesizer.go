package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/glossa-api/internal/config"
	"github.com/phrazzld/glossa-api/internal/generation"
	"google.golang.org/genai"
)

// Synthesizer implements the generation.Synthesizer interface using
// Google's Gemini API to generate question payloads.
type Synthesizer struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewSynthesizer creates a new Gemini-backed content synthesizer with the
// provided dependencies. Returns an error if the configuration is invalid
// or the client cannot be constructed.
func NewSynthesizer(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Synthesizer, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Synthesizer{
		logger: log.With(slog.String("component", "gemini_synthesizer")),
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Ensure Synthesizer implements generation.Synthesizer
var _ generation.Synthesizer = (*Synthesizer)(nil)

// Synthesize implements generation.Synthesizer. The response is requested
// as JSON constrained to the request's structural shape; structural
// validation stays with the caller.
func (s *Synthesizer) Synthesize(ctx context.Context, req generation.SynthesisRequest) (json.RawMessage, error) {
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if len(req.ResponseSchema) > 0 {
		genConfig.ResponseSchema = buildSchema(req.ResponseSchema)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.Prompt}},
	}}

	s.logger.DebugContext(ctx, "calling Gemini for question synthesis",
		slog.String("schema", req.SchemaName),
		slog.Int("prompt_length", len(req.Prompt)))

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", generation.ErrInvalidResponse)
	}

	return json.RawMessage(text), nil
}
