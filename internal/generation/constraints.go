package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/platform/logger"
)

// Constraints is the effective, resolved generation envelope for one
// question: difficulty plus vocabulary and theme hints. It is an ephemeral
// value object, never persisted; the service returns it alongside the
// payload as debug metadata for diagnostics and replay.
type Constraints struct {
	Difficulty   string   `json:"difficulty"`
	Vocabulary   []string `json:"vocabulary,omitempty"`
	GrammarFocus string   `json:"grammar_focus,omitempty"`
	ThemeHint    string   `json:"theme_hint,omitempty"`
}

// Result bundles a validated question payload with the constraints that
// produced it.
type Result struct {
	QuestionData json.RawMessage
	Constraints  Constraints
}

// strictSuffix is appended to the prompt on the validation retry.
const strictSuffix = "\n\nReturn ONLY a single JSON object that strictly matches the required fields. No markdown, no commentary, no extra fields."

// ConstraintService resolves effective constraints for a generation step,
// renders the modal schema's prompt template, invokes the synthesizer with
// a bounded timeout, and validates the structural result. A payload that
// fails validation gets exactly one stricter retry before the whole step
// fails with ErrGenerationFailed.
type ConstraintService struct {
	synth             Synthesizer
	defaultDifficulty string
	requestTimeout    time.Duration
	logger            *slog.Logger

	templateMu sync.Mutex
	templates  map[string]*template.Template
}

// NewConstraintService creates a new ConstraintService.
// requestTimeout bounds each synthesizer call; zero disables the bound.
func NewConstraintService(
	synth Synthesizer,
	defaultDifficulty string,
	requestTimeout time.Duration,
	log *slog.Logger,
) *ConstraintService {
	if synth == nil {
		panic("synth cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if defaultDifficulty == "" {
		defaultDifficulty = "beginner"
	}
	return &ConstraintService{
		synth:             synth,
		defaultDifficulty: defaultDifficulty,
		requestTimeout:    requestTimeout,
		logger:            log.With(slog.String("component", "constraint_service")),
		templates:         make(map[string]*template.Template),
	}
}

// ResolveConstraints applies the layering rules: submodule defaults first,
// then per-schema overrides, then caller-forced values. Forced values win,
// which makes deterministic replay possible without touching the random
// content synthesizer.
func (s *ConstraintService) ResolveConstraints(
	sub *curriculum.SubmoduleDefinition,
	schema *curriculum.ModalSchemaDefinition,
	forced *Constraints,
) Constraints {
	c := Constraints{
		Difficulty:   s.defaultDifficulty,
		Vocabulary:   sub.Vocabulary,
		GrammarFocus: sub.GrammarFocus,
	}

	if sub.DefaultDifficulty != "" {
		c.Difficulty = sub.DefaultDifficulty
	}
	if override, ok := sub.Overrides[schema.ID]; ok && override.Difficulty != "" {
		c.Difficulty = override.Difficulty
	}

	if forced != nil {
		if forced.Difficulty != "" {
			c.Difficulty = forced.Difficulty
		}
		if len(forced.Vocabulary) > 0 {
			c.Vocabulary = forced.Vocabulary
		}
		if forced.GrammarFocus != "" {
			c.GrammarFocus = forced.GrammarFocus
		}
		if forced.ThemeHint != "" {
			c.ThemeHint = forced.ThemeHint
		}
	}

	return c
}

// promptData is the template context for modal schema prompt templates.
type promptData struct {
	TargetLanguage string
	SourceLanguage string
	Difficulty     string
	Focus          string
	GrammarFocus   string
	Vocabulary     string
	ThemeHint      string
}

// Generate produces one validated question payload for the given step.
// On structural validation failure or a transient synthesizer error, it
// retries exactly once with a stricter prompt; a second failure surfaces
// ErrGenerationFailed.
func (s *ConstraintService) Generate(
	ctx context.Context,
	sub *curriculum.SubmoduleDefinition,
	schema *curriculum.ModalSchemaDefinition,
	targetLanguage, sourceLanguage string,
	forced *Constraints,
) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	constraints := s.ResolveConstraints(sub, schema, forced)

	prompt, err := s.renderPrompt(sub, schema, targetLanguage, sourceLanguage, constraints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	req := SynthesisRequest{
		Prompt:         prompt,
		SchemaName:     schema.ID,
		ResponseSchema: schema.ResponseSchema,
	}

	payload, err := s.synthesizeValidated(ctx, req)
	if err != nil {
		log.Warn("generation attempt failed, retrying with stricter prompt",
			slog.String("submodule_id", sub.ID),
			slog.String("modal_schema_id", schema.ID),
			slog.String("error", err.Error()))

		req.Prompt = prompt + strictSuffix
		payload, err = s.synthesizeValidated(ctx, req)
		if err != nil {
			log.Error("generation failed after retry",
				slog.String("submodule_id", sub.ID),
				slog.String("modal_schema_id", schema.ID),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}

	log.Debug("question generated",
		slog.String("submodule_id", sub.ID),
		slog.String("modal_schema_id", schema.ID),
		slog.String("difficulty", constraints.Difficulty))

	return &Result{QuestionData: payload, Constraints: constraints}, nil
}

// synthesizeValidated performs one synthesizer call under the configured
// timeout and validates the result structurally.
func (s *ConstraintService) synthesizeValidated(ctx context.Context, req SynthesisRequest) (json.RawMessage, error) {
	callCtx := ctx
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	payload, err := s.synth.Synthesize(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: synthesizer call timed out: %v", ErrTransientFailure, err)
		}
		return nil, err
	}

	if err := ValidatePayload(req.SchemaName, req.ResponseSchema, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *ConstraintService) renderPrompt(
	sub *curriculum.SubmoduleDefinition,
	schema *curriculum.ModalSchemaDefinition,
	targetLanguage, sourceLanguage string,
	constraints Constraints,
) (string, error) {
	tmpl, err := s.templateFor(schema)
	if err != nil {
		return "", err
	}

	data := promptData{
		TargetLanguage: targetLanguage,
		SourceLanguage: sourceLanguage,
		Difficulty:     constraints.Difficulty,
		Focus:          sub.Focus,
		GrammarFocus:   constraints.GrammarFocus,
		Vocabulary:     strings.Join(constraints.Vocabulary, ", "),
		ThemeHint:      constraints.ThemeHint,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template for schema %q: %w", schema.ID, err)
	}
	return buf.String(), nil
}

// templateFor parses and caches the modal schema's prompt template.
func (s *ConstraintService) templateFor(schema *curriculum.ModalSchemaDefinition) (*template.Template, error) {
	s.templateMu.Lock()
	defer s.templateMu.Unlock()

	if tmpl, ok := s.templates[schema.ID]; ok {
		return tmpl, nil
	}

	tmpl, err := template.New(schema.ID).Parse(schema.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template for schema %q: %w", schema.ID, err)
	}
	s.templates[schema.ID] = tmpl
	return tmpl, nil
}
