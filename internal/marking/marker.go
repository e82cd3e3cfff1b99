package marking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/domain"
	"github.com/phrazzld/glossa-api/internal/platform/logger"
)

// Marking errors
var (
	// ErrUnsupportedSchema is returned when no grading rule exists for the
	// modal schema.
	ErrUnsupportedSchema = errors.New("no grading rule for modal schema")

	// ErrMalformedQuestion is returned when the question payload does not
	// contain the fields the grading rule needs.
	ErrMalformedQuestion = errors.New("question data missing required fields")

	// ErrMalformedAnswer is returned when the submitted answer payload
	// cannot be parsed for the schema's grading rule.
	ErrMalformedAnswer = errors.New("user answer has wrong shape for modal schema")
)

// Input carries everything needed to grade one submitted answer.
type Input struct {
	Schema         *curriculum.ModalSchemaDefinition
	QuestionData   json.RawMessage
	UserAnswer     json.RawMessage
	TargetLanguage string
	SourceLanguage string
}

// strategy grades one answer for a family of modal schemas.
type strategy interface {
	mark(ctx context.Context, in Input) (*domain.MarkResult, error)
}

// Marker routes each answer to the grading strategy for its modal schema.
type Marker struct {
	exact  strategy
	multi  strategy
	judged strategy
	logger *slog.Logger
}

// NewMarker creates a Marker. The judge may be nil, in which case
// free-form schemas always use the heuristic fallback.
func NewMarker(judge Judge, log *slog.Logger) *Marker {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "marker"))
	return &Marker{
		exact:  exactMatchStrategy{},
		multi:  multiItemStrategy{},
		judged: judgedStrategy{judge: judge, logger: log},
		logger: log,
	}
}

// Mark grades the submitted answer against the question's canonical
// answer(s) using the modal schema's rule. Marking is deterministic for
// non-judged schemas: identical inputs yield identical results.
func (m *Marker) Mark(ctx context.Context, in Input) (*domain.MarkResult, error) {
	if in.Schema == nil {
		return nil, ErrUnsupportedSchema
	}

	log := logger.FromContextOrDefault(ctx, m.logger)

	var (
		result *domain.MarkResult
		err    error
	)
	switch {
	case in.Schema.MultiItem:
		result, err = m.multi.mark(ctx, in)
	case in.Schema.Judged:
		result, err = m.judged.mark(ctx, in)
	default:
		result, err = m.exact.mark(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("grading produced invalid mark: %w", err)
	}

	log.Debug("answer marked",
		slog.String("modal_schema_id", in.Schema.ID),
		slog.Bool("is_correct", result.IsCorrect),
		slog.Int("score", result.Score))

	return result, nil
}

// decodeString accepts either a bare JSON string or an object wrapping the
// value under the given field name.
func decodeString(raw json.RawMessage, field string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	inner, ok := obj[field]
	if !ok {
		return "", fmt.Errorf("field %q not present", field)
	}
	if err := json.Unmarshal(inner, &s); err != nil {
		return "", err
	}
	return s, nil
}
