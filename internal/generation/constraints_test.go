package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/glossa-api/internal/curriculum"
)

// fakeSynthesizer replays a scripted sequence of responses.
type fakeSynthesizer struct {
	responses []json.RawMessage
	errs      []error
	requests  []SynthesisRequest
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req SynthesisRequest) (json.RawMessage, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("no scripted response")
}

func answerSchema(name string) *curriculum.ModalSchemaDefinition {
	return &curriculum.ModalSchemaDefinition{
		ID:             name,
		UIComponent:    "text_input",
		SkillTag:       "grammar",
		AnswerField:    "answer",
		PromptTemplate: "Write a {{.Difficulty}} {{.TargetLanguage}} question about {{.Focus}}. Vocabulary: {{.Vocabulary}}.",
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{"type": "string"},
				"answer": map[string]any{"type": "string"},
			},
			"required":             []any{"prompt", "answer"},
			"additionalProperties": false,
		},
	}
}

func testSubmodule() *curriculum.SubmoduleDefinition {
	return &curriculum.SubmoduleDefinition{
		ID:         "food-and-drink",
		Focus:      "food vocabulary",
		Vocabulary: []string{"das Brot", "der Apfel"},
	}
}

func TestResolveConstraintsLayering(t *testing.T) {
	svc := NewConstraintService(&fakeSynthesizer{}, "beginner", 0, nil)
	schema := answerSchema("layering-schema")

	sub := testSubmodule()
	c := svc.ResolveConstraints(sub, schema, nil)
	assert.Equal(t, "beginner", c.Difficulty, "service default applies when nothing overrides it")
	assert.Equal(t, sub.Vocabulary, c.Vocabulary)

	sub.DefaultDifficulty = "intermediate"
	c = svc.ResolveConstraints(sub, schema, nil)
	assert.Equal(t, "intermediate", c.Difficulty, "submodule default beats service default")

	sub.Overrides = map[string]curriculum.SchemaOverride{
		schema.ID: {Difficulty: "advanced"},
	}
	c = svc.ResolveConstraints(sub, schema, nil)
	assert.Equal(t, "advanced", c.Difficulty, "per-schema override beats submodule default")

	c = svc.ResolveConstraints(sub, schema, &Constraints{Difficulty: "beginner", ThemeHint: "breakfast"})
	assert.Equal(t, "beginner", c.Difficulty, "forced value beats everything")
	assert.Equal(t, "breakfast", c.ThemeHint)
}

func TestGenerateSuccessFirstAttempt(t *testing.T) {
	valid := json.RawMessage(`{"prompt": "Was ist das?", "answer": "das Brot"}`)
	synth := &fakeSynthesizer{responses: []json.RawMessage{valid}}
	svc := NewConstraintService(synth, "beginner", 0, nil)

	result, err := svc.Generate(context.Background(), testSubmodule(), answerSchema("gen-ok"), "de", "en", nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(valid), string(result.QuestionData))
	assert.Equal(t, "beginner", result.Constraints.Difficulty)

	require.Len(t, synth.requests, 1)
	prompt := synth.requests[0].Prompt
	assert.Contains(t, prompt, "beginner")
	assert.Contains(t, prompt, "de")
	assert.Contains(t, prompt, "das Brot, der Apfel")
}

func TestGenerateRetriesOnInvalidPayload(t *testing.T) {
	invalid := json.RawMessage(`{"prompt": "missing the answer field"}`)
	valid := json.RawMessage(`{"prompt": "Was ist das?", "answer": "das Brot"}`)
	synth := &fakeSynthesizer{responses: []json.RawMessage{invalid, valid}}
	svc := NewConstraintService(synth, "beginner", 0, nil)

	result, err := svc.Generate(context.Background(), testSubmodule(), answerSchema("gen-retry"), "de", "en", nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(valid), string(result.QuestionData))

	require.Len(t, synth.requests, 2)
	assert.True(t, strings.HasSuffix(synth.requests[1].Prompt, strictSuffix),
		"retry prompt should carry the stricter instruction")
}

func TestGenerateFailsAfterSecondInvalidPayload(t *testing.T) {
	invalid := json.RawMessage(`["not", "an", "object"]`)
	synth := &fakeSynthesizer{responses: []json.RawMessage{invalid, invalid}}
	svc := NewConstraintService(synth, "beginner", 0, nil)

	_, err := svc.Generate(context.Background(), testSubmodule(), answerSchema("gen-fail"), "de", "en", nil)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Len(t, synth.requests, 2, "exactly one retry, no more")
}

func TestGenerateRetriesOnTransientError(t *testing.T) {
	valid := json.RawMessage(`{"prompt": "Was ist das?", "answer": "das Brot"}`)
	synth := &fakeSynthesizer{
		errs:      []error{ErrTransientFailure, nil},
		responses: []json.RawMessage{nil, valid},
	}
	svc := NewConstraintService(synth, "beginner", 0, nil)

	result, err := svc.Generate(context.Background(), testSubmodule(), answerSchema("gen-transient"), "de", "en", nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(valid), string(result.QuestionData))
}

func TestGenerateHonorsRequestTimeout(t *testing.T) {
	synth := &slowSynthesizer{delay: 50 * time.Millisecond}
	svc := NewConstraintService(synth, "beginner", time.Millisecond, nil)

	_, err := svc.Generate(context.Background(), testSubmodule(), answerSchema("gen-timeout"), "de", "en", nil)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

// slowSynthesizer blocks until its context is canceled.
type slowSynthesizer struct {
	delay time.Duration
}

func (s *slowSynthesizer) Synthesize(ctx context.Context, _ SynthesisRequest) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return json.RawMessage(`{}`), nil
	}
}

func TestValidatePayload(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
		},
		"required": []any{"answer"},
	}

	assert.NoError(t, ValidatePayload("vp-ok", def, json.RawMessage(`{"answer": "ja"}`)))

	err := ValidatePayload("vp-missing", def, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrInvalidResponse)

	err = ValidatePayload("vp-garbage", def, json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
