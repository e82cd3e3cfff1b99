package stats

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/domain"
)

// schemaMap is a SchemaLookup over a fixed set of schemas.
type schemaMap map[string]*curriculum.ModalSchemaDefinition

func (m schemaMap) GetSchema(id string) (*curriculum.ModalSchemaDefinition, error) {
	if schema, ok := m[id]; ok {
		return schema, nil
	}
	return nil, curriculum.ErrSchemaNotFound
}

func testSchemas() schemaMap {
	return schemaMap{
		"multiple-choice": {ID: "multiple-choice", SkillTag: "vocabulary"},
		"fill-in-blank":   {ID: "fill-in-blank", SkillTag: "grammar"},
	}
}

func gradedEvent(t *testing.T, schemaID string, correct bool) *domain.SessionEvent {
	t.Helper()
	event, err := domain.NewSessionEvent(
		uuid.New(), "food-and-drink", schemaID, json.RawMessage(`{"q": 1}`))
	require.NoError(t, err)

	score := 0
	if correct {
		score = 100
	}
	require.NoError(t, event.Complete(json.RawMessage(`"x"`), &domain.MarkResult{
		IsCorrect: correct,
		Score:     score,
		Feedback:  "graded",
	}))
	return event
}

func ungradedEvent(t *testing.T, schemaID string) *domain.SessionEvent {
	t.Helper()
	event, err := domain.NewSessionEvent(
		uuid.New(), "food-and-drink", schemaID, json.RawMessage(`{"q": 1}`))
	require.NoError(t, err)
	return event
}

func TestPerformanceComputesAccuracy(t *testing.T) {
	var events []*domain.SessionEvent
	for i := 0; i < 7; i++ {
		events = append(events, gradedEvent(t, "multiple-choice", true))
	}
	for i := 0; i < 3; i++ {
		events = append(events, gradedEvent(t, "fill-in-blank", false))
	}

	perf := Performance(events, testSchemas())

	assert.Equal(t, 10, perf.Overall.Total)
	assert.Equal(t, 7, perf.Overall.Correct)
	assert.InDelta(t, 70.0, perf.Overall.Accuracy, 0.001)
	assert.Equal(t, LevelB2, perf.CEFRLevel)
}

func TestPerformancePerSkillBreakdown(t *testing.T) {
	events := []*domain.SessionEvent{
		gradedEvent(t, "multiple-choice", true),
		gradedEvent(t, "multiple-choice", true),
		gradedEvent(t, "fill-in-blank", true),
		gradedEvent(t, "fill-in-blank", false),
	}

	perf := Performance(events, testSchemas())

	vocab := perf.BySkill["vocabulary"]
	assert.Equal(t, 2, vocab.Total)
	assert.InDelta(t, 100.0, vocab.Accuracy, 0.001)

	grammar := perf.BySkill["grammar"]
	assert.Equal(t, 2, grammar.Total)
	assert.InDelta(t, 50.0, grammar.Accuracy, 0.001)
}

func TestPerformanceSkipsUngradedEvents(t *testing.T) {
	events := []*domain.SessionEvent{
		gradedEvent(t, "multiple-choice", true),
		ungradedEvent(t, "multiple-choice"),
	}

	perf := Performance(events, testSchemas())
	assert.Equal(t, 1, perf.Overall.Total)
	assert.InDelta(t, 100.0, perf.Overall.Accuracy, 0.001)
}

func TestPerformanceUnknownSchemaStillCounts(t *testing.T) {
	events := []*domain.SessionEvent{
		gradedEvent(t, "retired-schema", true),
	}

	perf := Performance(events, testSchemas())
	assert.Equal(t, 1, perf.Overall.Total)
	assert.Equal(t, 1, perf.BySkill["unknown"].Total)
}

func TestPerformanceEmptyHistory(t *testing.T) {
	perf := Performance(nil, testSchemas())

	assert.Equal(t, 0, perf.Overall.Total)
	assert.Equal(t, 0.0, perf.Overall.Accuracy)
	assert.Equal(t, LevelBelowA1, perf.CEFRLevel)
}

func TestSummarize(t *testing.T) {
	events := []*domain.SessionEvent{
		gradedEvent(t, "multiple-choice", true),
		gradedEvent(t, "multiple-choice", false),
		gradedEvent(t, "fill-in-blank", true),
		ungradedEvent(t, "fill-in-blank"),
	}

	summary := Summarize(events)

	assert.Equal(t, 4, summary.QuestionsIssued)
	assert.Equal(t, 3, summary.QuestionsAnswered)
	assert.Equal(t, 2, summary.CorrectAnswers)
	assert.InDelta(t, 66.667, summary.Accuracy, 0.01)
	assert.Equal(t, 200, summary.TotalScore)
}

func TestSummarizeEmptySession(t *testing.T) {
	summary := Summarize(nil)

	assert.Equal(t, 0, summary.QuestionsIssued)
	assert.Equal(t, 0.0, summary.Accuracy)
}

func TestCEFRLevelThresholds(t *testing.T) {
	cases := []struct {
		accuracy float64
		want     string
	}{
		{0, LevelBelowA1},
		{39.9, LevelBelowA1},
		{40, LevelA1},
		{49.9, LevelA1},
		{50, LevelA2},
		{60, LevelB1},
		{70, LevelB2},
		{79.9, LevelB2},
		{80, LevelC1},
		{90, LevelC2},
		{100, LevelC2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CEFRLevel(tc.accuracy), fmt.Sprintf("accuracy %.1f", tc.accuracy))
	}
}

func TestCEFRLevelIsMonotonic(t *testing.T) {
	order := map[string]int{
		LevelBelowA1: 0, LevelA1: 1, LevelA2: 2, LevelB1: 3,
		LevelB2: 4, LevelC1: 5, LevelC2: 6,
	}

	prev := order[CEFRLevel(0)]
	for acc := 1.0; acc <= 100; acc++ {
		cur := order[CEFRLevel(acc)]
		assert.GreaterOrEqual(t, cur, prev, "level dropped at accuracy %.0f", acc)
		prev = cur
	}
}
