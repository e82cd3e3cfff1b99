// Package stats derives performance views from graded session events.
// Nothing here is stored: accuracy, per-skill breakdowns, and the CEFR
// estimate are always recomputed from the event history, so replaying the
// same events yields the same numbers.
package stats

import (
	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/domain"
)

// SchemaLookup resolves a modal schema by ID, used to map events to skill
// tags. Satisfied by *curriculum.Registry.
type SchemaLookup interface {
	GetSchema(id string) (*curriculum.ModalSchemaDefinition, error)
}

// skillUnknown tags events whose modal schema is no longer registered, so
// historical attempts still count toward overall accuracy.
const skillUnknown = "unknown"

// Performance computes the performance view over a set of graded events.
// Ungraded events are skipped; an event is counted as correct only when
// its mark says so. With no graded events, accuracy is zero and the CEFR
// estimate bottoms out.
func Performance(events []*domain.SessionEvent, schemas SchemaLookup) *domain.ModulePerformance {
	perf := &domain.ModulePerformance{
		BySkill: make(map[string]domain.SkillStats),
	}

	for _, event := range events {
		if !event.Graded() {
			continue
		}

		skill := skillUnknown
		if schema, err := schemas.GetSchema(event.ModalSchemaID); err == nil {
			skill = schema.SkillTag
		}

		perf.Overall.Total++
		s := perf.BySkill[skill]
		s.Total++
		if event.MarkData.IsCorrect {
			perf.Overall.Correct++
			s.Correct++
		}
		perf.BySkill[skill] = s
	}

	perf.Overall.Accuracy = accuracy(perf.Overall)
	for skill, s := range perf.BySkill {
		s.Accuracy = accuracy(s)
		perf.BySkill[skill] = s
	}
	perf.CEFRLevel = CEFRLevel(perf.Overall.Accuracy)

	return perf
}

// SessionSummary is the wrap-up shown when a session ends.
type SessionSummary struct {
	QuestionsIssued   int     `json:"questions_issued"`
	QuestionsAnswered int     `json:"questions_answered"`
	CorrectAnswers    int     `json:"correct_answers"`
	Accuracy          float64 `json:"accuracy"`
	TotalScore        int     `json:"total_score"`
}

// Summarize computes the end-of-session summary from the session's events.
// Issued counts every event; answered and correct count only graded ones.
func Summarize(events []*domain.SessionEvent) *SessionSummary {
	summary := &SessionSummary{QuestionsIssued: len(events)}

	for _, event := range events {
		if !event.Graded() {
			continue
		}
		summary.QuestionsAnswered++
		summary.TotalScore += event.MarkData.Score
		if event.MarkData.IsCorrect {
			summary.CorrectAnswers++
		}
	}

	if summary.QuestionsAnswered > 0 {
		summary.Accuracy = float64(summary.CorrectAnswers) / float64(summary.QuestionsAnswered) * 100
	}

	return summary
}

func accuracy(s domain.SkillStats) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}
