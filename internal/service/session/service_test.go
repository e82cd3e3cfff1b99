package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/glossa-api/internal/config"
	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/domain"
	"github.com/phrazzld/glossa-api/internal/generation"
	"github.com/phrazzld/glossa-api/internal/marking"
	"github.com/phrazzld/glossa-api/internal/picker"
	"github.com/phrazzld/glossa-api/internal/store"
)

// mockSessionStore is an in-memory store.SessionStore.
type mockSessionStore struct {
	sessions   map[uuid.UUID]*domain.LearningSession
	createErr  error
	updateErr  error
	numUpdates int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[uuid.UUID]*domain.LearningSession)}
}

func (m *mockSessionStore) Create(_ context.Context, s *domain.LearningSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *mockSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.LearningSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSessionStore) Update(_ context.Context, s *domain.LearningSession) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return store.ErrSessionNotFound
	}
	m.numUpdates++
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *mockSessionStore) WithTx(_ *sql.Tx) store.SessionStore { return m }

// mockEventStore is an in-memory store.EventStore. Complete mirrors the
// postgres store's write-once contract: a graded event rejects a second
// mark. latestOverride, when set, is returned by GetLatest in place of the
// real latest event, standing in for a snapshot read that went stale while
// a racing request committed.
type mockEventStore struct {
	events         []*domain.SessionEvent
	createErr      error
	latestOverride *domain.SessionEvent
}

func (m *mockEventStore) Create(_ context.Context, e *domain.SessionEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *e
	m.events = append(m.events, &copied)
	return nil
}

func (m *mockEventStore) Complete(_ context.Context, e *domain.SessionEvent) error {
	for i, existing := range m.events {
		if existing.ID == e.ID {
			if existing.Graded() {
				return store.ErrEventAlreadyGraded
			}
			copied := *e
			m.events[i] = &copied
			return nil
		}
	}
	return store.ErrEventNotFound
}

func (m *mockEventStore) GetLatest(_ context.Context, sessionID uuid.UUID) (*domain.SessionEvent, error) {
	if m.latestOverride != nil {
		copied := *m.latestOverride
		return &copied, nil
	}
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].SessionID == sessionID {
			copied := *m.events[i]
			return &copied, nil
		}
	}
	return nil, store.ErrEventNotFound
}

func (m *mockEventStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*domain.SessionEvent, error) {
	var out []*domain.SessionEvent
	for _, e := range m.events {
		if e.SessionID == sessionID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockEventStore) ListByUserModule(_ context.Context, _ uuid.UUID, _, _ string) ([]*domain.SessionEvent, error) {
	out := make([]*domain.SessionEvent, 0, len(m.events))
	for _, e := range m.events {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockEventStore) WithTx(_ *sql.Tx) store.EventStore { return m }

// scriptedGenerator returns a fixed payload per modal schema, or an error.
type scriptedGenerator struct {
	err      error
	payloads map[string]json.RawMessage
	calls    int
}

func (g *scriptedGenerator) Generate(
	_ context.Context,
	_ *curriculum.SubmoduleDefinition,
	schema *curriculum.ModalSchemaDefinition,
	_, _ string,
	_ *generation.Constraints,
) (*generation.Result, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	payload, ok := g.payloads[schema.ID]
	if !ok {
		payload = json.RawMessage(`{"prompt": "Was ist das?", "answer": "das Brot"}`)
	}
	return &generation.Result{QuestionData: payload}, nil
}

type fixture struct {
	svc      *serviceImpl
	sessions *mockSessionStore
	events   *mockEventStore
	gen      *scriptedGenerator
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := curriculum.NewRegistry()
	require.NoError(t, registry.Init())

	sessions := newMockSessionStore()
	events := &mockEventStore{}
	gen := &scriptedGenerator{payloads: map[string]json.RawMessage{}}

	svc := &serviceImpl{
		sessions:  sessions,
		events:    events,
		registry:  registry,
		generator: gen,
		marker:    marking.NewMarker(nil, nil),
		picker: picker.New(config.EngineConfig{
			RemediationWeight: 2.0,
			MinWeight:         0.05,
			RecencyPenalty:    0.25,
			DefaultDifficulty: "beginner",
		}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		runTx: func(ctx context.Context, _ *sql.DB, fn store.TxFn) error {
			return fn(ctx, nil)
		},
	}

	return &fixture{
		svc:      svc,
		sessions: sessions,
		events:   events,
		gen:      gen,
		userID:   uuid.New(),
	}
}

func startSession(t *testing.T, f *fixture) *StartResult {
	t.Helper()
	result, err := f.svc.Start(context.Background(), f.userID, "everyday-vocabulary", "de", "en")
	require.NoError(t, err)
	return result
}

func TestStartIssuesFirstDeclaredStep(t *testing.T) {
	f := newFixture(t)

	result := startSession(t, f)

	assert.Equal(t, f.userID, result.Session.UserID)
	assert.Equal(t, "everyday-vocabulary", result.Session.ModuleID)
	assert.False(t, result.Session.Ended())

	require.NotNil(t, result.Question)
	assert.Equal(t, "food-and-drink", result.Question.SubmoduleID)
	assert.Equal(t, "multiple-choice", result.Question.ModalSchemaID)
	assert.NotEmpty(t, result.Question.UIComponent)

	// Session and first event persisted together.
	assert.Len(t, f.sessions.sessions, 1)
	require.Len(t, f.events.events, 1)
	assert.False(t, f.events.events[0].Graded())
}

func TestStartUnknownModule(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), f.userID, "nonexistent", "de", "en")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	_, err = f.svc.Start(context.Background(), f.userID, "everyday-vocabulary", "fr", "en")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestStartGenerationFailureLeavesNoState(t *testing.T) {
	f := newFixture(t)
	f.gen.err = generation.ErrGenerationFailed

	_, err := f.svc.Start(context.Background(), f.userID, "everyday-vocabulary", "de", "en")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.Empty(t, f.sessions.sessions)
	assert.Empty(t, f.events.events)
}

func TestSubmitGradesAndAdvances(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	result, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	require.NoError(t, err)

	require.NotNil(t, result.Mark)
	assert.True(t, result.Mark.IsCorrect)
	assert.Equal(t, 100, result.Mark.Score)

	// The next step covers a pair the learner has not seen yet.
	require.NotNil(t, result.Next)
	assert.Equal(t, "food-and-drink", result.Next.SubmoduleID)
	assert.Equal(t, "fill-in-blank", result.Next.ModalSchemaID)

	// Grade and next question persisted atomically.
	require.Len(t, f.events.events, 2)
	assert.True(t, f.events.events[0].Graded())
	assert.False(t, f.events.events[1].Graded())
}

func TestSubmitWrongAnswer(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	result, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"der Käse"`))
	require.NoError(t, err)

	assert.False(t, result.Mark.IsCorrect)
	assert.Equal(t, 0, result.Mark.Score)
	assert.Equal(t, "das Brot", result.Mark.CorrectAnswer)
}

func TestSubmitSessionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), f.userID, uuid.New(), json.RawMessage(`"x"`))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitSessionNotOwned(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	_, err := f.svc.Submit(context.Background(), uuid.New(), started.Session.ID,
		json.RawMessage(`"das Brot"`))
	assert.ErrorIs(t, err, ErrSessionNotOwned)
}

func TestSubmitEndedSession(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	_, err := f.svc.End(context.Background(), f.userID, started.Session.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestSubmitAlreadyGradedQuestion(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	// Grade the live question directly in the store, simulating a racing
	// submission that committed first.
	require.NoError(t, f.events.events[0].Complete(
		json.RawMessage(`"das Brot"`),
		&domain.MarkResult{IsCorrect: true, Score: 100, Feedback: "Correct!"}))

	_, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	assert.ErrorIs(t, err, ErrNoLiveQuestion)
}

func TestSubmitGenerationFailureLeavesQuestionAnswerable(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	f.gen.err = generation.ErrTransientFailure
	_, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	assert.ErrorIs(t, err, ErrGenerationUnavailable)

	// Nothing committed: the live question is still ungraded.
	require.Len(t, f.events.events, 1)
	assert.False(t, f.events.events[0].Graded())

	// Once generation recovers, the same answer goes through.
	f.gen.err = nil
	result, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	require.NoError(t, err)
	assert.True(t, result.Mark.IsCorrect)
}

func TestSubmitMalformedAnswer(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	_, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`12345`))
	assert.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestEndComputesSummaryAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	_, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	require.NoError(t, err)

	first, err := f.svc.End(context.Background(), f.userID, started.Session.ID)
	require.NoError(t, err)
	assert.True(t, first.Session.Ended())
	assert.Equal(t, 2, first.Summary.QuestionsIssued)
	assert.Equal(t, 1, first.Summary.QuestionsAnswered)
	assert.Equal(t, 1, first.Summary.CorrectAnswers)
	assert.Equal(t, 1, f.sessions.numUpdates)

	second, err := f.svc.End(context.Background(), f.userID, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, f.sessions.numUpdates, "repeated end must not update the session again")
}

func TestEndSessionNotOwned(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	_, err := f.svc.End(context.Background(), uuid.New(), started.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotOwned)
}

func TestPerformanceAggregatesHistory(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	_, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	require.NoError(t, err)

	perf, err := f.svc.Performance(context.Background(), f.userID, "everyday-vocabulary", "de")
	require.NoError(t, err)
	assert.Equal(t, 1, perf.Overall.Total)
	assert.Equal(t, 1, perf.Overall.Correct)
	assert.NotEmpty(t, perf.CEFRLevel)
}

func TestPerformanceUnknownModule(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Performance(context.Background(), f.userID, "nonexistent", "de")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestSubmitConcurrentDoubleSubmit(t *testing.T) {
	f := newFixture(t)
	started := startSession(t, f)

	// Snapshot the live question as a racing request would see it: still
	// ungraded, read before the winning submission commits.
	staleLive := *f.events.events[0]

	_, err := f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"das Brot"`))
	require.NoError(t, err)

	// The losing request proceeds on its stale snapshot. The conditional
	// write in the store must reject the second mark.
	f.events.latestOverride = &staleLive
	_, err = f.svc.Submit(context.Background(), f.userID, started.Session.ID,
		json.RawMessage(`"der Käse"`))
	assert.ErrorIs(t, err, ErrNoLiveQuestion)

	// The winner's mark stands and no extra question was issued.
	require.Len(t, f.events.events, 2)
	require.True(t, f.events.events[0].Graded())
	assert.True(t, f.events.events[0].MarkData.IsCorrect)
	assert.JSONEq(t, `"das Brot"`, string(f.events.events[0].UserAnswer))
}

func TestIssueStepRejectsUnsupportedSchemaPair(t *testing.T) {
	f := newFixture(t)

	session, err := domain.NewLearningSession(f.userID, "everyday-vocabulary", "de", "en")
	require.NoError(t, err)

	// A module definition that disagrees with the registry: the registry's
	// food-and-drink submodule does not support free-translation.
	module := &curriculum.ModuleDefinition{
		ConceptID:      "everyday-vocabulary",
		TargetLanguage: "de",
		Submodules: []curriculum.SubmoduleDefinition{
			{ID: "food-and-drink", SupportedModalSchemaIDs: []string{"free-translation"}},
		},
	}

	_, _, err = f.svc.issueStepFromAttempts(context.Background(), session, module, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
	assert.Empty(t, f.events.events, "no event may be recorded for an unsupported pair")
}
