package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/glossa-api/internal/api/middleware"
	"github.com/phrazzld/glossa-api/internal/api/shared"
	"github.com/phrazzld/glossa-api/internal/curriculum"
	"github.com/phrazzld/glossa-api/internal/service/session"
)

// LearningHandler handles session and module API requests.
type LearningHandler struct {
	sessionService session.Service
	registry       *curriculum.Registry
	validator      *validator.Validate
}

// NewLearningHandler creates a new LearningHandler with the given dependencies.
func NewLearningHandler(sessionService session.Service, registry *curriculum.Registry) *LearningHandler {
	return &LearningHandler{
		sessionService: sessionService,
		registry:       registry,
		validator:      validator.New(),
	}
}

// StartSession handles POST /learning/sessions.
func (h *LearningHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	result, err := h.sessionService.Start(r.Context(), userID, req.ConceptID, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, result)
}

// SubmitAnswer handles POST /learning/sessions/{id}/answers.
func (h *LearningHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req SubmitAnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(req.Answer) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Answer is required")
		return
	}

	result, err := h.sessionService.Submit(r.Context(), userID, sessionID, req.Answer)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// EndSession handles POST /learning/sessions/{id}/end.
func (h *LearningHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
		return
	}

	result, err := h.sessionService.End(r.Context(), userID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ListModules handles GET /learning/modules. The catalog comes straight
// from the registry and needs no per-user state.
func (h *LearningHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"modules": h.registry.UniqueConcepts(),
	})
}

// ModulePerformance handles GET /learning/modules/{id}/performance.
// The target language is a required query parameter because performance is
// tracked per (concept, target language) pair.
func (h *LearningHandler) ModulePerformance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	conceptID := chi.URLParam(r, "id")
	targetLanguage := r.URL.Query().Get("target_language")
	if targetLanguage == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "target_language query parameter is required")
		return
	}

	perf, err := h.sessionService.Performance(r.Context(), userID, conceptID, targetLanguage)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, perf)
}
