// Package gemini implements the external LLM collaborators on Google's
// Gemini API: the content synthesizer used by question generation and the
// best-effort judgment assistant used for free-form grading. Structured
// output is requested via response schemas so the model is constrained to
// the modal schema's field shape; callers still validate before trusting
// the payload.
package gemini
