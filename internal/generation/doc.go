// Package generation turns a (submodule, modal schema, language pair,
// difficulty) tuple into a validated question payload. It resolves
// effective generation constraints, renders a bounded prompt for the
// external content synthesizer, and validates the structural shape of
// whatever comes back before anything else is allowed to trust it.
//
// The Synthesizer interface is the boundary to the external LLM service;
// see internal/platform/gemini for the production implementation.
package generation
