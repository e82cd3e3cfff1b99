// Package marking grades submitted answers against a question's canonical
// answers using per-modal-schema rules: normalized exact match for closed
// schemas, weighted sub-item aggregation for multi-item schemas, and
// judge-assisted grading with a conservative heuristic fallback for
// free-form schemas. Marking is a pure function of its inputs.
package marking
