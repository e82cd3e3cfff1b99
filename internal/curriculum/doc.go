// Package curriculum holds the static content taxonomy: module concepts,
// their per-target-language module and submodule definitions, and the modal
// schema catalog (interaction types with their structural descriptors and
// generation configuration). Definitions are embedded in the binary and
// loaded exactly once into an immutable registry handle that is passed to
// every component by dependency injection.
package curriculum
