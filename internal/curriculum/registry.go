package curriculum

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

//go:embed definitions/*.json
var definitionFS embed.FS

// Registry lookup errors. Callers translate these to domain-level
// not-found responses; they are never a crash after a successful Init.
var (
	ErrModuleNotFound    = errors.New("module not found")
	ErrSubmoduleNotFound = errors.New("submodule not found")
	ErrSchemaNotFound    = errors.New("modal schema not found")
)

// moduleKey identifies one ModuleDefinition.
type moduleKey struct {
	conceptID      string
	targetLanguage string
}

// Registry is the immutable catalog of module concepts, per-language module
// definitions, and modal schemas. Init loads the embedded definitions
// exactly once; concurrent first callers observe a single load, never a
// duplicate or partial catalog.
type Registry struct {
	initOnce sync.Once
	initErr  error

	concepts []ModuleConcept
	schemas  map[string]*ModalSchemaDefinition
	modules  map[moduleKey]*ModuleDefinition
}

// NewRegistry returns an uninitialized Registry. Call Init before use;
// read methods on an uninitialized registry return not-found.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*ModalSchemaDefinition),
		modules: make(map[moduleKey]*ModuleDefinition),
	}
}

// Init loads and validates all embedded definitions. It is idempotent:
// repeated or concurrent calls perform a single load and return the same
// result. A malformed definition file fails Init fatally so the registry
// never serves a partially-loaded catalog.
func (r *Registry) Init() error {
	r.initOnce.Do(func() {
		r.initErr = r.load()
		if r.initErr != nil {
			// Drop anything loaded before the failure.
			r.concepts = nil
			r.schemas = make(map[string]*ModalSchemaDefinition)
			r.modules = make(map[moduleKey]*ModuleDefinition)
		}
	})
	return r.initErr
}

func (r *Registry) load() error {
	if err := r.loadSchemas(); err != nil {
		return fmt.Errorf("failed to load modal schemas: %w", err)
	}
	if err := r.loadModules(); err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	return r.validate()
}

func (r *Registry) loadSchemas() error {
	raw, err := definitionFS.ReadFile("definitions/modal_schemas.json")
	if err != nil {
		return err
	}

	var schemas []*ModalSchemaDefinition
	if err := json.Unmarshal(raw, &schemas); err != nil {
		return err
	}

	for _, schema := range schemas {
		if schema.ID == "" {
			return errors.New("modal schema with empty id")
		}
		if _, exists := r.schemas[schema.ID]; exists {
			return fmt.Errorf("duplicate modal schema id %q", schema.ID)
		}
		if schema.PromptTemplate == "" {
			return fmt.Errorf("modal schema %q has no prompt template", schema.ID)
		}
		if len(schema.ResponseSchema) == 0 {
			return fmt.Errorf("modal schema %q has no response schema", schema.ID)
		}
		r.schemas[schema.ID] = schema
	}
	return nil
}

// modulesFile mirrors the layout of definitions/modules.json: concepts
// together with their per-target-language realizations.
type modulesFile struct {
	Concepts    []ModuleConcept     `json:"concepts"`
	Definitions []*ModuleDefinition `json:"definitions"`
}

func (r *Registry) loadModules() error {
	raw, err := definitionFS.ReadFile("definitions/modules.json")
	if err != nil {
		return err
	}

	var file modulesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return err
	}

	conceptIDs := make(map[string]bool, len(file.Concepts))
	for _, concept := range file.Concepts {
		if concept.ID == "" {
			return errors.New("module concept with empty id")
		}
		if conceptIDs[concept.ID] {
			return fmt.Errorf("duplicate module concept id %q", concept.ID)
		}
		conceptIDs[concept.ID] = true
	}
	r.concepts = file.Concepts

	for _, def := range file.Definitions {
		if !conceptIDs[def.ConceptID] {
			return fmt.Errorf("module definition references unknown concept %q", def.ConceptID)
		}
		if def.TargetLanguage == "" {
			return fmt.Errorf("module definition for concept %q has no target language", def.ConceptID)
		}
		if len(def.Submodules) == 0 {
			return fmt.Errorf("module %q (%s) has no submodules", def.ConceptID, def.TargetLanguage)
		}
		key := moduleKey{def.ConceptID, def.TargetLanguage}
		if _, exists := r.modules[key]; exists {
			return fmt.Errorf("duplicate module definition for concept %q target %q",
				def.ConceptID, def.TargetLanguage)
		}
		r.modules[key] = def
	}
	return nil
}

// validate enforces the cross-catalog invariants: every submodule's
// supported schema set is a subset of registered schemas, and every
// override key refers to a schema the submodule actually supports.
func (r *Registry) validate() error {
	for key, def := range r.modules {
		for _, sub := range def.Submodules {
			if sub.ID == "" {
				return fmt.Errorf("module %q (%s) has a submodule with empty id",
					key.conceptID, key.targetLanguage)
			}
			if len(sub.SupportedModalSchemaIDs) == 0 {
				return fmt.Errorf("submodule %q supports no modal schemas", sub.ID)
			}
			for _, schemaID := range sub.SupportedModalSchemaIDs {
				if _, ok := r.schemas[schemaID]; !ok {
					return fmt.Errorf("submodule %q references unregistered modal schema %q",
						sub.ID, schemaID)
				}
			}
			for overrideID := range sub.Overrides {
				if !sub.SupportsSchema(overrideID) {
					return fmt.Errorf("submodule %q has an override for unsupported schema %q",
						sub.ID, overrideID)
				}
			}
		}
	}
	return nil
}

// GetModule returns the module definition for the given concept and target
// language, or ErrModuleNotFound.
func (r *Registry) GetModule(conceptID, targetLanguage string) (*ModuleDefinition, error) {
	def, ok := r.modules[moduleKey{conceptID, targetLanguage}]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrModuleNotFound, conceptID, targetLanguage)
	}
	return def, nil
}

// GetSubmodule returns one submodule of a module definition, or
// ErrSubmoduleNotFound.
func (r *Registry) GetSubmodule(conceptID, targetLanguage, submoduleID string) (*SubmoduleDefinition, error) {
	def, err := r.GetModule(conceptID, targetLanguage)
	if err != nil {
		return nil, err
	}
	for i := range def.Submodules {
		if def.Submodules[i].ID == submoduleID {
			return &def.Submodules[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSubmoduleNotFound, submoduleID)
}

// GetSchema returns the modal schema definition with the given id, or
// ErrSchemaNotFound.
func (r *Registry) GetSchema(id string) (*ModalSchemaDefinition, error) {
	schema, ok := r.schemas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, id)
	}
	return schema, nil
}

// UniqueConcepts returns all module concepts in declaration order.
func (r *Registry) UniqueConcepts() []ModuleConcept {
	out := make([]ModuleConcept, len(r.concepts))
	copy(out, r.concepts)
	return out
}

// SchemaIDs returns the ids of all registered modal schemas.
func (r *Registry) SchemaIDs() []string {
	ids := make([]string, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	return ids
}
