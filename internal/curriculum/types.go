package curriculum

// ModuleConcept is a language-agnostic curriculum topic. Concepts are
// immutable after registry load.
type ModuleConcept struct {
	ID                       string   `json:"id"`
	Title                    string   `json:"title"`
	SupportedSourceLanguages []string `json:"supported_source_languages"`
	SupportedTargetLanguages []string `json:"supported_target_languages"`
}

// ModuleDefinition realizes a ModuleConcept for one target language and
// owns an ordered sequence of submodules. At most one definition exists
// per (concept, target language) pair.
type ModuleDefinition struct {
	ConceptID      string                `json:"concept_id"`
	TargetLanguage string                `json:"target_language"`
	Submodules     []SubmoduleDefinition `json:"submodules"`
}

// SubmoduleDefinition is one sub-unit of a module: a pedagogical focus plus
// the set of modal schemas it can be practiced with. Titles are keyed by
// source language. Overrides customize a supported schema's behavior for
// this submodule; every override key must name a supported schema.
type SubmoduleDefinition struct {
	ID                      string                    `json:"id"`
	Titles                  map[string]string         `json:"titles"`
	Focus                   string                    `json:"focus"`
	GrammarFocus            string                    `json:"grammar_focus,omitempty"`
	Vocabulary              []string                  `json:"vocabulary,omitempty"`
	SupportedModalSchemaIDs []string                  `json:"supported_modal_schema_ids"`
	Overrides               map[string]SchemaOverride `json:"overrides,omitempty"`
	HelpResources           []string                  `json:"help_resources,omitempty"`
	DefaultDifficulty       string                    `json:"default_difficulty,omitempty"`
}

// SupportsSchema reports whether the submodule lists the given modal
// schema among its supported interaction types.
func (s *SubmoduleDefinition) SupportsSchema(schemaID string) bool {
	for _, id := range s.SupportedModalSchemaIDs {
		if id == schemaID {
			return true
		}
	}
	return false
}

// SchemaOverride carries per-submodule adjustments to a modal schema's
// defaults. Zero values mean "no override".
type SchemaOverride struct {
	Difficulty  string `json:"difficulty,omitempty"`
	UIComponent string `json:"ui_component,omitempty"`
	OptionCount int    `json:"option_count,omitempty"`
}

// ModalSchemaDefinition describes one interaction type: its UI binding,
// the structural shape generated question data must satisfy, and the
// generation configuration used to constrain the content synthesizer.
// The response schema is a statically declared JSON Schema document that
// both the synthesizer request builder and the validation step consume.
type ModalSchemaDefinition struct {
	ID             string         `json:"id"`
	UIComponent    string         `json:"ui_component"`
	SkillTag       string         `json:"skill_tag"`
	AnswerField    string         `json:"answer_field"`
	Judged         bool           `json:"judged,omitempty"`
	MultiItem      bool           `json:"multi_item,omitempty"`
	PromptTemplate string         `json:"prompt_template"`
	ResponseSchema map[string]any `json:"response_schema"`
}
