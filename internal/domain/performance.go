package domain

// SkillStats aggregates graded attempts for one skill tag.
type SkillStats struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// ModulePerformance is the derived performance view for one (user, module)
// pair, recomputed from the full event history rather than stored.
type ModulePerformance struct {
	Overall   SkillStats            `json:"overall"`
	BySkill   map[string]SkillStats `json:"by_skill"`
	CEFRLevel string                `json:"cefr_level"`
}
