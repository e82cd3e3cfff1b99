// Package picker implements the next-step selection policy for a learning
// session: which submodule and question style the learner should face
// next, given what they have already attempted and how well it went.
//
// The policy is deterministic. Unseen submodule/schema pairs are served
// first in the order the module declares them; once every pair has been
// seen, weaker pairs are revisited more often via an accuracy-derived
// weight, with a penalty on immediately repeating the previous pair. Ties
// break lexicographically so the same inputs always yield the same pick.
package picker

import (
	"errors"
	"fmt"

	"github.com/phrazzld/glossa-api/internal/config"
	"github.com/phrazzld/glossa-api/internal/curriculum"
)

// ErrNoCandidates indicates the module declares no submodule/schema pairs
// to pick from.
var ErrNoCandidates = errors.New("module has no candidate steps")

// Pair identifies a single selectable step: one submodule exercised
// through one modal schema.
type Pair struct {
	SubmoduleID   string
	ModalSchemaID string
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.SubmoduleID, p.ModalSchemaID)
}

// less orders pairs lexicographically by submodule then schema, the
// tie-break order for equal weights.
func (p Pair) less(other Pair) bool {
	if p.SubmoduleID != other.SubmoduleID {
		return p.SubmoduleID < other.SubmoduleID
	}
	return p.ModalSchemaID < other.ModalSchemaID
}

// Attempt is one graded history entry for the learner in this module.
type Attempt struct {
	Pair      Pair
	IsCorrect bool
}

// Picker selects the next step for a session. Selection weights come from
// engine configuration so the remediation bias is tunable without a
// rebuild.
type Picker struct {
	cfg config.EngineConfig
}

// New creates a Picker with the given engine tuning.
func New(cfg config.EngineConfig) *Picker {
	return &Picker{cfg: cfg}
}

// candidates enumerates the module's selectable pairs in declared order:
// submodules as listed, schemas as listed within each submodule.
func candidates(module *curriculum.ModuleDefinition) []Pair {
	var pairs []Pair
	for _, sub := range module.Submodules {
		for _, schemaID := range sub.SupportedModalSchemaIDs {
			pairs = append(pairs, Pair{
				SubmoduleID:   sub.ID,
				ModalSchemaID: schemaID,
			})
		}
	}
	return pairs
}

// pairStats aggregates attempts per pair.
type pairStats struct {
	total   int
	correct int
}

func (s pairStats) accuracy() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.correct) / float64(s.total) * 100
}

// Next returns the pair the learner should attempt next. History is the
// learner's graded attempts in this module, oldest first; previous is the
// pair of the most recent attempt in the current session, or nil at
// session start.
func (p *Picker) Next(module *curriculum.ModuleDefinition, history []Attempt, previous *Pair) (Pair, error) {
	pairs := candidates(module)
	if len(pairs) == 0 {
		return Pair{}, ErrNoCandidates
	}

	stats := make(map[Pair]pairStats, len(pairs))
	for _, a := range history {
		s := stats[a.Pair]
		s.total++
		if a.IsCorrect {
			s.correct++
		}
		stats[a.Pair] = s
	}

	// Coverage first: serve the earliest declared pair the learner has
	// never attempted.
	for _, pair := range pairs {
		if stats[pair].total == 0 {
			return pair, nil
		}
	}

	// Full coverage: weight each pair by how much remediation it needs.
	best := pairs[0]
	bestWeight := p.weight(stats[best], best, previous)
	for _, pair := range pairs[1:] {
		w := p.weight(stats[pair], pair, previous)
		if w > bestWeight || (w == bestWeight && pair.less(best)) {
			best = pair
			bestWeight = w
		}
	}
	return best, nil
}

// weight computes the selection weight for an already-seen pair. Lower
// accuracy raises the weight; repeating the previous pair lowers it.
func (p *Picker) weight(s pairStats, pair Pair, previous *Pair) float64 {
	w := 1 + (100-s.accuracy())/100*p.cfg.RemediationWeight
	if previous != nil && pair == *previous {
		w *= p.cfg.RecencyPenalty
	}
	if w < p.cfg.MinWeight {
		w = p.cfg.MinWeight
	}
	return w
}
