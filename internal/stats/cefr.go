package stats

// CEFR proficiency bands, coarsest first. "below-A1" marks accuracy too
// low to place on the scale proper.
const (
	LevelBelowA1 = "below-A1"
	LevelA1      = "A1"
	LevelA2      = "A2"
	LevelB1      = "B1"
	LevelB2      = "B2"
	LevelC1      = "C1"
	LevelC2      = "C2"
)

// CEFRLevel maps an overall accuracy percentage to an estimated CEFR band.
// The mapping is a fixed step function over accuracy; it is an estimate
// for learner-facing display, not a certification.
func CEFRLevel(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return LevelC2
	case accuracy >= 80:
		return LevelC1
	case accuracy >= 70:
		return LevelB2
	case accuracy >= 60:
		return LevelB1
	case accuracy >= 50:
		return LevelA2
	case accuracy >= 40:
		return LevelA1
	default:
		return LevelBelowA1
	}
}
