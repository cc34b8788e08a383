package domain

// Capability tags that mark wedding-class orders and drivers.
var WeddingTags = []string{"vip", "wedding", "large_events"}

// Capability tags that mark corporate-class orders and drivers.
var CorporateTags = []string{"corporate", "seminars"}

// Rules configures which violation kinds block acceptance and how
// attempts are scored when no attempt is fully feasible.
type Rules struct {
	// When true, every order must be assigned for a candidate to be
	// accepted (unmet-order becomes blocking).
	MandatoryCoverage bool

	// Per-kind weights for the weighted scorer. Lower total is better.
	Weights map[ViolationKind]int
}

// DefaultRules returns the standard rule set: coverage is best-effort
// and scoring weights favor fixing scheduling and capability problems
// before region preferences.
func DefaultRules() Rules {
	return Rules{
		MandatoryCoverage: false,
		Weights: map[ViolationKind]int{
			KindSchedulingConflict:  10000,
			KindRequirement:         5000,
			KindCapacity:            500,
			KindDuplicateAssignment: 500,
			KindUnknownEntity:       500,
			KindParseFailure:        500,
			KindRegion:              10,
			KindUnmetOrder:          100,
		},
	}
}

// Blocking reports whether a violation of the given kind prevents a
// candidate allocation from being accepted.
func (r Rules) Blocking(kind ViolationKind) bool {
	switch kind {
	case KindDuplicateAssignment, KindCapacity, KindSchedulingConflict,
		KindRequirement, KindUnknownEntity, KindParseFailure:
		return true
	case KindUnmetOrder:
		return r.MandatoryCoverage
	default:
		return false
	}
}

func hasAnyTag(have []string, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
