package quality

// Level is the scope a threshold row applies to. Gates tighten as
// results roll up: a department aggregate is held to a higher minimum
// than a single specialist deliverable.
type Level int

const (
	LevelSpecialist Level = iota
	LevelDepartment
	LevelOverall
)

var levelNames = map[Level]string{
	LevelSpecialist: "specialist",
	LevelDepartment: "department",
	LevelOverall:    "overall",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Thresholds holds the strictly ascending score cutoffs for one level,
// plus the consistency cutoffs that can downgrade a decision.
type Thresholds struct {
	Minimum    float64
	Acceptable float64
	Good       float64
	Excellent  float64

	ConsistencyMinimum float64
	ConsistencyGood    float64
}

var thresholdTable = map[Level]Thresholds{
	LevelSpecialist: {
		Minimum: 60, Acceptable: 75, Good: 90, Excellent: 97,
		ConsistencyMinimum: 70, ConsistencyGood: 85,
	},
	LevelDepartment: {
		Minimum: 65, Acceptable: 78, Good: 90, Excellent: 97,
		ConsistencyMinimum: 72, ConsistencyGood: 85,
	},
	LevelOverall: {
		Minimum: 70, Acceptable: 80, Good: 92, Excellent: 98,
		ConsistencyMinimum: 75, ConsistencyGood: 88,
	},
}

// ThresholdsFor returns the threshold row for a level. Unknown levels
// get the specialist row, the loosest gate.
func ThresholdsFor(level Level) Thresholds {
	if t, ok := thresholdTable[level]; ok {
		return t
	}
	return thresholdTable[LevelSpecialist]
}

// Decide maps (overall score, consistency score) to a decision for the
// given level. The clauses are ordered: the reject check takes
// precedence over every other signal, and a consistency failure can
// only ever downgrade a decision, never upgrade one.
func Decide(overallScore, consistencyScore float64, level Level) Decision {
	t := ThresholdsFor(level)

	switch {
	case overallScore < t.Minimum:
		return DecisionReject
	case overallScore < t.Acceptable || consistencyScore < t.ConsistencyMinimum:
		return DecisionRetry
	case overallScore >= t.Good && consistencyScore >= t.ConsistencyGood:
		return DecisionExemplary
	default:
		return DecisionAccept
	}
}

// RequiresAttention is true exactly when the decision for the inputs is
// Reject or Retry.
func RequiresAttention(overallScore, consistencyScore float64, level Level) bool {
	d := Decide(overallScore, consistencyScore, level)
	return d == DecisionReject || d == DecisionRetry
}

// ScoreLabel returns the operator-facing band a score falls into.
func ScoreLabel(score float64, level Level) string {
	t := ThresholdsFor(level)
	switch {
	case score >= t.Excellent:
		return "excellent"
	case score >= t.Good:
		return "good"
	case score >= t.Acceptable:
		return "acceptable"
	case score >= t.Minimum:
		return "below acceptable"
	default:
		return "below minimum"
	}
}

// RecommendedAction maps a decision to the instruction shown to the
// operator alongside the grading.
func RecommendedAction(d Decision) string {
	switch d {
	case DecisionReject:
		return "cannot be used, regenerate with a different approach"
	case DecisionRetry:
		return "revise and resubmit with the listed issues addressed"
	case DecisionAccept:
		return "usable as delivered"
	case DecisionExemplary:
		return "usable as delivered, flag as a reference example"
	default:
		return "unknown decision"
	}
}
