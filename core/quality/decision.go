package quality

// Decision is the four-way quality gate outcome, totally ordered by
// severity: Reject is the most severe, Exemplary the least. A decision
// is always derived from the threshold policy, never chosen freely.
type Decision int

const (
	DecisionReject Decision = iota
	DecisionRetry
	DecisionAccept
	DecisionExemplary
)

var decisionNames = map[Decision]string{
	DecisionReject:    "reject",
	DecisionRetry:     "retry",
	DecisionAccept:    "accept",
	DecisionExemplary: "exemplary",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// ParseDecision maps one of the four valid labels to a Decision.
func ParseDecision(label string) (Decision, bool) {
	for d, name := range decisionNames {
		if name == label {
			return d, true
		}
	}
	return DecisionReject, false
}

// TierDistance is the absolute distance between two decisions on the
// severity ordering. The scorer rejects an LLM-proposed label that sits
// more than one tier from the policy-computed decision.
func TierDistance(a, b Decision) int {
	diff := int(a) - int(b)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// MarshalText encodes the decision label for cached assessments.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a decision label. Unknown labels decode to
// Reject so a corrupt cache entry can never upgrade a gate.
func (d *Decision) UnmarshalText(text []byte) error {
	parsed, _ := ParseDecision(string(text))
	*d = parsed
	return nil
}
