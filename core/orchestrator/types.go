// Package orchestrator is the engine's top level: it routes a request
// to departments, builds and executes the department plan, grades every
// specialist deliverable, and folds everything into one final
// recommendation.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/vennbeck/showrunner/core/aggregate"
	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/providers"
	"github.com/vennbeck/showrunner/core/quality"
)

var (
	// ErrNoRelevantDepartments indicates the router found nothing to do.
	ErrNoRelevantDepartments = errors.New("orchestrator: no relevant departments")

	// ErrDepartmentProducedNothing indicates no specialist output
	// survived grading.
	ErrDepartmentProducedNothing = errors.New("orchestrator: no specialist output accepted")
)

// Request is one unit of production work.
type Request struct {
	// ID identifies the request; generated when empty.
	ID string

	// ProjectSlug selects project context from the store, when one is
	// configured.
	ProjectSlug string

	// Text is the production request itself.
	Text string

	// Task and ExpectedOutcome sharpen the grading prompts.
	Task            string
	ExpectedOutcome string

	// Require forces departments into the plan.
	Require []departments.ID
}

// SpecialistOutcome classifies what happened to one specialist's
// deliverable.
type SpecialistOutcome int

const (
	// OutcomeDiscarded means the deliverable failed grading and was
	// dropped.
	OutcomeDiscarded SpecialistOutcome = iota
	// OutcomeAccepted means the deliverable passed grading.
	OutcomeAccepted
	// OutcomeFailed means generation or grading errored before a
	// decision could be made.
	OutcomeFailed
)

var specialistOutcomeNames = map[SpecialistOutcome]string{
	OutcomeDiscarded: "discarded",
	OutcomeAccepted:  "accepted",
	OutcomeFailed:    "failed",
}

func (o SpecialistOutcome) String() string {
	if name, ok := specialistOutcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// SpecialistGrading is one specialist's graded deliverable.
type SpecialistGrading struct {
	Specialist string              `json:"specialist"`
	Role       string              `json:"role"`
	Relevance  float64             `json:"relevance"`
	Outcome    SpecialistOutcome   `json:"-"`
	Revised    bool                `json:"revised,omitempty"`
	Assessment *quality.Assessment `json:"assessment,omitempty"`
	Output     string              `json:"-"`
	Err        error               `json:"-"`
}

// DepartmentReport is one department's contribution to the final
// result.
type DepartmentReport struct {
	Department  departments.ID      `json:"department"`
	Relevance   float64             `json:"relevance"`
	Status      string              `json:"status"`
	Quality     float64             `json:"quality"`
	Gradings    []SpecialistGrading `json:"gradings,omitempty"`
	Issues      []string            `json:"issues,omitempty"`
	Suggestions []string            `json:"suggestions,omitempty"`
}

// Result is the terminal aggregate for one request. Read-only after
// creation.
type Result struct {
	RequestID      string                   `json:"request_id"`
	Reports        []DepartmentReport       `json:"reports"`
	Completeness   float64                  `json:"completeness"`
	Consistency    float64                  `json:"consistency"`
	OverallQuality float64                  `json:"overall_quality"`
	Recommendation aggregate.Recommendation `json:"-"`
	Usage          providers.Usage          `json:"usage"`
	Duration       time.Duration            `json:"duration"`
}

// GenerationRequest asks a generator for one specialist deliverable.
type GenerationRequest struct {
	RequestID  string
	Project    string
	Department departments.ID
	Specialist departments.Specialist

	// Text is the user's production request.
	Text string

	// Context carries project context plus upstream department output.
	Context string

	// Suggestions is non-empty on a revision pass: the scorer's
	// suggestions from the first attempt.
	Suggestions []string
}

// Generator produces specialist deliverables. Generation backends are
// external collaborators; the engine only grades and gates what they
// return.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (string, error)

// Generate calls the function.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	return f(ctx, req)
}
