package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/plan"
	"github.com/vennbeck/showrunner/core/providers"
	"github.com/vennbeck/showrunner/core/quality"
	"github.com/vennbeck/showrunner/core/scoring"
)

// Assessor grades content. *scoring.Scorer satisfies it.
type Assessor interface {
	Assess(ctx context.Context, req scoring.AssessRequest) (*quality.Assessment, error)
	Usage() providers.Usage
}

// departmentRunner executes one department: run its specialist roster,
// grade each deliverable, give RETRY deliverables one revision pass,
// and roll accepted work into a department-level result. Reports are
// recorded even when the department fails, so the final assembly can
// show what was attempted.
type departmentRunner struct {
	generator   Generator
	assessor    Assessor
	request     Request
	baseContext string

	mu      sync.Mutex
	reports map[departments.ID]*DepartmentReport
}

func newDepartmentRunner(generator Generator, assessor Assessor, request Request, baseContext string) *departmentRunner {
	return &departmentRunner{
		generator:   generator,
		assessor:    assessor,
		request:     request,
		baseContext: baseContext,
		reports:     make(map[departments.ID]*DepartmentReport),
	}
}

// RunDepartment implements plan.Runner.
func (r *departmentRunner) RunDepartment(ctx context.Context, node *plan.Node, upstream map[departments.ID]*plan.Result) (*plan.Result, error) {
	def, ok := departments.Lookup(node.Department)
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown department %q", node.Department)
	}

	deptContext := r.contextFor(upstream)

	report := &DepartmentReport{
		Department: node.Department,
		Relevance:  node.Relevance,
		Gradings:   make([]SpecialistGrading, 0, len(def.Specialists)),
	}

	for _, specialist := range def.Specialists {
		if ctx.Err() != nil {
			break
		}
		grading := r.gradeSpecialist(ctx, node.Department, specialist, deptContext)
		report.Gradings = append(report.Gradings, grading)
	}

	accepted := collectAccepted(report.Gradings)
	rollUp(report)

	if len(accepted) == 0 {
		report.Status = "pending"
		report.Issues = append(report.Issues,
			fmt.Sprintf("%s: no specialist deliverable passed grading", node.Department))
		r.record(report)
		return nil, fmt.Errorf("%w: %s", ErrDepartmentProducedNothing, node.Department)
	}

	score, consistency := departmentAggregate(accepted)
	report.Status = "complete"
	report.Quality = score / 100

	assessment := &quality.Assessment{
		Department:   node.Department,
		Level:        quality.LevelDepartment,
		Dimensions:   quality.Dimensions{Consistency: consistency},
		OverallScore: score,
		Decision:     quality.Decide(score, consistency, quality.LevelDepartment),
	}

	r.record(report)

	return &plan.Result{
		Department: node.Department,
		State:      plan.StateComplete,
		Output:     combinedOutput(accepted),
		Assessment: assessment,
		Issues:     report.Issues,
	}, nil
}

// gradeSpecialist runs generate → assess, with a single revision pass
// when the scorer asks for a retry.
func (r *departmentRunner) gradeSpecialist(ctx context.Context, dept departments.ID, specialist departments.Specialist, deptContext string) SpecialistGrading {
	grading := SpecialistGrading{
		Specialist: specialist.ID,
		Role:       specialist.Role,
		Relevance:  specialist.Relevance,
	}

	output, assessment, err := r.generateAndAssess(ctx, dept, specialist, deptContext, nil)
	if err != nil {
		grading.Outcome = OutcomeFailed
		grading.Err = err
		return grading
	}
	grading.Output = output
	grading.Assessment = assessment

	switch assessment.Decision {
	case quality.DecisionAccept, quality.DecisionExemplary:
		grading.Outcome = OutcomeAccepted
		return grading
	case quality.DecisionRetry:
		// One revision with the scorer's suggestions; a second miss
		// discards the deliverable.
		revised, reassessment, err := r.generateAndAssess(ctx, dept, specialist, deptContext, assessment.Suggestions)
		if err != nil {
			grading.Outcome = OutcomeDiscarded
			grading.Err = err
			return grading
		}
		grading.Revised = true
		grading.Output = revised
		grading.Assessment = reassessment
		if reassessment.Decision >= quality.DecisionAccept {
			grading.Outcome = OutcomeAccepted
		} else {
			grading.Outcome = OutcomeDiscarded
		}
		return grading
	default:
		grading.Outcome = OutcomeDiscarded
		return grading
	}
}

func (r *departmentRunner) generateAndAssess(ctx context.Context, dept departments.ID, specialist departments.Specialist, deptContext string, suggestions []string) (string, *quality.Assessment, error) {
	output, err := r.generator.Generate(ctx, GenerationRequest{
		RequestID:   r.request.ID,
		Project:     r.request.ProjectSlug,
		Department:  dept,
		Specialist:  specialist,
		Text:        r.request.Text,
		Context:     deptContext,
		Suggestions: suggestions,
	})
	if err != nil {
		return "", nil, fmt.Errorf("generate %s/%s: %w", dept, specialist.ID, err)
	}

	assessment, err := r.assessor.Assess(ctx, scoring.AssessRequest{
		Content:         output,
		Department:      dept,
		Task:            r.request.Task,
		ExpectedOutcome: r.request.ExpectedOutcome,
		ProjectContext:  deptContext,
		Level:           quality.LevelSpecialist,
	})
	if err != nil {
		return "", nil, fmt.Errorf("assess %s/%s: %w", dept, specialist.ID, err)
	}
	return output, assessment, nil
}

// contextFor extends the project context with completed upstream
// department output.
func (r *departmentRunner) contextFor(upstream map[departments.ID]*plan.Result) string {
	if len(upstream) == 0 {
		return r.baseContext
	}

	var b strings.Builder
	b.WriteString(r.baseContext)
	b.WriteString("\n\nUpstream deliverables:\n")
	for _, id := range departments.IDs() {
		result, ok := upstream[id]
		if !ok || result.Output == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n", id, result.Output)
	}
	return b.String()
}

func (r *departmentRunner) record(report *DepartmentReport) {
	r.mu.Lock()
	r.reports[report.Department] = report
	r.mu.Unlock()
}

func (r *departmentRunner) report(id departments.ID) (*DepartmentReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	return rep, ok
}

func collectAccepted(gradings []SpecialistGrading) []SpecialistGrading {
	accepted := make([]SpecialistGrading, 0, len(gradings))
	for _, g := range gradings {
		if g.Outcome == OutcomeAccepted {
			accepted = append(accepted, g)
		}
	}
	return accepted
}

// departmentAggregate computes the department score and consistency as
// the relevance-weighted mean of accepted specialist assessments. All
// relevances zero means an unweighted mean.
func departmentAggregate(accepted []SpecialistGrading) (score, consistency float64) {
	totalWeight := 0.0
	for _, g := range accepted {
		totalWeight += g.Relevance
	}

	for _, g := range accepted {
		weight := g.Relevance
		if totalWeight == 0 {
			weight = 1
		}
		score += weight * g.Assessment.OverallScore
		consistency += weight * g.Assessment.Dimensions.Consistency
	}

	divisor := totalWeight
	if divisor == 0 {
		divisor = float64(len(accepted))
	}
	return score / divisor, consistency / divisor
}

func combinedOutput(accepted []SpecialistGrading) string {
	parts := make([]string, 0, len(accepted))
	for _, g := range accepted {
		parts = append(parts, g.Output)
	}
	return strings.Join(parts, "\n\n")
}

// rollUp merges graded issues and suggestions onto the report.
func rollUp(report *DepartmentReport) {
	for _, g := range report.Gradings {
		if g.Err != nil {
			report.Issues = append(report.Issues,
				fmt.Sprintf("%s: %v", g.Specialist, g.Err))
		}
		if g.Assessment == nil {
			continue
		}
		report.Issues = append(report.Issues, g.Assessment.Issues...)
		if g.Outcome != OutcomeAccepted {
			report.Suggestions = append(report.Suggestions, g.Assessment.Suggestions...)
		}
	}
}
