package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vennbeck/showrunner/core/aggregate"
	"github.com/vennbeck/showrunner/core/contextstore"
	"github.com/vennbeck/showrunner/core/plan"
	"github.com/vennbeck/showrunner/core/routing"
)

// Orchestrator coordinates the full request lifecycle: route → plan →
// execute → aggregate.
type Orchestrator struct {
	generator  Generator
	assessor   Assessor
	router     *routing.Router
	resolver   *plan.Resolver
	policy     plan.Policy
	aggregator *aggregate.Aggregator
	gatherer   *contextstore.Gatherer
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRouter replaces the default router.
func WithRouter(r *routing.Router) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.router = r
		}
	}
}

// WithExecutionPolicy overrides plan execution limits.
func WithExecutionPolicy(p plan.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithConsistencyChecker attaches a cross-department coherence checker
// (typically the brain client). Absent, the aggregator falls back to
// local consistency.
func WithConsistencyChecker(c aggregate.ConsistencyChecker) Option {
	return func(o *Orchestrator) {
		o.aggregator = aggregate.NewAggregator(aggregate.WithConsistencyChecker(c))
	}
}

// WithGatherer attaches a project-context gatherer.
func WithGatherer(g *contextstore.Gatherer) Option {
	return func(o *Orchestrator) { o.gatherer = g }
}

// WithLogger sets the orchestration logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator around a generator and an assessor. The
// generator produces specialist deliverables; the assessor grades them.
func New(generator Generator, assessor Assessor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:  generator,
		assessor:   assessor,
		router:     routing.NewRouter(),
		resolver:   plan.NewResolver(),
		policy:     plan.DefaultPolicy(),
		aggregator: aggregate.NewAggregator(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes one request to completion. Partial department failures
// are recorded in the result, not surfaced as errors; only structural
// failures (nothing routed, cyclic dependencies) and context
// cancellation error out.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	started := time.Now()

	baseContext := o.projectContext(ctx, req)

	scores := o.router.Route(routing.Request{
		ID:      req.ID,
		Text:    req.Text,
		Require: req.Require,
	})

	executionPlan, err := o.resolver.Build(req.ID, scores)
	if err != nil {
		if errors.Is(err, plan.ErrEmptyPlan) {
			return nil, fmt.Errorf("%w: %q", ErrNoRelevantDepartments, req.Text)
		}
		return nil, err
	}

	o.logger.Info("request routed",
		"request_id", req.ID,
		"departments", executionPlan.Size(),
		"tiers", len(executionPlan.Tiers),
	)

	runner := newDepartmentRunner(o.generator, o.assessor, req, baseContext)
	executor := plan.NewExecutor(o.policy)

	outcome, err := executor.Execute(ctx, executionPlan, runner)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: execution aborted: %w", err)
	}

	summary, err := o.aggregator.Aggregate(ctx, executionPlan, outcome)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RequestID:      req.ID,
		Reports:        o.assembleReports(scores, executionPlan, outcome, runner),
		Completeness:   summary.Completeness,
		Consistency:    summary.Consistency,
		OverallQuality: summary.OverallQuality,
		Recommendation: summary.Recommendation,
		Usage:          o.assessor.Usage(),
		Duration:       time.Since(started),
	}

	o.logger.Info("request complete",
		"request_id", req.ID,
		"completeness", result.Completeness,
		"overall_quality", result.OverallQuality,
		"recommendation", result.Recommendation.String(),
	)

	return result, nil
}

// projectContext loads project context when a gatherer and slug are
// present. Failure degrades to scoring without context.
func (o *Orchestrator) projectContext(ctx context.Context, req Request) string {
	if o.gatherer == nil || req.ProjectSlug == "" {
		return ""
	}
	block, err := o.gatherer.ProjectContext(ctx, req.ProjectSlug)
	if err != nil {
		o.logger.Warn("project context unavailable",
			"request_id", req.ID,
			"project", req.ProjectSlug,
			"error", err,
		)
		return ""
	}
	return block
}

// assembleReports produces one DepartmentReport per known department:
// routed ones from the runner and plan outcome, the rest as bare
// not_relevant entries.
func (o *Orchestrator) assembleReports(scores []routing.Score, p *plan.Plan, outcome *plan.Outcome, runner *departmentRunner) []DepartmentReport {
	reports := make([]DepartmentReport, 0, len(scores))

	for _, s := range scores {
		if s.Role == routing.RoleNotRelevant {
			reports = append(reports, DepartmentReport{
				Department: s.Department,
				Relevance:  s.Relevance,
				Status:     "not_relevant",
			})
			continue
		}

		if rep, ok := runner.report(s.Department); ok {
			reports = append(reports, *rep)
			continue
		}

		// The department never ran: skipped, or failed before the
		// runner could record anything.
		report := DepartmentReport{
			Department: s.Department,
			Relevance:  s.Relevance,
			Status:     "pending",
		}
		if result, ok := outcome.Results[s.Department]; ok {
			if result.State == plan.StateSkipped {
				report.Status = "skipped"
			}
			if result.Err != nil {
				report.Issues = append(report.Issues, result.Err.Error())
			}
		}
		reports = append(reports, report)
	}

	return reports
}
