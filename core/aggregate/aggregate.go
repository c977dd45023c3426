// Package aggregate folds per-department results into a single report:
// how complete the work is, how consistent the pieces are with each
// other, how good the whole is, and what to do with it.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/plan"
	"github.com/vennbeck/showrunner/core/routing"
)

// Recommendation says what the caller should do with the aggregate
// output.
type Recommendation int

const (
	// RecommendationDiscard rejects the output outright.
	RecommendationDiscard Recommendation = iota
	// RecommendationModify accepts the output but flags it for rework.
	RecommendationModify
	// RecommendationIngest accepts the output as-is.
	RecommendationIngest
)

var recommendationNames = map[Recommendation]string{
	RecommendationDiscard: "discard",
	RecommendationModify:  "modify",
	RecommendationIngest:  "ingest",
}

// String returns the string representation of a recommendation.
func (r Recommendation) String() string {
	if name, ok := recommendationNames[r]; ok {
		return name
	}
	return "unknown"
}

const (
	// ingestQualityFloor and ingestConsistencyFloor must both hold for
	// an ingest recommendation.
	ingestQualityFloor     = 0.75
	ingestConsistencyFloor = 0.75

	// modifyQualityFloor is the lower bound of the modify band.
	modifyQualityFloor = 0.5

	// primaryShare is the primary department's weight in the overall
	// quality when supporting departments exist.
	primaryShare = 0.5
)

// DepartmentSummary is one department's slice of the report.
type DepartmentSummary struct {
	Department  departments.ID `json:"department"`
	Role        routing.Role   `json:"role"`
	Relevance   float64        `json:"relevance"`
	Status      string         `json:"status"`
	Quality     float64        `json:"quality"`
	Consistency float64        `json:"consistency"`
	Weight      float64        `json:"weight"`
	Issues      []string       `json:"issues,omitempty"`
}

// Report is the aggregate view of one executed plan.
type Report struct {
	RequestID      string              `json:"request_id"`
	Completeness   float64             `json:"completeness"`
	Consistency    float64             `json:"consistency"`
	OverallQuality float64             `json:"overall_quality"`
	Recommendation Recommendation      `json:"-"`
	Departments    []DepartmentSummary `json:"departments"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// ConsistencyChecker validates cross-department coherence. The
// aggregator falls back to per-department self-consistency scores when
// no checker is available or the check fails.
type ConsistencyChecker interface {
	CheckCoherence(ctx context.Context, outputs map[departments.ID]string) (float64, error)
}

// Aggregator builds reports from plan outcomes.
type Aggregator struct {
	checker ConsistencyChecker
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConsistencyChecker attaches a cross-department coherence checker.
func WithConsistencyChecker(c ConsistencyChecker) Option {
	return func(a *Aggregator) { a.checker = c }
}

// NewAggregator creates an aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate summarizes an executed plan. Failed departments are
// reported as pending with an issue and contribute zero quality while
// keeping their weight, so an incomplete result cannot score as if the
// missing work did not matter.
func (a *Aggregator) Aggregate(ctx context.Context, p *plan.Plan, outcome *plan.Outcome) (*Report, error) {
	if p == nil || outcome == nil {
		return nil, fmt.Errorf("aggregate: nil plan or outcome")
	}

	summaries := buildSummaries(p, outcome)
	assignWeights(summaries)

	report := &Report{
		RequestID:    outcome.RequestID,
		Completeness: completeness(summaries),
		Departments:  summaries,
		GeneratedAt:  time.Now(),
	}

	report.OverallQuality = overallQuality(summaries)
	report.Consistency = a.consistency(ctx, summaries, outcome)
	report.Recommendation = recommend(report.OverallQuality, report.Consistency)

	return report, nil
}

func buildSummaries(p *plan.Plan, outcome *plan.Outcome) []DepartmentSummary {
	summaries := make([]DepartmentSummary, 0, len(p.Nodes))

	for _, tier := range p.Tiers {
		for _, id := range tier {
			node := p.Nodes[id]
			summary := DepartmentSummary{
				Department: id,
				Role:       node.Role,
				Relevance:  node.Relevance,
			}

			result := outcome.Results[id]
			switch {
			case result.Succeeded():
				summary.Status = "complete"
				if result.Assessment != nil {
					summary.Quality = result.Assessment.OverallScore / 100
					summary.Consistency = result.Assessment.Dimensions.Consistency / 100
					summary.Issues = result.Assessment.Issues
				}
			case result != nil && result.State == plan.StateSkipped:
				summary.Status = "pending"
				summary.Issues = []string{skipIssue(result)}
			default:
				summary.Status = "pending"
				summary.Issues = []string{failIssue(id, result)}
			}

			summaries = append(summaries, summary)
		}
	}
	return summaries
}

func skipIssue(result *plan.Result) string {
	if result.Err != nil {
		return fmt.Sprintf("%s skipped: %v", result.Department, result.Err)
	}
	return fmt.Sprintf("%s skipped", result.Department)
}

func failIssue(id departments.ID, result *plan.Result) string {
	if result != nil && result.Err != nil {
		return fmt.Sprintf("%s did not complete: %v", id, result.Err)
	}
	return fmt.Sprintf("%s did not complete", id)
}

// assignWeights gives the primary department half the overall weight
// and splits the rest across supporting departments in proportion to
// relevance. A plan with only a primary gives it full weight.
func assignWeights(summaries []DepartmentSummary) {
	supportingRelevance := 0.0
	primaryIdx := -1
	for i, s := range summaries {
		if s.Role == routing.RolePrimary {
			primaryIdx = i
			continue
		}
		supportingRelevance += s.Relevance
	}

	if primaryIdx >= 0 && (supportingRelevance == 0 || len(summaries) == 1) {
		summaries[primaryIdx].Weight = 1
		return
	}

	supportingShare := 1.0
	if primaryIdx >= 0 {
		summaries[primaryIdx].Weight = primaryShare
		supportingShare = 1 - primaryShare
	}

	for i := range summaries {
		if i == primaryIdx {
			continue
		}
		summaries[i].Weight = supportingShare * summaries[i].Relevance / supportingRelevance
	}
}

func completeness(summaries []DepartmentSummary) float64 {
	if len(summaries) == 0 {
		return 0
	}
	complete := 0
	for _, s := range summaries {
		if s.Status == "complete" {
			complete++
		}
	}
	return float64(complete) / float64(len(summaries))
}

func overallQuality(summaries []DepartmentSummary) float64 {
	weights := make([]float64, len(summaries))
	qualities := make([]float64, len(summaries))
	for i, s := range summaries {
		weights[i] = s.Weight
		if s.Status == "complete" {
			qualities[i] = s.Quality
		}
	}
	return floats.Dot(weights, qualities)
}

// consistency prefers the external coherence checker; otherwise it
// averages the completed departments' self-consistency scores.
func (a *Aggregator) consistency(ctx context.Context, summaries []DepartmentSummary, outcome *plan.Outcome) float64 {
	if a.checker != nil {
		outputs := make(map[departments.ID]string, len(outcome.Results))
		for id, result := range outcome.Results {
			if result.Succeeded() && result.Output != "" {
				outputs[id] = result.Output
			}
		}
		if len(outputs) > 0 {
			if score, err := a.checker.CheckCoherence(ctx, outputs); err == nil {
				return clampUnit(score)
			}
		}
	}

	sum, n := 0.0, 0
	for _, s := range summaries {
		if s.Status == "complete" {
			sum += s.Consistency
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func recommend(quality, consistency float64) Recommendation {
	switch {
	case quality >= ingestQualityFloor && consistency >= ingestConsistencyFloor:
		return RecommendationIngest
	case quality >= modifyQualityFloor:
		return RecommendationModify
	default:
		return RecommendationDiscard
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
