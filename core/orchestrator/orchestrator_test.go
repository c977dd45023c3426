package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vennbeck/showrunner/core/aggregate"
	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/orchestrator"
	"github.com/vennbeck/showrunner/core/providers"
	"github.com/vennbeck/showrunner/core/quality"
	"github.com/vennbeck/showrunner/core/routing"
	"github.com/vennbeck/showrunner/core/scoring"
)

// fixedRouter routes exactly the given departments, first as primary.
func fixedRouter(ids ...departments.ID) *routing.Router {
	return routing.NewRouter(routing.WithRelevanceFunc(
		func(req routing.Request, def departments.Definition) float64 {
			for i, id := range ids {
				if def.ID == id {
					return 1.0 - 0.1*float64(i)
				}
			}
			return 0
		},
	))
}

// fakeGenerator returns canned content and records every request.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []orchestrator.GenerationRequest
	fail     map[departments.ID]error
}

func (g *fakeGenerator) Generate(_ context.Context, req orchestrator.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if err, ok := g.fail[req.Department]; ok {
		return "", err
	}
	return "deliverable from " + req.Specialist.ID, nil
}

func (g *fakeGenerator) recorded() []orchestrator.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]orchestrator.GenerationRequest(nil), g.requests...)
}

// fakeAssessor consumes a scripted decision sequence per department;
// when the script runs out it keeps accepting.
type fakeAssessor struct {
	mu        sync.Mutex
	decisions map[departments.ID][]quality.Decision
	calls     []scoring.AssessRequest
}

func (a *fakeAssessor) Assess(_ context.Context, req scoring.AssessRequest) (*quality.Assessment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)

	decision := quality.DecisionAccept
	if queue := a.decisions[req.Department]; len(queue) > 0 {
		decision = queue[0]
		a.decisions[req.Department] = queue[1:]
	}

	score, cons := 85.0, 85.0
	switch decision {
	case quality.DecisionExemplary:
		score, cons = 95, 95
	case quality.DecisionRetry:
		score, cons = 70, 80
	case quality.DecisionReject:
		score, cons = 40, 40
	}

	return &quality.Assessment{
		Department:   req.Department,
		Level:        req.Level,
		Dimensions:   quality.Dimensions{Consistency: cons, Confidence: score, Completeness: score, Relevance: score},
		OverallScore: score,
		Decision:     decision,
		Confidence:   0.9,
		Suggestions:  []string{"tighten the middle"},
		AssessedAt:   time.Now(),
	}, nil
}

func (a *fakeAssessor) Usage() providers.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return providers.Usage{TotalTokens: 10 * len(a.calls)}
}

func (a *fakeAssessor) assessed() []scoring.AssessRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]scoring.AssessRequest(nil), a.calls...)
}

func reportFor(t *testing.T, result *orchestrator.Result, id departments.ID) orchestrator.DepartmentReport {
	t.Helper()
	for _, rep := range result.Reports {
		if rep.Department == id {
			return rep
		}
	}
	t.Fatalf("no report for department %s", id)
	return orchestrator.DepartmentReport{}
}

func TestRunHappyPath(t *testing.T) {
	generator := &fakeGenerator{}
	assessor := &fakeAssessor{}

	o := orchestrator.New(generator, assessor,
		orchestrator.WithRouter(fixedRouter(departments.Story, departments.Research)),
	)

	result, err := o.Run(context.Background(), orchestrator.Request{
		Text: "outline the pilot episode",
		Task: "pilot outline",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.InDelta(t, 1.0, result.Completeness, 1e-9)
	assert.Equal(t, aggregate.RecommendationIngest, result.Recommendation)
	assert.Greater(t, result.OverallQuality, 0.8)

	story := reportFor(t, result, departments.Story)
	assert.Equal(t, "complete", story.Status)
	assert.Len(t, story.Gradings, 3)
	assert.InDelta(t, 0.85, story.Quality, 1e-9)

	// Unrouted departments appear as bare not_relevant entries.
	visual := reportFor(t, result, departments.Visual)
	assert.Equal(t, "not_relevant", visual.Status)
	assert.Empty(t, visual.Gradings)

	// One generation and one assessment per specialist: 3 story + 1 research.
	assert.Len(t, generator.recorded(), 4)
	assert.Equal(t, providers.Usage{TotalTokens: 40}, result.Usage)
}

func TestRunRevisionLoop(t *testing.T) {
	generator := &fakeGenerator{}
	assessor := &fakeAssessor{
		decisions: map[departments.ID][]quality.Decision{
			// First specialist gets RETRY then ACCEPT on revision.
			departments.Research: {quality.DecisionRetry, quality.DecisionAccept},
		},
	}

	o := orchestrator.New(generator, assessor,
		orchestrator.WithRouter(fixedRouter(departments.Research)),
	)

	result, err := o.Run(context.Background(), orchestrator.Request{Text: "verify the sources"})
	require.NoError(t, err)

	research := reportFor(t, result, departments.Research)
	require.Len(t, research.Gradings, 1)
	assert.True(t, research.Gradings[0].Revised)
	assert.Equal(t, "complete", research.Status)

	// The revision pass carried the scorer's suggestions back to the
	// generator.
	requests := generator.recorded()
	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].Suggestions)
	assert.Equal(t, []string{"tighten the middle"}, requests[1].Suggestions)
}

func TestRunSecondRetryDiscards(t *testing.T) {
	generator := &fakeGenerator{}
	assessor := &fakeAssessor{
		decisions: map[departments.ID][]quality.Decision{
			departments.Research: {quality.DecisionRetry, quality.DecisionRetry},
		},
	}

	o := orchestrator.New(generator, assessor,
		orchestrator.WithRouter(fixedRouter(departments.Research)),
	)

	result, err := o.Run(context.Background(), orchestrator.Request{Text: "verify the sources"})
	require.NoError(t, err)

	// Research's only specialist was discarded, so the department
	// produced nothing and stays pending.
	research := reportFor(t, result, departments.Research)
	assert.Equal(t, "pending", research.Status)
	assert.NotEmpty(t, research.Issues)
	assert.Zero(t, result.Completeness)
	assert.Equal(t, aggregate.RecommendationDiscard, result.Recommendation)
}

func TestRunFailedDependencySkipsDownstream(t *testing.T) {
	generator := &fakeGenerator{
		fail: map[departments.ID]error{
			departments.Character: errors.New("generation backend down"),
		},
	}
	assessor := &fakeAssessor{}

	o := orchestrator.New(generator, assessor,
		orchestrator.WithRouter(fixedRouter(departments.Story, departments.Character, departments.Visual)),
	)

	result, err := o.Run(context.Background(), orchestrator.Request{Text: "full production pass"})
	require.NoError(t, err)

	assert.Equal(t, "complete", reportFor(t, result, departments.Story).Status)
	assert.Equal(t, "pending", reportFor(t, result, departments.Character).Status)

	visual := reportFor(t, result, departments.Visual)
	assert.Equal(t, "skipped", visual.Status)
	assert.NotEmpty(t, visual.Issues)

	assert.InDelta(t, 1.0/3.0, result.Completeness, 1e-9)
}

func TestRunUpstreamOutputFlowsDownstream(t *testing.T) {
	generator := &fakeGenerator{}
	assessor := &fakeAssessor{}

	o := orchestrator.New(generator, assessor,
		orchestrator.WithRouter(fixedRouter(departments.Character, departments.Visual)),
	)

	_, err := o.Run(context.Background(), orchestrator.Request{Text: "design the cast and storyboards"})
	require.NoError(t, err)

	var visualContext string
	for _, req := range generator.recorded() {
		if req.Department == departments.Visual {
			visualContext = req.Context
		}
	}
	assert.Contains(t, visualContext, "Upstream deliverables")
	assert.Contains(t, visualContext, "deliverable from character-designer")
}

func TestRunNoRelevantDepartments(t *testing.T) {
	o := orchestrator.New(&fakeGenerator{}, &fakeAssessor{},
		orchestrator.WithRouter(fixedRouter()),
	)

	_, err := o.Run(context.Background(), orchestrator.Request{Text: "completely unrelated"})
	assert.ErrorIs(t, err, orchestrator.ErrNoRelevantDepartments)
}

func TestRunKeepsProvidedRequestID(t *testing.T) {
	o := orchestrator.New(&fakeGenerator{}, &fakeAssessor{},
		orchestrator.WithRouter(fixedRouter(departments.Research)),
	)

	result, err := o.Run(context.Background(), orchestrator.Request{ID: "req-fixed", Text: "check facts"})
	require.NoError(t, err)
	assert.Equal(t, "req-fixed", result.RequestID)
}

func TestRunAssessesAtSpecialistLevel(t *testing.T) {
	assessor := &fakeAssessor{}
	o := orchestrator.New(&fakeGenerator{}, assessor,
		orchestrator.WithRouter(fixedRouter(departments.Research)),
	)

	_, err := o.Run(context.Background(), orchestrator.Request{
		Text:            "check facts",
		Task:            "verify references",
		ExpectedOutcome: "a sourced fact sheet",
	})
	require.NoError(t, err)

	calls := assessor.assessed()
	require.NotEmpty(t, calls)
	assert.Equal(t, quality.LevelSpecialist, calls[0].Level)
	assert.Equal(t, "verify references", calls[0].Task)
	assert.Equal(t, "a sourced fact sheet", calls[0].ExpectedOutcome)
}
