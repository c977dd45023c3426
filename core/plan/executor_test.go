package plan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/plan"
	"github.com/vennbeck/showrunner/core/routing"
)

// scriptedRunner completes every department except those listed in fail.
type scriptedRunner struct {
	mu   sync.Mutex
	fail map[departments.ID]error
	ran  []departments.ID
}

func (r *scriptedRunner) RunDepartment(ctx context.Context, node *plan.Node, upstream map[departments.ID]*plan.Result) (*plan.Result, error) {
	r.mu.Lock()
	r.ran = append(r.ran, node.Department)
	r.mu.Unlock()

	if err, ok := r.fail[node.Department]; ok {
		return nil, err
	}
	return &plan.Result{
		Department: node.Department,
		State:      plan.StateComplete,
		Output:     "output from " + string(node.Department),
	}, nil
}

func (r *scriptedRunner) ranDepartments() []departments.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]departments.ID(nil), r.ran...)
}

func buildTestPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.NewResolver().Build("req-exec", []routing.Score{
		score(departments.Story, 0.9, routing.RolePrimary),
		score(departments.Character, 0.6, routing.RoleSupporting),
		score(departments.Visual, 0.5, routing.RoleSupporting),
	})
	require.NoError(t, err)
	return p
}

func TestExecuteRunsAllTiers(t *testing.T) {
	p := buildTestPlan(t)
	runner := &scriptedRunner{}
	executor := plan.NewExecutor(plan.DefaultPolicy())

	outcome, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Completed)
	assert.Zero(t, outcome.Failed)
	assert.Zero(t, outcome.Skipped)
	assert.False(t, outcome.Partial())
	assert.ElementsMatch(t,
		[]departments.ID{departments.Story, departments.Character, departments.Visual},
		runner.ranDepartments(),
	)
}

func TestExecuteSkipsDependentsOfFailedDepartment(t *testing.T) {
	p := buildTestPlan(t)
	runner := &scriptedRunner{
		fail: map[departments.ID]error{
			departments.Character: errors.New("generation failed"),
		},
	}
	executor := plan.NewExecutor(plan.DefaultPolicy())

	outcome, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	// Story is unaffected, character failed, visual never ran.
	assert.Equal(t, 1, outcome.Completed)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 1, outcome.Skipped)
	assert.True(t, outcome.Partial())

	require.Contains(t, outcome.Results, departments.Visual)
	visual := outcome.Results[departments.Visual]
	assert.Equal(t, plan.StateSkipped, visual.State)
	assert.ErrorIs(t, visual.Err, plan.ErrDependencyFailed)

	assert.NotContains(t, runner.ranDepartments(), departments.Visual)
	assert.Equal(t, plan.StateComplete, outcome.Results[departments.Story].State)
}

func TestExecuteUpstreamResultsReachDependents(t *testing.T) {
	p := buildTestPlan(t)

	var visualUpstream map[departments.ID]*plan.Result
	runner := plan.RunnerFunc(func(ctx context.Context, node *plan.Node, upstream map[departments.ID]*plan.Result) (*plan.Result, error) {
		if node.Department == departments.Visual {
			visualUpstream = upstream
		}
		return &plan.Result{Department: node.Department, State: plan.StateComplete}, nil
	})

	executor := plan.NewExecutor(plan.DefaultPolicy())
	_, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	require.Contains(t, visualUpstream, departments.Character)
	assert.True(t, visualUpstream[departments.Character].Succeeded())
}

func TestExecuteTierBarrier(t *testing.T) {
	p := buildTestPlan(t)

	var mu sync.Mutex
	order := make([]departments.ID, 0, 3)
	runner := plan.RunnerFunc(func(ctx context.Context, node *plan.Node, upstream map[departments.ID]*plan.Result) (*plan.Result, error) {
		if node.Department == departments.Character {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, node.Department)
		mu.Unlock()
		return &plan.Result{Department: node.Department, State: plan.StateComplete}, nil
	})

	executor := plan.NewExecutor(plan.DefaultPolicy())
	_, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	require.Len(t, order, 3)
	assert.Equal(t, departments.Visual, order[2], "visual must wait for tier one to settle")
}

func TestExecuteEmitsEvents(t *testing.T) {
	p := buildTestPlan(t)
	runner := &scriptedRunner{
		fail: map[departments.ID]error{
			departments.Character: errors.New("boom"),
		},
	}
	executor := plan.NewExecutor(plan.DefaultPolicy())

	var mu sync.Mutex
	counts := make(map[plan.EventType]int)
	unsubscribe := executor.Subscribe(func(ev plan.Event) {
		mu.Lock()
		counts[ev.Type]++
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts[plan.EventPlanStarted])
	assert.Equal(t, 1, counts[plan.EventPlanCompleted])
	assert.Equal(t, 2, counts[plan.EventTierStarted])
	assert.Equal(t, 1, counts[plan.EventDepartmentCompleted])
	assert.Equal(t, 1, counts[plan.EventDepartmentFailed])
	assert.Equal(t, 1, counts[plan.EventDepartmentSkipped])
}

func TestUnsubscribedHandlerReceivesNothing(t *testing.T) {
	p := buildTestPlan(t)
	runner := &scriptedRunner{}
	executor := plan.NewExecutor(plan.DefaultPolicy())

	var mu sync.Mutex
	kept, dropped := 0, 0
	executor.Subscribe(func(plan.Event) {
		mu.Lock()
		kept++
		mu.Unlock()
	})
	unsubscribe := executor.Subscribe(func(plan.Event) {
		mu.Lock()
		dropped++
		mu.Unlock()
	})
	unsubscribe()

	_, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, kept)
	assert.Zero(t, dropped)
}

func TestExecuteCancelledContext(t *testing.T) {
	p := buildTestPlan(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &scriptedRunner{}
	executor := plan.NewExecutor(plan.DefaultPolicy())

	outcome, err := executor.Execute(ctx, p, runner)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, outcome)
	assert.Zero(t, outcome.Completed)
	assert.Equal(t, p.Size(), outcome.Skipped)
	assert.Empty(t, runner.ranDepartments())
}

func TestExecuteRejectsConcurrentRuns(t *testing.T) {
	p := buildTestPlan(t)
	executor := plan.NewExecutor(plan.DefaultPolicy())

	release := make(chan struct{})
	runner := plan.RunnerFunc(func(ctx context.Context, node *plan.Node, upstream map[departments.ID]*plan.Result) (*plan.Result, error) {
		<-release
		return &plan.Result{Department: node.Department, State: plan.StateComplete}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = executor.Execute(context.Background(), p, runner)
	}()

	// Wait until the first run is visibly in flight.
	require.Eventually(t, func() bool {
		status := executor.Status()
		return status != nil && status.Running > 0
	}, time.Second, 5*time.Millisecond)

	_, err := executor.Execute(context.Background(), p, runner)
	assert.ErrorIs(t, err, plan.ErrPlanAlreadyRunning)

	close(release)
	<-done
}

func TestStatusSnapshot(t *testing.T) {
	p := buildTestPlan(t)
	executor := plan.NewExecutor(plan.DefaultPolicy())

	assert.Nil(t, executor.Status())

	runner := &scriptedRunner{}
	_, err := executor.Execute(context.Background(), p, runner)
	require.NoError(t, err)

	status := executor.Status()
	require.NotNil(t, status)
	assert.Equal(t, "req-exec", status.RequestID)
	assert.Equal(t, 2, status.TotalTiers)
	assert.Equal(t, p.Size(), status.Completed)
	assert.InDelta(t, 1.0, status.Progress, 1e-9)
	for _, state := range status.States {
		assert.True(t, state.IsTerminal())
	}
}
