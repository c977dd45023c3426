package plan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vennbeck/showrunner/core/departments"
)

// =============================================================================
// Runner
// =============================================================================

// Runner executes a single department. Upstream holds the results of
// the department's completed dependencies.
type Runner interface {
	RunDepartment(ctx context.Context, node *Node, upstream map[departments.ID]*Result) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, node *Node, upstream map[departments.ID]*Result) (*Result, error)

// RunDepartment calls the function.
func (f RunnerFunc) RunDepartment(ctx context.Context, node *Node, upstream map[departments.ID]*Result) (*Result, error) {
	return f(ctx, node, upstream)
}

// =============================================================================
// Policy
// =============================================================================

// Policy configures plan execution.
type Policy struct {
	// MaxConcurrency limits departments running in parallel within a
	// tier (0 = unlimited).
	MaxConcurrency int `yaml:"max_concurrency"`

	// DepartmentTimeout bounds a single department's run.
	DepartmentTimeout time.Duration `yaml:"department_timeout"`
}

// DefaultPolicy returns sensible execution defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxConcurrency:    4,
		DepartmentTimeout: 5 * time.Minute,
	}
}

// UnmarshalYAML decodes the timeout from strings like "90s". Absent
// keys keep the receiver's current values.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		MaxConcurrency    int    `yaml:"max_concurrency"`
		DepartmentTimeout string `yaml:"department_timeout"`
	}{
		MaxConcurrency:    p.MaxConcurrency,
		DepartmentTimeout: p.DepartmentTimeout.String(),
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	timeout, err := time.ParseDuration(raw.DepartmentTimeout)
	if err != nil {
		return fmt.Errorf("execution department_timeout: %w", err)
	}

	p.MaxConcurrency = raw.MaxConcurrency
	p.DepartmentTimeout = timeout
	return nil
}

// =============================================================================
// Executor
// =============================================================================

// Executor runs plans tier by tier. Departments within a tier execute
// concurrently; a tier must fully settle before the next one starts. A
// failed department never aborts the plan: its dependents are skipped
// and everything else keeps going.
type Executor struct {
	mu sync.RWMutex

	policy  Policy
	running bool

	plan        *Plan
	currentTier int
	states      map[departments.ID]NodeState
	results     map[departments.ID]*Result
	inFlight    int
	startTime   time.Time

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

// NewExecutor creates a plan executor.
func NewExecutor(policy Policy) *Executor {
	return &Executor{policy: policy}
}

// Subscribe registers an event handler and returns an unsubscribe
// function.
func (e *Executor) Subscribe(handler EventHandler) func() {
	e.handlersMu.Lock()
	e.handlers = append(e.handlers, handler)
	index := len(e.handlers) - 1
	e.handlersMu.Unlock()

	return func() {
		e.handlersMu.Lock()
		defer e.handlersMu.Unlock()
		if index < len(e.handlers) {
			e.handlers[index] = nil
		}
	}
}

// emit delivers an event to every live handler inline. Unsubscribed
// slots are nil and skipped.
func (e *Executor) emit(event Event) {
	e.handlersMu.RLock()
	defer e.handlersMu.RUnlock()
	for _, handler := range e.handlers {
		if handler != nil {
			handler(event)
		}
	}
}

// Execute runs the plan to completion. It returns the outcome together
// with ctx.Err() if the context was cancelled mid-plan; departments
// that never ran are marked skipped.
func (e *Executor) Execute(ctx context.Context, p *Plan, runner Runner) (*Outcome, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrPlanAlreadyRunning
	}
	e.running = true
	e.plan = p
	e.currentTier = 0
	e.startTime = time.Now()
	e.states = make(map[departments.ID]NodeState, len(p.Nodes))
	e.results = make(map[departments.ID]*Result, len(p.Nodes))
	for id := range p.Nodes {
		e.states[id] = StatePending
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.emit(Event{Type: EventPlanStarted, RequestID: p.RequestID, Timestamp: time.Now()})

	var sem chan struct{}
	if e.policy.MaxConcurrency > 0 {
		sem = make(chan struct{}, e.policy.MaxConcurrency)
	}

	for tierIdx, tier := range p.Tiers {
		if ctx.Err() != nil {
			e.skipRemaining(p, ctx.Err())
			break
		}

		e.mu.Lock()
		e.currentTier = tierIdx
		e.mu.Unlock()

		e.emit(Event{Type: EventTierStarted, RequestID: p.RequestID, Tier: tierIdx, Timestamp: time.Now()})
		e.executeTier(ctx, p, tier, runner, sem)
		e.emit(Event{Type: EventTierCompleted, RequestID: p.RequestID, Tier: tierIdx, Timestamp: time.Now()})
	}

	outcome := e.buildOutcome(p)
	e.emit(Event{Type: EventPlanCompleted, RequestID: p.RequestID, Timestamp: time.Now()})

	return outcome, ctx.Err()
}

// executeTier runs one tier's departments concurrently and waits for
// all of them.
func (e *Executor) executeTier(ctx context.Context, p *Plan, tier []departments.ID, runner Runner, sem chan struct{}) {
	var wg sync.WaitGroup

	for _, id := range tier {
		node := p.Nodes[id]

		if failedDep, blocked := e.blockedBy(node); blocked {
			e.recordSkip(p, node, fmt.Errorf("%w: %s", ErrDependencyFailed, failedDep))
			continue
		}
		if ctx.Err() != nil {
			e.recordSkip(p, node, ctx.Err())
			continue
		}

		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				e.recordSkip(p, node, ctx.Err())
				continue
			}
		}

		wg.Add(1)
		go func(n *Node) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			e.runNode(ctx, p, n, runner)
		}(node)
	}

	wg.Wait()
}

// runNode executes one department and records its result.
func (e *Executor) runNode(ctx context.Context, p *Plan, node *Node, runner Runner) {
	e.setState(node.Department, StateRunning, 1)
	e.emit(Event{
		Type:       EventDepartmentStarted,
		RequestID:  p.RequestID,
		Department: node.Department,
		Tier:       node.Tier,
		Timestamp:  time.Now(),
	})

	runCtx := ctx
	if e.policy.DepartmentTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.policy.DepartmentTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := runner.RunDepartment(runCtx, node, e.upstreamResults(node))
	if result == nil {
		result = &Result{Department: node.Department}
	}
	result.StartedAt = started
	result.Duration = time.Since(started)

	if err != nil || result.State != StateComplete {
		if err != nil {
			result.Err = err
		}
		result.State = StateFailed
		e.record(node, result, -1)
		e.emit(Event{
			Type:       EventDepartmentFailed,
			RequestID:  p.RequestID,
			Department: node.Department,
			Tier:       node.Tier,
			Timestamp:  time.Now(),
			Err:        result.Err,
		})
		return
	}

	e.record(node, result, -1)
	e.emit(Event{
		Type:       EventDepartmentCompleted,
		RequestID:  p.RequestID,
		Department: node.Department,
		Tier:       node.Tier,
		Timestamp:  time.Now(),
	})
}

// blockedBy reports the first dependency that did not complete.
func (e *Executor) blockedBy(node *Node) (departments.ID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, dep := range node.DependsOn {
		if e.states[dep] != StateComplete {
			return dep, true
		}
	}
	return "", false
}

// upstreamResults returns completed dependency results for a node.
func (e *Executor) upstreamResults(node *Node) map[departments.ID]*Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	upstream := make(map[departments.ID]*Result, len(node.DependsOn))
	for _, dep := range node.DependsOn {
		if r, ok := e.results[dep]; ok {
			upstream[dep] = r
		}
	}
	return upstream
}

func (e *Executor) setState(id departments.ID, state NodeState, runningDelta int) {
	e.mu.Lock()
	e.states[id] = state
	e.inFlight += runningDelta
	e.mu.Unlock()
}

func (e *Executor) record(node *Node, result *Result, runningDelta int) {
	e.mu.Lock()
	e.states[node.Department] = result.State
	e.results[node.Department] = result
	e.inFlight += runningDelta
	e.mu.Unlock()
}

func (e *Executor) recordSkip(p *Plan, node *Node, cause error) {
	result := &Result{
		Department: node.Department,
		State:      StateSkipped,
		Err:        cause,
		StartedAt:  time.Now(),
	}
	e.record(node, result, 0)
	e.emit(Event{
		Type:       EventDepartmentSkipped,
		RequestID:  p.RequestID,
		Department: node.Department,
		Tier:       node.Tier,
		Timestamp:  time.Now(),
		Err:        cause,
	})
}

// skipRemaining marks every still-pending department skipped.
func (e *Executor) skipRemaining(p *Plan, cause error) {
	e.mu.RLock()
	pending := make([]*Node, 0)
	for id, state := range e.states {
		if !state.IsTerminal() && state != StateRunning {
			pending = append(pending, p.Nodes[id])
		}
	}
	e.mu.RUnlock()

	for _, node := range pending {
		e.recordSkip(p, node, cause)
	}
}

// buildOutcome summarizes all department results.
func (e *Executor) buildOutcome(p *Plan) *Outcome {
	e.mu.RLock()
	defer e.mu.RUnlock()

	outcome := &Outcome{
		RequestID: p.RequestID,
		Results:   make(map[departments.ID]*Result, len(e.results)),
		StartedAt: e.startTime,
		Duration:  time.Since(e.startTime),
	}

	for id, result := range e.results {
		outcome.Results[id] = result
		switch result.State {
		case StateComplete:
			outcome.Completed++
		case StateFailed:
			outcome.Failed++
		case StateSkipped:
			outcome.Skipped++
		}
	}
	return outcome
}

// Status returns a snapshot of the current execution.
func (e *Executor) Status() *Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.plan == nil {
		return nil
	}

	states := make(map[departments.ID]NodeState, len(e.states))
	completed := 0
	for id, state := range e.states {
		states[id] = state
		if state.IsTerminal() {
			completed++
		}
	}

	total := len(e.plan.Nodes)
	progress := 0.0
	if total > 0 {
		progress = float64(completed) / float64(total)
	}

	return &Status{
		RequestID:   e.plan.RequestID,
		CurrentTier: e.currentTier,
		TotalTiers:  len(e.plan.Tiers),
		Running:     e.inFlight,
		Completed:   completed,
		Progress:    progress,
		States:      states,
	}
}
