// Package plan turns a routed set of departments into a tiered
// execution plan and runs it, tier by tier, with departments inside a
// tier executing concurrently.
package plan

import (
	"errors"
	"time"

	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/quality"
	"github.com/vennbeck/showrunner/core/routing"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptyPlan indicates no departments were selected for the request.
	ErrEmptyPlan = errors.New("plan: no departments selected")

	// ErrCyclicDependency indicates the department graph contains a cycle.
	ErrCyclicDependency = errors.New("plan: cyclic department dependency")

	// ErrPlanAlreadyRunning indicates Execute was called while a plan is
	// in flight on the same executor.
	ErrPlanAlreadyRunning = errors.New("plan: already running")

	// ErrDependencyFailed indicates a department was skipped because an
	// upstream department did not complete.
	ErrDependencyFailed = errors.New("plan: dependency failed")
)

// =============================================================================
// Node State
// =============================================================================

// NodeState represents the lifecycle state of a department in a plan.
type NodeState int

const (
	// StatePending indicates the department is waiting for its tier.
	StatePending NodeState = iota
	// StateRunning indicates the department is currently executing.
	StateRunning
	// StateComplete indicates the department produced an accepted result.
	StateComplete
	// StateFailed indicates the department exhausted its attempts.
	StateFailed
	// StateSkipped indicates the department was skipped because a
	// dependency failed.
	StateSkipped
)

var nodeStateNames = map[NodeState]string{
	StatePending:  "pending",
	StateRunning:  "running",
	StateComplete: "complete",
	StateFailed:   "failed",
	StateSkipped:  "skipped",
}

// String returns the string representation of a node state.
func (s NodeState) String() string {
	if name, ok := nodeStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal returns true once the department can no longer change state.
func (s NodeState) IsTerminal() bool {
	switch s {
	case StateComplete, StateFailed, StateSkipped:
		return true
	}
	return false
}

// =============================================================================
// Plan
// =============================================================================

// Node is one department in an execution plan.
type Node struct {
	Department departments.ID   `json:"department"`
	Role       routing.Role     `json:"role"`
	Relevance  float64          `json:"relevance"`
	DependsOn  []departments.ID `json:"depends_on,omitempty"`
	Tier       int              `json:"tier"`
}

// Plan is a validated, tiered execution plan for one request.
type Plan struct {
	RequestID string
	Nodes     map[departments.ID]*Node
	Tiers     [][]departments.ID
}

// Node returns the plan node for a department.
func (p *Plan) Node(id departments.ID) (*Node, bool) {
	n, ok := p.Nodes[id]
	return n, ok
}

// Size returns the number of departments in the plan.
func (p *Plan) Size() int {
	return len(p.Nodes)
}

// =============================================================================
// Results
// =============================================================================

// Result is the outcome of one department's execution.
type Result struct {
	Department departments.ID      `json:"department"`
	State      NodeState           `json:"state"`
	Output     string              `json:"output,omitempty"`
	Assessment *quality.Assessment `json:"assessment,omitempty"`
	Issues     []string            `json:"issues,omitempty"`
	Err        error               `json:"-"`
	StartedAt  time.Time           `json:"started_at"`
	Duration   time.Duration       `json:"duration"`
}

// Succeeded reports whether the department completed.
func (r *Result) Succeeded() bool {
	return r != nil && r.State == StateComplete
}

// Outcome is the aggregate result of executing a whole plan.
type Outcome struct {
	RequestID string
	Results   map[departments.ID]*Result
	Completed int
	Failed    int
	Skipped   int
	StartedAt time.Time
	Duration  time.Duration
}

// Partial reports whether some but not all departments completed.
func (o *Outcome) Partial() bool {
	return o.Completed > 0 && (o.Failed > 0 || o.Skipped > 0)
}

// =============================================================================
// Events
// =============================================================================

// EventType identifies an execution event.
type EventType int

const (
	EventPlanStarted EventType = iota
	EventTierStarted
	EventDepartmentStarted
	EventDepartmentCompleted
	EventDepartmentFailed
	EventDepartmentSkipped
	EventTierCompleted
	EventPlanCompleted
)

var eventTypeNames = map[EventType]string{
	EventPlanStarted:         "plan_started",
	EventTierStarted:         "tier_started",
	EventDepartmentStarted:   "department_started",
	EventDepartmentCompleted: "department_completed",
	EventDepartmentFailed:    "department_failed",
	EventDepartmentSkipped:   "department_skipped",
	EventTierCompleted:       "tier_completed",
	EventPlanCompleted:       "plan_completed",
}

// String returns the string representation of an event type.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is emitted at each plan and department state transition.
type Event struct {
	Type       EventType
	RequestID  string
	Department departments.ID
	Tier       int
	Timestamp  time.Time
	Err        error
}

// EventHandler receives execution events. Handlers are invoked inline
// on the executing goroutine; keep them fast.
type EventHandler func(Event)

// =============================================================================
// Status
// =============================================================================

// Status is a point-in-time snapshot of a running plan.
type Status struct {
	RequestID   string
	CurrentTier int
	TotalTiers  int
	Running     int
	Completed   int
	Progress    float64
	States      map[departments.ID]NodeState
}
