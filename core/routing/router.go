// Package routing classifies which departments an incoming request
// needs: one primary, any number of supporting, the rest excluded from
// the execution plan entirely.
package routing

import (
	"sort"

	"github.com/vennbeck/showrunner/core/departments"
)

// RelevanceFloor is the minimum relevance for a department to take part
// in a request at all.
const RelevanceFloor = 0.3

// Role classifies a department's part in one request.
type Role int

const (
	RoleNotRelevant Role = iota
	RoleSupporting
	RolePrimary
)

var roleNames = map[Role]string{
	RoleNotRelevant: "not_relevant",
	RoleSupporting:  "supporting",
	RolePrimary:     "primary",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Request is the unit of routing: the user's production request plus
// optional forced departments from the host application.
type Request struct {
	ID   string
	Text string

	// Require forces departments in as supporting regardless of their
	// computed relevance (still subject to primary selection).
	Require []departments.ID
}

// Score is one department's routing outcome.
type Score struct {
	Department departments.ID `json:"department"`
	Relevance  float64        `json:"relevance"`
	Role       Role           `json:"role"`
}

// RelevanceFunc computes a relevance in [0,1] for one department. It
// must be deterministic for identical input; scores are compared across
// departments to pick the primary.
type RelevanceFunc func(req Request, def departments.Definition) float64

// Router routes requests over the department registry.
type Router struct {
	relevance RelevanceFunc
	floor     float64
}

// Option configures a Router.
type Option func(*Router)

// WithRelevanceFunc replaces the default signal-matching heuristic.
func WithRelevanceFunc(fn RelevanceFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.relevance = fn
		}
	}
}

// WithFloor overrides the relevance floor.
func WithFloor(floor float64) Option {
	return func(r *Router) {
		if floor > 0 && floor < 1 {
			r.floor = floor
		}
	}
}

// NewRouter creates a Router with the signal-matching default scorer.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		relevance: SignalRelevance,
		floor:     RelevanceFloor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route scores every known department against the request. The highest
// scorer above the floor is primary; other departments above the floor
// are supporting; everything else is not relevant and must cost nothing
// further. Results are ordered by descending relevance, ties broken by
// registry order, so identical requests route identically.
func (r *Router) Route(req Request) []Score {
	defs := departments.All()
	scores := make([]Score, len(defs))

	required := make(map[departments.ID]struct{}, len(req.Require))
	for _, id := range req.Require {
		required[departments.Normalize(id)] = struct{}{}
	}

	for i, def := range defs {
		rel := clampUnit(r.relevance(req, def))
		if _, ok := required[def.ID]; ok && rel < r.floor {
			rel = r.floor
		}
		scores[i] = Score{Department: def.ID, Relevance: rel, Role: RoleNotRelevant}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Relevance > scores[b].Relevance
	})

	for i := range scores {
		switch {
		case i == 0 && scores[i].Relevance >= r.floor:
			scores[i].Role = RolePrimary
		case scores[i].Relevance >= r.floor:
			scores[i].Role = RoleSupporting
		}
	}

	return scores
}

// Selected returns only the departments taking part in the request.
func Selected(scores []Score) []Score {
	out := make([]Score, 0, len(scores))
	for _, s := range scores {
		if s.Role != RoleNotRelevant {
			out = append(out, s)
		}
	}
	return out
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

// Primary returns the primary department score, if any.
func Primary(scores []Score) (Score, bool) {
	for _, s := range scores {
		if s.Role == RolePrimary {
			return s, true
		}
	}
	return Score{}, false
}
