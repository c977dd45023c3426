package plan

import (
	"fmt"
	"sort"

	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/routing"
)

// =============================================================================
// Resolver
// =============================================================================

// DependencyFunc returns the upstream departments of a department. An
// error marks the department reference itself as invalid and fails the
// whole build.
type DependencyFunc func(departments.ID) ([]departments.ID, error)

// Resolver builds execution plans from routing results. Dependencies
// come from the department registry; edges pointing at departments the
// router did not select are dropped, since an absent department cannot
// gate anything.
type Resolver struct {
	deps DependencyFunc
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDependencyFunc replaces the registry-backed dependency lookup.
func WithDependencyFunc(fn DependencyFunc) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.deps = fn
		}
	}
}

// NewResolver creates a plan resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{deps: departments.Dependencies}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build resolves a routed department set into a tiered plan. A
// department's tier is one past its deepest selected dependency, so
// tier zero holds departments with no upstream work. A cycle in the
// registry is a hard failure.
func (r *Resolver) Build(requestID string, scores []routing.Score) (*Plan, error) {
	selected := routing.Selected(scores)
	if len(selected) == 0 {
		return nil, ErrEmptyPlan
	}

	nodes := make(map[departments.ID]*Node, len(selected))
	for _, s := range selected {
		nodes[s.Department] = &Node{
			Department: s.Department,
			Role:       s.Role,
			Relevance:  s.Relevance,
		}
	}

	// Keep only edges inside the selected set.
	for id, node := range nodes {
		deps, err := r.deps(id)
		if err != nil {
			return nil, fmt.Errorf("resolve dependencies for %s: %w", id, err)
		}
		for _, dep := range deps {
			if _, ok := nodes[dep]; ok {
				node.DependsOn = append(node.DependsOn, dep)
			}
		}
	}

	order, err := topologicalOrder(nodes)
	if err != nil {
		return nil, err
	}

	tiers := computeTiers(nodes, order)
	sortTiers(nodes, tiers)

	return &Plan{
		RequestID: requestID,
		Nodes:     nodes,
		Tiers:     tiers,
	}, nil
}

// topologicalOrder runs Kahn's algorithm over the selected departments.
func topologicalOrder(nodes map[departments.ID]*Node) ([]departments.ID, error) {
	inDegree := make(map[departments.ID]int, len(nodes))
	dependents := make(map[departments.ID][]departments.ID, len(nodes))

	for id, node := range nodes {
		inDegree[id] = len(node.DependsOn)
		for _, dep := range node.DependsOn {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]departments.ID, 0, len(nodes))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]departments.ID, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, ErrCyclicDependency
	}
	return order, nil
}

// computeTiers assigns each department the tier one past its deepest
// dependency and groups departments by tier.
func computeTiers(nodes map[departments.ID]*Node, order []departments.ID) [][]departments.ID {
	maxTier := 0
	for _, id := range order {
		node := nodes[id]
		tier := 0
		for _, dep := range node.DependsOn {
			if depTier := nodes[dep].Tier + 1; depTier > tier {
				tier = depTier
			}
		}
		node.Tier = tier
		if tier > maxTier {
			maxTier = tier
		}
	}

	tiers := make([][]departments.ID, maxTier+1)
	for _, id := range order {
		tier := nodes[id].Tier
		tiers[tier] = append(tiers[tier], id)
	}
	return tiers
}

// sortTiers orders departments within a tier by descending relevance,
// then by ID, so identical inputs produce identical plans.
func sortTiers(nodes map[departments.ID]*Node, tiers [][]departments.ID) {
	for _, tier := range tiers {
		sort.Slice(tier, func(a, b int) bool {
			na, nb := nodes[tier[a]], nodes[tier[b]]
			if na.Relevance != nb.Relevance {
				return na.Relevance > nb.Relevance
			}
			return na.Department < nb.Department
		})
	}
}
