package contextstore

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultEntityLimit = 12
	defaultMaxChars    = 4000
)

// Gatherer assembles a bounded project-context block for scoring
// prompts: the project synopsis plus one level of related entities.
type Gatherer struct {
	store       Store
	entityLimit int
	maxChars    int
}

// GathererOption configures a Gatherer.
type GathererOption func(*Gatherer)

// WithEntityLimit caps entities fetched per kind.
func WithEntityLimit(n int) GathererOption {
	return func(g *Gatherer) {
		if n > 0 {
			g.entityLimit = n
		}
	}
}

// WithMaxChars caps the rendered context length.
func WithMaxChars(n int) GathererOption {
	return func(g *Gatherer) {
		if n > 0 {
			g.maxChars = n
		}
	}
}

// NewGatherer creates a Gatherer over a store.
func NewGatherer(store Store, opts ...GathererOption) *Gatherer {
	g := &Gatherer{
		store:       store,
		entityLimit: defaultEntityLimit,
		maxChars:    defaultMaxChars,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProjectContext renders the project and its first page of characters,
// scenes, and locations as a plain-text block. Entity fetch failures
// after the project loads degrade to a smaller block rather than
// failing the request.
func (g *Gatherer) ProjectContext(ctx context.Context, projectSlug string) (string, error) {
	project, err := g.store.Project(ctx, projectSlug)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s", project.Title)
	if project.Genre != "" {
		fmt.Fprintf(&b, " (%s)", project.Genre)
	}
	b.WriteString("\n")
	if project.Synopsis != "" {
		fmt.Fprintf(&b, "Synopsis: %s\n", project.Synopsis)
	}

	page := Page{Limit: g.entityLimit}

	if characters, err := g.store.Characters(ctx, projectSlug, page); err == nil && len(characters) > 0 {
		b.WriteString("\nCharacters:\n")
		for _, c := range characters {
			writeEntity(&b, c.Name, c.Description)
		}
	}

	if scenes, err := g.store.Scenes(ctx, projectSlug, page); err == nil && len(scenes) > 0 {
		b.WriteString("\nScenes:\n")
		for _, sc := range scenes {
			writeEntity(&b, sc.Title, sc.Summary)
		}
	}

	if locations, err := g.store.Locations(ctx, projectSlug, page); err == nil && len(locations) > 0 {
		b.WriteString("\nLocations:\n")
		for _, l := range locations {
			writeEntity(&b, l.Name, l.Description)
		}
	}

	return truncate(b.String(), g.maxChars), nil
}

func writeEntity(b *strings.Builder, name, description string) {
	if description == "" {
		fmt.Fprintf(b, "- %s\n", name)
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", name, description)
}

func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	// Cut at the last full line inside the budget.
	cut := s[:maxChars]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "\n[context truncated]"
}
