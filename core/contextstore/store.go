// Package contextstore provides read-only access to project metadata
// and related entities (characters, scenes, locations) used to build
// scoring prompts. Queries are by slug, paginated, and depth-limited:
// one level of related entities, no recursive expansion.
package contextstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates no entity exists for the given slug.
var ErrNotFound = errors.New("contextstore: not found")

const (
	// DefaultPageSize bounds a page when the caller passes zero.
	DefaultPageSize = 20

	// MaxPageSize is the hard cap on page size.
	MaxPageSize = 100
)

// Page selects a window of results.
type Page struct {
	Limit  int
	Offset int
}

// normalize clamps the page into valid bounds.
func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Project is a production's top-level metadata.
type Project struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Genre    string `json:"genre,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`
}

// Character is one cast member of a project.
type Character struct {
	Slug        string `json:"slug"`
	ProjectSlug string `json:"project_slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Scene is one scene of a project.
type Scene struct {
	Slug        string `json:"slug"`
	ProjectSlug string `json:"project_slug"`
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	Ordinal     int    `json:"ordinal"`
}

// Location is one setting of a project.
type Location struct {
	Slug        string `json:"slug"`
	ProjectSlug string `json:"project_slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Store is the read-only query surface over project data.
type Store interface {
	Project(ctx context.Context, slug string) (*Project, error)
	Characters(ctx context.Context, projectSlug string, page Page) ([]Character, error)
	Scenes(ctx context.Context, projectSlug string, page Page) ([]Scene, error)
	Locations(ctx context.Context, projectSlug string, page Page) ([]Location, error)
	Close() error
}
