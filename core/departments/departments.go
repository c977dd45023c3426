// Package departments defines the closed registry of production
// departments: identity, category, declared dependencies, and the
// specialist roster each department head coordinates.
package departments

import (
	"fmt"
	"strings"
)

// ID identifies a department. IDs are compared case-insensitively;
// Normalize before using one as a map key.
type ID string

const (
	Story     ID = "story"
	Character ID = "character"
	Visual    ID = "visual"
	Audio     ID = "audio"
	Video     ID = "video"
	Research  ID = "research"
)

// Normalize lowercases an ID so lookups are case-insensitive.
func Normalize(id ID) ID {
	return ID(strings.ToLower(strings.TrimSpace(string(id))))
}

// Category classifies a department for dimension selection: creative
// departments are assessed on creativity, technical departments on
// technical execution. Support departments get neither extra dimension.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCreative
	CategoryTechnical
	CategorySupport
)

var categoryNames = map[Category]string{
	CategoryUnknown:   "unknown",
	CategoryCreative:  "creative",
	CategoryTechnical: "technical",
	CategorySupport:   "support",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Specialist is a narrow worker producing one deliverable within a
// department.
type Specialist struct {
	// ID is unique within the department.
	ID string

	// Role is the operator-facing description of the deliverable.
	Role string

	// Relevance weights this specialist's grade inside the department
	// aggregate (0 means unweighted).
	Relevance float64
}

// Definition describes one department in the registry.
type Definition struct {
	ID       ID
	Category Category

	// Signals are keyword/glob patterns the router matches against
	// request text to estimate relevance.
	Signals []string

	// DependsOn lists departments whose output this department reads.
	// The dependency resolver places them in strictly earlier tiers.
	DependsOn []ID

	Specialists []Specialist
}

// registry is the closed set of known departments. Order is stable for
// deterministic iteration.
var registry = []Definition{
	{
		ID:       Story,
		Category: CategoryCreative,
		Signals:  []string{"story", "plot", "narrative", "scene*", "script", "arc", "episode", "theme"},
		Specialists: []Specialist{
			{ID: "story-architect", Role: "story structure and beats", Relevance: 1.0},
			{ID: "dialogue-writer", Role: "scene dialogue", Relevance: 0.8},
			{ID: "continuity-editor", Role: "narrative continuity", Relevance: 0.6},
		},
	},
	{
		ID:       Character,
		Category: CategoryCreative,
		Signals:  []string{"character*", "protagonist", "villain", "cast", "persona", "backstory", "relationship*"},
		Specialists: []Specialist{
			{ID: "character-designer", Role: "character profiles", Relevance: 1.0},
			{ID: "arc-planner", Role: "character arcs", Relevance: 0.8},
			{ID: "voice-profiler", Role: "voice and mannerisms", Relevance: 0.6},
		},
	},
	{
		ID:        Visual,
		Category:  CategoryCreative,
		Signals:   []string{"visual*", "storyboard", "shot*", "frame", "palette", "lighting", "composition", "style"},
		DependsOn: []ID{Character},
		Specialists: []Specialist{
			{ID: "storyboard-artist", Role: "storyboards and shot lists", Relevance: 1.0},
			{ID: "concept-artist", Role: "style frames and palettes", Relevance: 0.8},
		},
	},
	{
		ID:        Audio,
		Category:  CategoryTechnical,
		Signals:   []string{"audio", "sound*", "music", "score", "foley", "mix", "voiceover"},
		DependsOn: []ID{Story},
		Specialists: []Specialist{
			{ID: "sound-designer", Role: "sound design cues", Relevance: 1.0},
			{ID: "music-supervisor", Role: "score and music beds", Relevance: 0.7},
		},
	},
	{
		ID:        Video,
		Category:  CategoryTechnical,
		Signals:   []string{"video", "render*", "edit*", "cut", "sequence", "color grade", "export", "codec"},
		DependsOn: []ID{Visual, Audio},
		Specialists: []Specialist{
			{ID: "editor", Role: "sequence assembly", Relevance: 1.0},
			{ID: "colorist", Role: "color grading", Relevance: 0.6},
		},
	},
	{
		ID:       Research,
		Category: CategorySupport,
		Signals:  []string{"research", "reference*", "historical", "accuracy", "fact*", "source*"},
		Specialists: []Specialist{
			{ID: "fact-checker", Role: "reference verification", Relevance: 1.0},
		},
	},
}

// All returns the registry definitions in stable order.
func All() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	return out
}

// IDs returns all known department IDs in stable order.
func IDs() []ID {
	out := make([]ID, len(registry))
	for i, def := range registry {
		out[i] = def.ID
	}
	return out
}

// Lookup returns the definition for an ID, case-insensitively.
func Lookup(id ID) (Definition, bool) {
	id = Normalize(id)
	for _, def := range registry {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// CategoryOf returns the category for an ID. Unknown departments map to
// CategoryUnknown; callers branch to a balanced fallback on it.
func CategoryOf(id ID) Category {
	if def, ok := Lookup(id); ok {
		return def.Category
	}
	return CategoryUnknown
}

// Dependencies returns the declared dependencies for an ID, or an error
// for a department the registry does not know.
func Dependencies(id ID) ([]ID, error) {
	def, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown department %q", id)
	}
	out := make([]ID, len(def.DependsOn))
	copy(out, def.DependsOn)
	return out, nil
}
