package scoring

import (
	"fmt"
	"strings"

	"github.com/vennbeck/showrunner/core/departments"
)

const scorerSystemPrompt = "You are a strict quality reviewer for a creative production pipeline. " +
	"You grade deliverables against the requested dimensions and respond only in the JSON schema you are given. " +
	"Score conservatively: 90+ means reference quality."

// dimensionSpec names one rubric dimension in the prompt.
type dimensionSpec struct {
	name string
	hint string
}

var baseDimensions = []dimensionSpec{
	{"confidence", "how certain the content achieves its stated intent"},
	{"completeness", "whether every requested element is present"},
	{"relevance", "how well the content serves the task it was produced for"},
	{"consistency", "agreement with established project facts and with itself"},
}

// dimensionsFor returns the rubric dimensions for a department category.
// Creative departments are additionally graded on creativity, technical
// departments on technical execution; the unused dimension stays 0 and
// carries no weight.
func dimensionsFor(category departments.Category) []dimensionSpec {
	switch category {
	case departments.CategoryCreative:
		return append(baseDimensions[:len(baseDimensions):len(baseDimensions)],
			dimensionSpec{"creativity", "originality and expressive quality"})
	case departments.CategoryTechnical:
		return append(baseDimensions[:len(baseDimensions):len(baseDimensions)],
			dimensionSpec{"technical", "craft and technical execution quality"})
	default:
		return baseDimensions
	}
}

// buildAssessmentPrompt renders the structured-assessment prompt for
// one piece of content.
func buildAssessmentPrompt(req AssessRequest) string {
	dims := dimensionsFor(departments.CategoryOf(req.Department))

	var b strings.Builder
	fmt.Fprintf(&b, "Assess the following %s department deliverable.\n\n", departments.Normalize(req.Department))

	if req.Task != "" {
		fmt.Fprintf(&b, "Task: %s\n", req.Task)
	}
	if req.ExpectedOutcome != "" {
		fmt.Fprintf(&b, "Expected outcome: %s\n", req.ExpectedOutcome)
	}
	if req.ProjectContext != "" {
		fmt.Fprintf(&b, "\nEstablished project context:\n%s\n", req.ProjectContext)
	}

	fmt.Fprintf(&b, "\nContent to assess:\n---\n%s\n---\n", req.Content)

	b.WriteString("\nGrade each dimension from 0 to 100:\n")
	for _, d := range dims {
		fmt.Fprintf(&b, "- %s: %s\n", d.name, d.hint)
	}

	b.WriteString("\nReply in this JSON schema:\n{")
	for _, d := range dims {
		fmt.Fprintf(&b, "%q: <0-100>, ", d.name)
	}
	b.WriteString(`"overall_score": <0-100>, "decision": "reject|retry|accept|exemplary", ` +
		`"self_confidence": <0.0-1.0>, "issues": ["..."], "suggestions": ["..."], "reasoning": "..."}`)

	return b.String()
}

// buildQuickCheckPrompt renders the cheap single-score pre-filter
// prompt.
func buildQuickCheckPrompt(content string, department departments.ID) string {
	return fmt.Sprintf(
		"Rate the overall quality of this %s department content from 0 to 100.\n\n---\n%s\n---\n\nReply in this JSON schema: {\"score\": <0-100>}",
		departments.Normalize(department), content,
	)
}

// buildConsistencyPrompt renders the consistency-only assessment
// against supplied prior facts.
func buildConsistencyPrompt(content, existingContext string, department departments.ID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check whether this new %s department content contradicts the established facts below.\n",
		departments.Normalize(department))
	fmt.Fprintf(&b, "\nEstablished facts:\n%s\n", existingContext)
	fmt.Fprintf(&b, "\nNew content:\n---\n%s\n---\n", content)
	b.WriteString("\nScore 100 for perfect agreement, 0 for direct contradiction of a central fact.\n")
	b.WriteString(`Reply in this JSON schema: {"consistency": <0-100>, "contradictions": ["..."]}`)
	return b.String()
}
