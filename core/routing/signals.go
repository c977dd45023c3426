package routing

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/vennbeck/showrunner/core/departments"
)

const (
	// firstHitWeight puts a single matched signal above the relevance
	// floor so an explicit mention is enough to involve a department.
	firstHitWeight = 0.4

	// extraHitWeight is added for every further matched signal.
	extraHitWeight = 0.15
)

var globCache sync.Map // pattern -> glob.Glob

func compileSignal(pattern string) (glob.Glob, bool) {
	if cached, ok := globCache.Load(pattern); ok {
		return cached.(glob.Glob), true
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, false
	}
	globCache.Store(pattern, g)
	return g, true
}

// SignalRelevance is the default relevance heuristic. It lowercases and
// tokenizes the request text, then matches each of the department's
// signal patterns (glob syntax, so "scene*" covers "scenes" and
// "scene-by-scene") against the tokens. Multi-word signals match as
// substrings of the whole text. The department's own name counts as a
// signal. Relevance grows with the number of distinct matched signals
// and saturates at 1.
func SignalRelevance(req Request, def departments.Definition) float64 {
	text := strings.ToLower(req.Text)
	if text == "" {
		return 0
	}
	tokens := tokenize(text)

	hits := 0
	if containsToken(tokens, string(def.ID)) {
		hits++
	}
	for _, signal := range def.Signals {
		if matchSignal(signal, text, tokens) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return clampUnit(firstHitWeight + float64(hits-1)*extraHitWeight)
}

func matchSignal(signal, text string, tokens []string) bool {
	if strings.ContainsRune(signal, ' ') {
		return strings.Contains(text, signal)
	}
	g, ok := compileSignal(signal)
	if !ok {
		return containsToken(tokens, signal)
	}
	for _, token := range tokens {
		if g.Match(token) {
			return true
		}
	}
	return false
}

func containsToken(tokens []string, want string) bool {
	for _, token := range tokens {
		if token == want {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '-' || r == '\'':
			return false
		}
		return true
	})
}
