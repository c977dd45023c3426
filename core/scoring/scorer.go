package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vennbeck/showrunner/core/cache"
	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/providers"
	"github.com/vennbeck/showrunner/core/quality"
)

const (
	// overallDriftTolerance is how far the model's holistic overall
	// score may sit from the computed weighted score and still be
	// preferred. Beyond it the weighted sum wins: the model ignored the
	// rubric.
	overallDriftTolerance = 5.0

	// decisionDriftLimit is the maximum severity-tier distance an
	// LLM-proposed decision label may sit from the policy-computed
	// decision before the policy overrides it.
	decisionDriftLimit = 1

	defaultCacheTTL     = time.Hour
	defaultQuickMemo    = 512
	defaultQuickMemoTTL = 10 * time.Minute
)

// AssessRequest carries everything one assessment needs.
type AssessRequest struct {
	Content         string
	Department      departments.ID
	Task            string
	ExpectedOutcome string
	ProjectContext  string
	Level           quality.Level
}

// ConsistencyReport is the result of a consistency-only check.
type ConsistencyReport struct {
	Score          float64  `json:"score"`
	Contradictions []string `json:"contradictions,omitempty"`
}

// Scorer is the quality scorer. It is safe for concurrent use by
// sibling department tasks; the cache is its only shared resource and
// cache writes are idempotent by construction.
type Scorer struct {
	client   *Client
	cache    cache.Cache
	cacheTTL time.Duration
	quick    *expirable.LRU[string, float64]
	logger   *slog.Logger

	mu    sync.Mutex
	usage providers.Usage
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithCache sets the assessment cache. Without it the scorer runs
// uncached through cache.Noop.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Scorer) {
		if c != nil {
			s.cache = c
		}
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScorer creates a quality scorer around a scoring client.
func NewScorer(client *Client, opts ...Option) *Scorer {
	s := &Scorer{
		client:   client,
		cache:    cache.Noop{},
		cacheTTL: defaultCacheTTL,
		quick:    expirable.NewLRU[string, float64](defaultQuickMemo, nil, defaultQuickMemoTTL),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// llmAssessment is the untrusted wire shape of a grading reply. Every
// numeric field is clamped before it enters the data model.
type llmAssessment struct {
	Confidence   float64 `json:"confidence"`
	Completeness float64 `json:"completeness"`
	Relevance    float64 `json:"relevance"`
	Consistency  float64 `json:"consistency"`
	Creativity   float64 `json:"creativity"`
	Technical    float64 `json:"technical"`

	OverallScore   float64  `json:"overall_score"`
	Decision       string   `json:"decision"`
	SelfConfidence float64  `json:"self_confidence"`
	Issues         []string `json:"issues"`
	Suggestions    []string `json:"suggestions"`
	Reasoning      string   `json:"reasoning"`
}

// Assess grades content for a department and returns the immutable
// assessment. Identical (content, department, context) inputs hit the
// fingerprint cache and return the original assessment unchanged, with
// no second model call.
func (s *Scorer) Assess(ctx context.Context, req AssessRequest) (*quality.Assessment, error) {
	fp := Fingerprint(req.Content, req.Department, req.ProjectContext)
	key := assessmentCacheKey(req.Department, fp)

	if data, ok := s.cache.Get(ctx, key); ok {
		var cached quality.Assessment
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		// A corrupt entry is dropped and re-scored.
		s.cache.Delete(ctx, key)
	}

	var raw llmAssessment
	resp, err := s.client.CompleteJSON(ctx, buildAssessmentPrompt(req), JSONOptions{
		SystemPrompt: scorerSystemPrompt,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("assess %s content: %w", req.Department, err)
	}
	s.recordUsage(resp.Usage)

	assessment := s.buildAssessment(req, raw, resp.Model)

	if data, err := json.Marshal(assessment); err == nil {
		s.cache.Set(ctx, key, data, s.cacheTTL)
	}

	return assessment, nil
}

// buildAssessment validates the untrusted reply and derives the final
// score and decision.
func (s *Scorer) buildAssessment(req AssessRequest, raw llmAssessment, model string) *quality.Assessment {
	dims := quality.Dimensions{
		Confidence:   raw.Confidence,
		Completeness: raw.Completeness,
		Relevance:    raw.Relevance,
		Consistency:  raw.Consistency,
		Creativity:   raw.Creativity,
		Technical:    raw.Technical,
	}.Clamp()

	// Dimensions outside the department's category carry no weight and
	// stay 0 even if the model filled them in.
	switch departments.CategoryOf(req.Department) {
	case departments.CategoryCreative:
		dims.Technical = 0
	case departments.CategoryTechnical:
		dims.Creativity = 0
	default:
		dims.Creativity = 0
		dims.Technical = 0
	}

	weights := quality.WeightsFor(req.Department)
	computed := quality.WeightedScore(dims, weights)

	// Prefer the model's holistic overall when it tracks the rubric;
	// fall back to the weighted sum when it drifts.
	overall := computed
	reported := quality.ClampScore(raw.OverallScore)
	if math.Abs(reported-computed) < overallDriftTolerance {
		overall = reported
	}

	decision := quality.Decide(overall, dims.Consistency, req.Level)
	if proposed, ok := quality.ParseDecision(raw.Decision); ok {
		if quality.TierDistance(proposed, decision) <= decisionDriftLimit {
			decision = proposed
		} else {
			s.logger.Warn("scoring: model decision overridden by threshold policy",
				"department", req.Department,
				"proposed", proposed.String(),
				"policy", decision.String())
		}
	}

	return &quality.Assessment{
		Department:   departments.Normalize(req.Department),
		Level:        req.Level,
		Dimensions:   dims,
		OverallScore: overall,
		Decision:     decision,
		Confidence:   quality.ClampUnit(raw.SelfConfidence),
		Issues:       raw.Issues,
		Suggestions:  raw.Suggestions,
		Reasoning:    raw.Reasoning,
		AssessedAt:   time.Now().UTC(),
		Model:        model,
	}
}

// QuickCheck returns a single cheap quality score for pre-filtering,
// memoized in a small expiring LRU. It derives no decision; callers
// tolerate far more drift here than Assess does.
func (s *Scorer) QuickCheck(ctx context.Context, content string, department departments.ID) (float64, error) {
	fp := Fingerprint(content, department, "")
	if score, ok := s.quick.Get(fp); ok {
		return score, nil
	}

	var raw struct {
		Score float64 `json:"score"`
	}
	resp, err := s.client.CompleteJSON(ctx, buildQuickCheckPrompt(content, department), JSONOptions{
		SystemPrompt: scorerSystemPrompt,
		MaxTokens:    64,
	}, &raw)
	if err != nil {
		return 0, fmt.Errorf("quick check %s content: %w", department, err)
	}
	s.recordUsage(resp.Usage)

	score := quality.ClampScore(raw.Score)
	s.quick.Add(fp, score)
	return score, nil
}

// CheckConsistency grades new content against supplied prior facts
// only. Uncached: the same content may be checked against different
// context snapshots as a project grows.
func (s *Scorer) CheckConsistency(ctx context.Context, content, existingContext string, department departments.ID) (*ConsistencyReport, error) {
	var raw struct {
		Consistency    float64  `json:"consistency"`
		Contradictions []string `json:"contradictions"`
	}
	resp, err := s.client.CompleteJSON(ctx, buildConsistencyPrompt(content, existingContext, department), JSONOptions{
		SystemPrompt: scorerSystemPrompt,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("consistency check %s content: %w", department, err)
	}
	s.recordUsage(resp.Usage)

	return &ConsistencyReport{
		Score:          quality.ClampScore(raw.Consistency),
		Contradictions: raw.Contradictions,
	}, nil
}

// ClearDepartment drops every memoized assessment for one department.
func (s *Scorer) ClearDepartment(ctx context.Context, department departments.ID) {
	s.cache.ClearByPrefix(ctx, "assess:"+string(departments.Normalize(department))+":")
}

// Usage returns cumulative token usage since construction.
func (s *Scorer) Usage() providers.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

func (s *Scorer) recordUsage(u providers.Usage) {
	s.mu.Lock()
	s.usage.Add(u)
	s.mu.Unlock()
}
