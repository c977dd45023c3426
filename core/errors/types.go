// Package errors implements the error taxonomy for outbound calls:
// classification into tiers, linear backoff, and the retry-then-fallback
// attempt machine used by the scoring client.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"
)

// Tier classifies an outbound-call error. The tier decides whether a
// call is retried, escalated to the backup model, or surfaced at once.
type Tier int

const (
	// TierTransient covers timeouts, resets and temporary
	// unavailability. Retried with backoff.
	TierTransient Tier = iota

	// TierRateLimit covers 429-style throttling. Retried with backoff.
	TierRateLimit

	// TierDegrading covers 5xx provider degradation. Retried with
	// backoff, then escalated to the backup model.
	TierDegrading

	// TierMalformed covers structurally invalid responses (non-JSON,
	// missing required fields). Never retried automatically: re-asking
	// an ill-specified prompt rarely helps.
	TierMalformed

	// TierPermanent covers everything that will not resolve with retry:
	// bad credentials, invalid request, unknown model.
	TierPermanent
)

var tierNames = map[Tier]string{
	TierTransient: "transient",
	TierRateLimit: "rate_limit",
	TierDegrading: "degrading",
	TierMalformed: "malformed",
	TierPermanent: "permanent",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// Retryable reports whether calls failing at this tier should be
// retried on the same model.
func (t Tier) Retryable() bool {
	switch t {
	case TierTransient, TierRateLimit, TierDegrading:
		return true
	default:
		return false
	}
}

// ProviderError wraps a provider failure with its HTTP status so the
// classifier does not need to know any SDK's error shape.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.Status, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrMalformedResponse marks a structurally invalid model response.
// Wrap it so Classify places the failure in TierMalformed.
var ErrMalformedResponse = errors.New("malformed model response")

// ErrScoringFailed is the terminal error surfaced after retries and the
// backup model are both exhausted.
var ErrScoringFailed = errors.New("scoring failed")

// Classify buckets an error into a tier. Deadline expiry is transient:
// the per-call timeout fires it and a fresh attempt gets a fresh
// deadline.
func Classify(err error) Tier {
	if err == nil {
		return TierPermanent
	}

	if errors.Is(err, ErrMalformedResponse) {
		return TierMalformed
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return classifyStatus(perr.Status)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TierTransient
	}

	return TierPermanent
}

func classifyStatus(status int) Tier {
	switch {
	case status == http.StatusTooManyRequests:
		return TierRateLimit
	case status >= 500:
		return TierDegrading
	case status == http.StatusRequestTimeout:
		return TierTransient
	case status >= 400:
		return TierPermanent
	default:
		return TierTransient
	}
}

// RetryPolicy bounds retries for one model before falling back.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (first try included).
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the backoff after the first failed attempt.
	// Backoff is linear: delay = InitialDelay * attempt.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the backoff.
	MaxDelay time.Duration `yaml:"max_delay"`

	// JitterPercent spreads the delay by ±percent to avoid thundering
	// herds (0.1 = 10%).
	JitterPercent float64 `yaml:"jitter_percent"`
}

// DefaultRetryPolicy returns the policy used for scoring calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 0.1,
	}
}

// UnmarshalYAML decodes durations from strings like "500ms". Absent
// keys keep the receiver's current values, so a partial retry section
// overlays the defaults instead of zeroing them.
func (p *RetryPolicy) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		MaxAttempts   int     `yaml:"max_attempts"`
		InitialDelay  string  `yaml:"initial_delay"`
		MaxDelay      string  `yaml:"max_delay"`
		JitterPercent float64 `yaml:"jitter_percent"`
	}{
		MaxAttempts:   p.MaxAttempts,
		InitialDelay:  p.InitialDelay.String(),
		MaxDelay:      p.MaxDelay.String(),
		JitterPercent: p.JitterPercent,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	initial, err := time.ParseDuration(raw.InitialDelay)
	if err != nil {
		return fmt.Errorf("retry initial_delay: %w", err)
	}
	max, err := time.ParseDuration(raw.MaxDelay)
	if err != nil {
		return fmt.Errorf("retry max_delay: %w", err)
	}

	p.MaxAttempts = raw.MaxAttempts
	p.InitialDelay = initial
	p.MaxDelay = max
	p.JitterPercent = raw.JitterPercent
	return nil
}
