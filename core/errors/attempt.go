package errors

import (
	"context"
	"fmt"
	"time"
)

// AttemptState is one state of the call state machine:
// Attempt → Retrying(n) → Fallback → Failed, with Succeeded terminal at
// any point. Modelling the policy explicitly keeps it testable apart
// from the HTTP transport.
type AttemptState int

const (
	StateAttempt AttemptState = iota
	StateRetrying
	StateFallback
	StateSucceeded
	StateFailed
)

var attemptStateNames = map[AttemptState]string{
	StateAttempt:   "attempt",
	StateRetrying:  "retrying",
	StateFallback:  "fallback",
	StateSucceeded: "succeeded",
	StateFailed:    "failed",
}

func (s AttemptState) String() string {
	if name, ok := attemptStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Transition records one state change for audit and tests.
type Transition struct {
	State   AttemptState
	Attempt int
	Tier    Tier
	Err     error
	At      time.Time
}

// Operation is one outbound call attempt.
type Operation func(ctx context.Context) error

// Machine drives an operation through retries and a single fallback
// stage. It owns no transport; callers hand it closures.
type Machine struct {
	policy RetryPolicy

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMachine creates an attempt machine with the given retry policy.
func NewMachine(policy RetryPolicy) *Machine {
	return &Machine{
		policy: policy,
		sleep:  sleepCtx,
	}
}

// Run executes primary with retries per the policy, then fallback (if
// non-nil) with the same policy, and returns the recorded transitions.
//
// A malformed-response failure is surfaced immediately without retry or
// fallback: retrying an ill-specified prompt rarely helps, and the
// caller decides whether to re-issue the whole assessment.
func (m *Machine) Run(ctx context.Context, primary, fallback Operation) ([]Transition, error) {
	var transitions []Transition
	record := func(state AttemptState, attempt int, tier Tier, err error) {
		transitions = append(transitions, Transition{
			State: state, Attempt: attempt, Tier: tier, Err: err, At: time.Now(),
		})
	}

	err := m.runStage(ctx, primary, StateAttempt, record)
	if err == nil {
		record(StateSucceeded, 0, 0, nil)
		return transitions, nil
	}
	if Classify(err) == TierMalformed || ctx.Err() != nil || fallback == nil {
		record(StateFailed, 0, Classify(err), err)
		return transitions, err
	}

	err = m.runStage(ctx, fallback, StateFallback, record)
	if err == nil {
		record(StateSucceeded, 0, 0, nil)
		return transitions, nil
	}

	record(StateFailed, 0, Classify(err), err)
	return transitions, fmt.Errorf("%w: %w", ErrScoringFailed, err)
}

// runStage runs one operation with the retry loop.
func (m *Machine) runStage(
	ctx context.Context,
	op Operation,
	entry AttemptState,
	record func(AttemptState, int, Tier, error),
) error {
	maxAttempts := m.policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt == 1 {
			record(entry, attempt, 0, nil)
		} else {
			record(StateRetrying, attempt, Classify(lastErr), lastErr)
			delay := AddJitter(Delay(attempt-1, m.policy), m.policy.JitterPercent)
			if err := m.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Classify(lastErr).Retryable() {
			return lastErr
		}
	}

	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
