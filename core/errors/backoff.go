package errors

import (
	"math/rand"
	"time"
)

// Delay computes the linear backoff before retry attempt n (1-based):
// InitialDelay * n, capped at MaxDelay.
func Delay(attempt int, policy RetryPolicy) time.Duration {
	if attempt < 1 || policy.InitialDelay <= 0 {
		return 0
	}

	delay := policy.InitialDelay * time.Duration(attempt)
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// AddJitter spreads a delay by ±jitterPercent so concurrent department
// tasks do not retry in lockstep.
func AddJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 || delay <= 0 {
		return delay
	}

	jitterRange := float64(delay) * jitterPercent
	offset := (rand.Float64()*2 - 1) * jitterRange
	jittered := time.Duration(float64(delay) + offset)

	if jittered < time.Millisecond {
		return time.Millisecond
	}
	return jittered
}
