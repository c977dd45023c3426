package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	faults "github.com/vennbeck/showrunner/core/errors"
)

func fastPolicy() faults.RetryPolicy {
	return faults.RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func transientErr() error {
	return &faults.ProviderError{Provider: "primary", Status: 503, Err: stderrors.New("unavailable")}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	m := faults.NewMachine(fastPolicy())

	calls := 0
	_, err := m.Run(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	m := faults.NewMachine(fastPolicy())

	calls := 0
	transitions, err := m.Run(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	var retries int
	for _, tr := range transitions {
		if tr.State == faults.StateRetrying {
			retries++
		}
	}
	assert.Equal(t, 2, retries)
	assert.Equal(t, faults.StateSucceeded, transitions[len(transitions)-1].State)
}

func TestRunFallsBackAfterExhaustingPrimary(t *testing.T) {
	m := faults.NewMachine(fastPolicy())

	primaryCalls, fallbackCalls := 0, 0
	transitions, err := m.Run(context.Background(),
		func(context.Context) error {
			primaryCalls++
			return transientErr()
		},
		func(context.Context) error {
			fallbackCalls++
			return nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 3, primaryCalls)
	assert.Equal(t, 1, fallbackCalls)

	sawFallback := false
	for _, tr := range transitions {
		if tr.State == faults.StateFallback {
			sawFallback = true
		}
	}
	assert.True(t, sawFallback)
}

func TestRunFailsWhenBothStagesExhausted(t *testing.T) {
	m := faults.NewMachine(fastPolicy())

	_, err := m.Run(context.Background(),
		func(context.Context) error { return transientErr() },
		func(context.Context) error {
			return &faults.ProviderError{Provider: "backup", Status: 500, Err: stderrors.New("down")}
		},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrScoringFailed)
}

func TestMalformedResponseIsNotRetriedOrFallenBack(t *testing.T) {
	m := faults.NewMachine(fastPolicy())

	primaryCalls, fallbackCalls := 0, 0
	_, err := m.Run(context.Background(),
		func(context.Context) error {
			primaryCalls++
			return fmt.Errorf("parse response: %w", faults.ErrMalformedResponse)
		},
		func(context.Context) error {
			fallbackCalls++
			return nil
		},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrMalformedResponse)
	assert.Equal(t, 1, primaryCalls)
	assert.Zero(t, fallbackCalls)
}

func TestPermanentErrorSkipsRetriesButUsesFallback(t *testing.T) {
	m := faults.NewMachine(fastPolicy())

	primaryCalls := 0
	_, err := m.Run(context.Background(),
		func(context.Context) error {
			primaryCalls++
			return &faults.ProviderError{Provider: "primary", Status: 401, Err: stderrors.New("bad key")}
		},
		func(context.Context) error { return nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 1, primaryCalls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want faults.Tier
	}{
		{"nil maps to permanent", nil, faults.TierPermanent},
		{"429 is rate limit", &faults.ProviderError{Status: 429}, faults.TierRateLimit},
		{"503 is degrading", &faults.ProviderError{Status: 503}, faults.TierDegrading},
		{"408 is transient", &faults.ProviderError{Status: 408}, faults.TierTransient},
		{"401 is permanent", &faults.ProviderError{Status: 401}, faults.TierPermanent},
		{"deadline is transient", context.DeadlineExceeded, faults.TierTransient},
		{"malformed is its own tier", faults.ErrMalformedResponse, faults.TierMalformed},
		{"unknown is permanent", stderrors.New("boom"), faults.TierPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, faults.Classify(tt.err))
		})
	}
}

func TestDelayIsLinearAndCapped(t *testing.T) {
	policy := faults.RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, faults.Delay(1, policy))
	assert.Equal(t, 200*time.Millisecond, faults.Delay(2, policy))
	assert.Equal(t, 250*time.Millisecond, faults.Delay(3, policy))
	assert.Equal(t, time.Duration(0), faults.Delay(0, policy))
}

func TestAddJitterStaysNearDelay(t *testing.T) {
	base := 100 * time.Millisecond
	for range 50 {
		d := faults.AddJitter(base, 0.1)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
	assert.Equal(t, base, faults.AddJitter(base, 0))
}
