package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoffSucceedsFirstTry(t *testing.T) {
	var slept []time.Duration
	calls := 0

	err := WithBackoff(3, 100*time.Millisecond, func(d time.Duration) { slept = append(slept, d) }, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

func TestWithBackoffRetriesTransientWithDoublingDelay(t *testing.T) {
	var slept []time.Duration
	calls := 0

	err := WithBackoff(3, 100*time.Millisecond, func(d time.Duration) { slept = append(slept, d) }, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, slept)
}

func TestWithBackoffExhaustsBudget(t *testing.T) {
	var slept []time.Duration
	calls := 0
	cause := errors.New("i/o timeout")

	err := WithBackoff(3, 50*time.Millisecond, func(d time.Duration) { slept = append(slept, d) }, func() error {
		calls++
		return cause
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.ErrorIs(t, err, cause)
	// No sleep after the final attempt.
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}, slept)
}

func TestWithBackoffDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	cause := errors.New("Duplicate entry 'x' for key 'PRIMARY'")

	err := WithBackoff(3, 50*time.Millisecond, func(time.Duration) {
		t.Fatal("should not sleep on a permanent error")
	}, func() error {
		calls++
		return cause
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRetryBudgetExhausted)
}

func TestWithBackoffClampsAttempts(t *testing.T) {
	calls := 0
	err := WithBackoff(0, 50*time.Millisecond, func(time.Duration) {}, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(errors.New("dial tcp: connection refused")))
	assert.True(t, Transient(errors.New("read: connection reset by peer")))
	assert.True(t, Transient(errors.New("invalid connection: broken pipe")))
	assert.True(t, Transient(errors.New("context deadline exceeded: timeout")))
	assert.False(t, Transient(errors.New("Duplicate entry 'x' for key 'PRIMARY'")))
	assert.False(t, Transient(errors.New("record not found")))
	assert.False(t, Transient(nil))
}
