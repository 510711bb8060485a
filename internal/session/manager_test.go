package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTouchWithinTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), clock, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, "user-1"))

	clock.Advance(29 * time.Minute)
	assert.NoError(t, m.Touch(ctx, "user-1"))

	// Activity resets the window; another 29 minutes is still fine.
	clock.Advance(29 * time.Minute)
	assert.NoError(t, m.Touch(ctx, "user-1"))
}

func TestTouchExpiresAfterIdleGap(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), clock, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, "user-1"))

	clock.Advance(31 * time.Minute)
	assert.ErrorIs(t, m.Touch(ctx, "user-1"), ErrExpired)

	// The expired session was forgotten, so the next touch starts fresh.
	assert.NoError(t, m.Touch(ctx, "user-1"))
}

func TestTouchExactTimeoutBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), clock, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, "user-1"))

	// A gap of exactly the timeout is still alive; expiry needs a strictly
	// larger gap.
	clock.Advance(30 * time.Minute)
	assert.NoError(t, m.Touch(ctx, "user-1"))
}

func TestEndForgetsSession(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), clock, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, "user-1"))
	require.NoError(t, m.End(ctx, "user-1"))

	// No recorded activity means the next touch succeeds even after a long
	// gap.
	clock.Advance(48 * time.Hour)
	assert.NoError(t, m.Touch(ctx, "user-1"))
}

func TestZeroTimeoutDisablesExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), clock, 0)
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, "user-1"))
	clock.Advance(1000 * time.Hour)
	assert.NoError(t, m.Touch(ctx, "user-1"))
}

func TestSessionsAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), clock, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, "user-1"))
	clock.Advance(20 * time.Minute)
	require.NoError(t, m.Touch(ctx, "user-2"))
	clock.Advance(20 * time.Minute)

	// user-1 has been idle for 40 minutes, user-2 only 20.
	assert.ErrorIs(t, m.Touch(ctx, "user-1"), ErrExpired)
	assert.NoError(t, m.Touch(ctx, "user-2"))
}
