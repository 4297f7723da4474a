package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/signin"
)

func newTestLoop(t *testing.T, hour, minute int, fn CheckinFunc) *Loop {
	t.Helper()
	loop, err := NewLoop(hour, minute, fn, logging.Discard())
	require.NoError(t, err)
	return loop
}

func noopCheckin(context.Context) (*signin.AttemptResult, error) {
	return &signin.AttemptResult{Outcome: signin.Success, Attempt: 1}, nil
}

func TestNextFireSameDayWhenTimeNotPassed(t *testing.T) {
	loop := newTestLoop(t, 9, 30, noopCheckin)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)

	next := loop.NextFire(now)

	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local), next)
}

func TestNextFireNextDayWhenTimePassed(t *testing.T) {
	loop := newTestLoop(t, 9, 30, noopCheckin)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)

	next := loop.NextFire(now)

	assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.Local), next)
}

func TestNextFireStrictlyFuture(t *testing.T) {
	cases := []struct {
		hour, minute int
		now          time.Time
	}{
		{0, 0, time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)},
		{23, 59, time.Date(2025, 12, 31, 23, 59, 0, 0, time.Local)},
		{12, 0, time.Date(2025, 6, 15, 12, 0, 30, 0, time.Local)},
		{7, 45, time.Date(2025, 2, 28, 7, 45, 0, 0, time.Local)},
	}

	for _, tc := range cases {
		loop := newTestLoop(t, tc.hour, tc.minute, noopCheckin)
		next := loop.NextFire(tc.now)

		assert.True(t, next.After(tc.now), "next fire %s is not after %s", next, tc.now)
		assert.Equal(t, tc.hour, next.Hour())
		assert.Equal(t, tc.minute, next.Minute())
	}
}

func TestNextFireAtExactScheduledInstantRollsToTomorrow(t *testing.T) {
	loop := newTestLoop(t, 9, 0, noopCheckin)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)

	next := loop.NextFire(now)

	assert.Equal(t, 2, next.Day())
}

func TestRunFiresOnceAndRearms(t *testing.T) {
	var fired atomic.Int32
	fn := func(context.Context) (*signin.AttemptResult, error) {
		fired.Add(1)
		return &signin.AttemptResult{Outcome: signin.Success, Attempt: 1}, nil
	}

	loop := newTestLoop(t, 9, 0, fn)
	loop.poll = time.Millisecond

	// Clock starts just before the scheduled instant and jumps past it.
	base := time.Date(2025, 6, 1, 8, 59, 59, 0, time.Local)
	var ticks atomic.Int32
	loop.now = func() time.Time {
		if ticks.Add(1) > 2 {
			return base.Add(2 * time.Minute)
		}
		return base
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	// A single fire: after firing the loop re-arms for tomorrow, which the
	// frozen clock never reaches.
	assert.Equal(t, int32(1), fired.Load())

	state := loop.State()
	assert.Equal(t, 2, state.NextFire.Day())
	assert.False(t, state.LastRun.IsZero())
}

func TestRunRearmsAfterFailedDay(t *testing.T) {
	var fired atomic.Int32
	fn := func(context.Context) (*signin.AttemptResult, error) {
		fired.Add(1)
		return &signin.AttemptResult{Outcome: signin.LoginFailed, Attempt: 3}, nil
	}

	loop := newTestLoop(t, 12, 0, fn)
	loop.poll = time.Millisecond

	base := time.Date(2025, 6, 1, 11, 59, 59, 0, time.Local)
	var ticks atomic.Int32
	loop.now = func() time.Time {
		if ticks.Add(1) > 1 {
			return base.Add(time.Minute)
		}
		return base
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	// Failure does not kill the loop; it is armed for the next day.
	assert.True(t, loop.State().NextFire.After(base))
}

func TestRunStopsOnCancel(t *testing.T) {
	loop := newTestLoop(t, 3, 0, noopCheckin)
	loop.poll = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancellation")
	}
}
