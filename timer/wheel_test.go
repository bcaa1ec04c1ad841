package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceFiresDueTimersInDeadlineOrder(t *testing.T) {
	w := New()
	var order []string
	w.Schedule(5, 0, func() { order = append(order, "five") })
	w.Schedule(3, 0, func() { order = append(order, "three") })
	w.Schedule(10, 0, func() { order = append(order, "ten") })

	fired := w.Advance(5)
	assert.Len(t, fired, 2)
	for _, f := range fired {
		f.Fire()
	}
	assert.Equal(t, []string{"three", "five"}, order)
	assert.Equal(t, 1, w.Len())
}

func TestCancelIsIdempotentAndPreventsFiring(t *testing.T) {
	w := New()
	fired := false
	tm := w.Schedule(10, 0, func() { fired = true })
	w.Cancel(tm)
	w.Cancel(tm) // no-op, must not panic

	out := w.Advance(100)
	assert.Empty(t, out)
	assert.False(t, fired)
}

func TestPeriodicTimerCatchesUpWithoutDrift(t *testing.T) {
	w := New()
	tm := w.Schedule(10, 10, func() {})

	// A single Advance that skips several periods must fire every missed
	// deadline and leave the timer armed at the next multiple of its
	// original cadence, not reset to now+period.
	fired := w.Advance(35)
	assert.Len(t, fired, 3) // deadlines 10, 20, 30
	assert.Equal(t, tm, fired[0])
	assert.Equal(t, Tick(40), tm.Deadline())
}

func TestAdvanceNeverInvokesCallbacksItself(t *testing.T) {
	w := New()
	called := false
	w.Schedule(1, 0, func() { called = true })
	w.Advance(1)
	assert.False(t, called)
}

func TestOneShotTimerDoesNotReArm(t *testing.T) {
	w := New()
	w.Schedule(1, 0, func() {})
	w.Advance(1)
	assert.Equal(t, 0, w.Len())
}
