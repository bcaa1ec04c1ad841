// Package timer implements the software timer wheel driven by the
// scheduler's tick: a deadline-ordered list of timers,
// advanced one tick at a time, with periodic timers re-arming by adding
// their period to the deadline that just fired (not to "now"), so a run of
// delayed ticks produces deterministic catch-up firings rather than drift.
//
// The wheel itself is driven synchronously (Advance returns the timers that
// fired; it never invokes a callback itself) so that the tick path that
// calls it never re-enters a critical section from inside a callback.
// Callbacks run in a dedicated software-timer thread, not in
// tick context; that thread lives in the kernel package and consumes
// Advance's return value.
package timer

import (
	"sync"

	"github.com/joeycumines/go-rtkernel/internal/sortedlist"
)

// Tick is the kernel's monotonic tick counter type.
type Tick uint64

// Callback is invoked when a timer's deadline is reached.
type Callback func()

// Timer is one entry in the wheel. The zero value is not meaningful;
// obtain one from [Wheel.Schedule].
type Timer struct {
	deadline Tick
	period   Tick // 0 for one-shot
	callback Callback
	canceled bool
	armed    bool
}

// Deadline returns the tick at which this timer is next due.
func (t *Timer) Deadline() Tick {
	return t.deadline
}

// Periodic reports whether the timer re-arms itself after firing.
func (t *Timer) Periodic() bool {
	return t.period != 0
}

// Fire invokes the timer's callback. Called by the dedicated
// software-timer thread on each entry [Wheel.Advance] returns, never by
// Advance itself.
func (t *Timer) Fire() {
	if t.callback != nil {
		t.callback()
	}
}

// Wheel is a deadline-sorted list of active timers.
//
// Schedule/Cancel are called while the scheduler holds its own critical
// section (from whichever thread goroutine is blocking), while Advance is
// called from the tick driver goroutine, which deliberately does not take
// the scheduler lock (kernel.Kernel.Tick's doc comment explains why — the
// real analogue is an ISR that cannot wait on application-level locks). On
// the real Go runtime, unlike the single core this kernel models, those two
// call sites can run on different OS threads at the same instant, so the
// wheel's own list needs its own mutex independent of the scheduler's.
type Wheel struct {
	mu   sync.Mutex
	list *sortedlist.List[*Timer]
	now  Tick
}

// New constructs an empty wheel. The wheel's notion of "now" starts at 0;
// advance it with [Wheel.Advance] as ticks occur.
func New() *Wheel {
	return &Wheel{
		list: sortedlist.New[*Timer](func(a, b *Timer) bool {
			return a.deadline < b.deadline
		}),
	}
}

// Now returns the last tick value passed to Advance.
func (w *Wheel) Now() Tick {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// Schedule arms a new timer to fire at deadline, and every period ticks
// thereafter if period is non-zero (0 means one-shot). The returned Timer
// can be passed to [Wheel.Cancel].
func (w *Wheel) Schedule(deadline Tick, period Tick, callback Callback) *Timer {
	t := &Timer{deadline: deadline, period: period, callback: callback, armed: true}
	w.mu.Lock()
	w.list.Insert(t)
	w.mu.Unlock()
	return t
}

// Cancel removes a timer before it fires. Canceling an already-fired or
// already-canceled timer is a harmless no-op — this is how the scheduler
// resolves the race between a natural unblock and a timeout racing to fire
// first: whichever happens first wins, the other is a no-op.
func (w *Wheel) Cancel(t *Timer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t == nil || !t.armed {
		return
	}
	t.armed = false
	t.canceled = true
	w.list.Remove(func(x *Timer) bool { return x == t })
}

// Advance moves the wheel's clock forward to now and returns every timer
// whose deadline is <= now, in deadline order (ties in insertion order).
// Periodic timers are re-inserted with deadline += period (not now +
// period) before being returned, so repeated catch-up firings after a
// delayed Advance land on their original cadence rather than resetting it.
func (w *Wheel) Advance(now Tick) []*Timer {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
	var fired []*Timer
	for w.list.Len() > 0 && w.list.Front().deadline <= now {
		t := w.list.PopFront()
		t.armed = false
		fired = append(fired, t)
		if t.period != 0 && !t.canceled {
			t.deadline += t.period
			t.armed = true
			w.list.Insert(t)
		}
	}
	return fired
}

// Len returns the number of active (armed) timers.
func (w *Wheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.list.Len()
}
