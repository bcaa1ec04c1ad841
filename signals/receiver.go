package signals

import (
	"github.com/joeycumines/go-rtkernel/errno"
	"github.com/joeycumines/go-rtkernel/internal/sched"
)

// Receiver is the per-thread store of pending signals and the single
// thread's blocking wait over them. At most one thread ever
// waits on a given Receiver — its own owner — so unlike the other
// primitives in this kernel it does not need a priority-ordered waiter
// list; a single-slot wait list is enough.
type Receiver struct {
	scheduler *sched.Scheduler
	owner     *sched.TCB
	catcher   *Catcher

	generated Set
	queued    []Information
	queuedCap int

	waitSet  Set
	waitList *sched.WaiterList
	// delivered carries the Information handed directly to the owner when
	// a matching Wait is interrupted by a direct hand-off rather than by
	// finding something already pending.
	delivered Information
}

// NewReceiver constructs a Receiver for owner, wiring catcher to it so that
// SetMask can trigger delivery. queuedCapacity bounds how
// many undelivered queued-signal instances can accumulate before
// QueueSignal fails with EAGAIN.
func NewReceiver(scheduler *sched.Scheduler, owner *sched.TCB, catcher *Catcher, queuedCapacity int) *Receiver {
	r := &Receiver{
		scheduler: scheduler,
		owner:     owner,
		catcher:   catcher,
		queuedCap: queuedCapacity,
		waitList:  sched.NewWaiterList(),
	}
	catcher.receiver = r
	return r
}

// Catcher returns the catcher control block wired to this receiver.
func (r *Receiver) Catcher() *Catcher { return r.catcher }

// SetOwner attaches owner to the receiver after construction. Tests and
// wiring code that need the Receiver to exist before the owning thread's
// TCB does (the thread's entry closure captures the Receiver by reference)
// construct with a nil owner and call this once the TCB is available.
// Must happen before owner can be observed Blocked by raiseLocked — i.e.
// before owner's first Wait call.
func (r *Receiver) SetOwner(t *sched.TCB) {
	r.owner = t
}

type waitPolicy int

const (
	waitForever waitPolicy = iota
	waitNone
	waitDeadline
)

// Wait blocks the owner until a signal in set is pending, returning it.
// Fails with EINTR if a handled signal outside set interrupts the wait.
func (r *Receiver) Wait(set Set) (Information, error) {
	return r.wait(set, waitForever, 0)
}

// TryWait returns immediately, failing with EAGAIN if nothing in set is
// pending.
func (r *Receiver) TryWait(set Set) (Information, error) {
	return r.wait(set, waitNone, 0)
}

// TryWaitFor blocks for at most ticks waiting for a signal in set.
func (r *Receiver) TryWaitFor(set Set, ticks uint64) (Information, error) {
	return r.wait(set, waitDeadline, r.scheduler.Now()+ticks)
}

// TryWaitUntil blocks until the absolute tick deadline waiting for a signal
// in set.
func (r *Receiver) TryWaitUntil(set Set, deadline uint64) (Information, error) {
	return r.wait(set, waitDeadline, deadline)
}

func (r *Receiver) wait(set Set, policy waitPolicy, deadline uint64) (Information, error) {
	s := r.scheduler
	s.Lock()
	if info, ok := r.takePendingLocked(set); ok {
		s.Unlock()
		return info, nil
	}
	if policy == waitNone {
		s.Unlock()
		return Information{}, errno.EAGAIN
	}

	r.waitSet = set
	var deadlineTick uint64
	if policy == waitDeadline {
		deadlineTick = deadline
	}
	reason := s.BlockLocked(r.waitList, deadlineTick)
	r.waitSet = 0
	info := r.delivered
	s.Unlock()

	switch reason {
	case sched.UnblockedTimeout:
		return Information{}, errno.ETIMEDOUT
	case sched.UnblockedSignal:
		return Information{}, errno.EINTR
	}
	return info, nil
}

// takePendingLocked removes and returns one pending instance overlapping
// set, preferring queued signals (in arrival order) over generated ones
// (lowest-numbered first, matching POSIX's unspecified-but-deterministic
// tie-break). Precondition: scheduler lock held.
func (r *Receiver) takePendingLocked(set Set) (Information, bool) {
	for i, q := range r.queued {
		if set.Has(q.Number) {
			r.queued = append(r.queued[:i:i], r.queued[i+1:]...)
			return q, true
		}
	}
	if overlap := r.generated & set; !overlap.Empty() {
		n, _ := overlap.Lowest()
		r.generated = r.generated.Without(n)
		return Information{Number: n, Code: Generated}, true
	}
	return Information{}, false
}

// pendingCall is a handler invocation to be run outside the scheduler
// critical section (see doc.go on why handlers never run under the lock).
type pendingCall struct {
	handler func(Information)
	info    Information
}

func (c *pendingCall) run() {
	if c.handler != nil {
		c.handler(c.info)
	}
}

// GenerateSignal raises the stateless, coalescing form of number: repeated
// generation before it is consumed has no additional effect. Safe to call
// from any goroutine, including ISR-simulating ones.
func (r *Receiver) GenerateSignal(number Number) error {
	s := r.scheduler
	s.Lock()
	call, ok := r.raiseLocked(Information{Number: number, Code: Generated})
	s.Unlock()
	if ok {
		call.run()
	}
	return nil
}

// QueueSignal raises the value-carrying form of number. Each call is kept
// distinct (not coalesced) up to the Receiver's queued capacity; beyond
// that it fails with EAGAIN.
func (r *Receiver) QueueSignal(number Number, value int) error {
	s := r.scheduler
	s.Lock()
	if len(r.queued) >= r.queuedCap {
		// Only over capacity if this instance isn't being handed off
		// directly to a waiter or handler — check that first.
		if !r.waitSet.Has(number) {
			if action, has := r.catcher.Action(number); !has || action.Handler == nil || r.catcher.mask.Has(number) {
				s.Unlock()
				return errno.EAGAIN
			}
		}
	}
	call, ok := r.raiseLocked(Information{Number: number, Code: Queued, Value: value})
	s.Unlock()
	if ok {
		call.run()
	}
	return nil
}

// raiseLocked records info as pending (coalescing if Generated) and then
// either hands it directly to a matching Wait, interrupts a blocked thread
// to deliver it to a registered handler, or leaves it pending for a future
// Wait/SetMask. Precondition: scheduler lock held.
func (r *Receiver) raiseLocked(info Information) (pendingCall, bool) {
	if r.waitSet.Has(info.Number) {
		// The owner is parked in Wait/TryWaitFor with a matching set:
		// hand off directly without ever marking it pending.
		r.delivered = info
		r.scheduler.UnblockLocked(r.owner, sched.UnblockedExplicit)
		return pendingCall{}, false
	}

	if info.Code == Queued {
		r.queued = append(r.queued, info)
	} else {
		r.generated = r.generated.With(info.Number)
	}

	action, has := r.catcher.Action(info.Number)
	if !has || action.Handler == nil || r.catcher.mask.Has(info.Number) {
		return pendingCall{}, false
	}

	// Unmasked and handled: consume the just-recorded pending instance
	// immediately, interrupting a blocked owner if necessary.
	r.takePendingLocked(bitOf(info.Number))
	if r.owner.State() == sched.Blocked {
		r.scheduler.UnblockLocked(r.owner, sched.UnblockedSignal)
	}
	return pendingCall{handler: action.Handler, info: info}, true
}

func bitOf(n Number) Set { return Set(1) << uint(n) }

// setCatcherMask is Catcher.SetMask's implementation once a Receiver is
// attached: the mask swap and the scan for newly-unmasked, pending,
// handled signals happen in the same scheduler critical section that
// GenerateSignal/QueueSignal read the mask under, so the two can never
// race on it. Handler callbacks still run after the lock is released (see
// doc.go on why handlers never run under the lock).
func (r *Receiver) setCatcherMask(c *Catcher, mask Set) Set {
	s := r.scheduler
	s.Lock()
	old := c.mask
	newlyUnmasked := old &^ mask
	c.mask = mask

	var calls []pendingCall
	for n := Number(0); n <= MaxNumber && newlyUnmasked != 0; n++ {
		if !newlyUnmasked.Has(n) {
			continue
		}
		action, has := c.Action(n)
		if !has || action.Handler == nil {
			continue
		}
		if info, ok := r.takePendingLocked(bitOf(n)); ok {
			calls = append(calls, pendingCall{handler: action.Handler, info: info})
		}
	}
	s.Unlock()

	for i := range calls {
		calls[i].run()
	}
	return old
}
