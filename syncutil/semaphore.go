package syncutil

import (
	"github.com/joeycumines/go-rtkernel/errno"
	"github.com/joeycumines/go-rtkernel/internal/sched"
)

// Semaphore is a counting semaphore with optional maximum value and direct
// wake-to-waiter hand-off: a Post with at least one waiter
// transfers straight to the highest-priority waiter without ever
// incrementing the counter, so the counter only ever reflects tokens nobody
// is yet waiting for.
type Semaphore struct {
	scheduler *sched.Scheduler
	count     int
	max       int // 0 means unbounded
	waiters   *sched.WaiterList
}

// NewSemaphore constructs a semaphore with the given initial count. max, if
// non-zero, bounds Post from growing the count past it (Post then fails
// with EOVERFLOW instead).
func NewSemaphore(scheduler *sched.Scheduler, initial, max int) *Semaphore {
	return &Semaphore{
		scheduler: scheduler,
		count:     initial,
		max:       max,
		waiters:   sched.NewWaiterList(),
	}
}

// Post increments the semaphore, or — if a thread is already waiting —
// wakes the highest-priority waiter directly, handing it the token without
// ever touching the counter. Safe to call from ISR-simulating contexts (any
// goroutine, not just a kernel thread), since it never blocks.
func (sem *Semaphore) Post() error {
	s := sem.scheduler
	s.Lock()
	defer s.Unlock()
	if !sem.waiters.Empty() {
		next := sem.waiters.PopFront()
		s.UnblockLocked(next, sched.UnblockedExplicit)
		return nil
	}
	if sem.max > 0 && sem.count >= sem.max {
		return errno.EOVERFLOW
	}
	sem.count++
	return nil
}

// Wait blocks until a token is available.
func (sem *Semaphore) Wait() error {
	return sem.acquire(waitForever, 0)
}

// TryWait acquires a token only if one is immediately available, failing
// with EAGAIN otherwise. Never blocks and never consults the running
// thread, so like Post it is safe from ISR-simulating contexts — the
// kernel's own tick path leans on this via the queue's TryPush.
func (sem *Semaphore) TryWait() error {
	return sem.acquire(waitNone, 0)
}

// TryWaitFor blocks until a token is available or ticks elapse, whichever
// comes first.
func (sem *Semaphore) TryWaitFor(ticks uint64) error {
	return sem.acquire(waitDeadline, sem.scheduler.Now()+ticks)
}

// TryWaitUntil blocks until a token is available or the absolute tick
// deadline passes.
func (sem *Semaphore) TryWaitUntil(deadline uint64) error {
	return sem.acquire(waitDeadline, deadline)
}

func (sem *Semaphore) acquire(policy waitPolicy, deadline uint64) error {
	s := sem.scheduler
	s.Lock()
	if sem.count > 0 {
		sem.count--
		s.Unlock()
		return nil
	}
	if policy == waitNone {
		s.Unlock()
		return errno.EAGAIN
	}

	var deadlineTick uint64
	if policy == waitDeadline {
		deadlineTick = deadline
	}
	reason := s.BlockLocked(sem.waiters, deadlineTick)
	s.Unlock()

	switch reason {
	case sched.UnblockedExplicit:
		return nil
	case sched.UnblockedTimeout:
		return errno.ETIMEDOUT
	case sched.UnblockedSignal:
		return errno.EINTR
	default:
		return errno.EINVAL
	}
}
