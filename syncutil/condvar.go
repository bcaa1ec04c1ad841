package syncutil

import (
	"github.com/joeycumines/go-rtkernel/errno"
	"github.com/joeycumines/go-rtkernel/internal/sched"
)

// ConditionVariable supports the wait/notify pattern over an
// externally-supplied Mutex, following the pthread_cond_wait convention of
// not owning the mutex itself: the same condition variable can be used
// with different mutexes across calls, though doing so concurrently from
// multiple waiters is the caller's responsibility to avoid.
type ConditionVariable struct {
	scheduler *sched.Scheduler
	waiters   *sched.WaiterList
}

// NewConditionVariable constructs an empty condition variable.
func NewConditionVariable(scheduler *sched.Scheduler) *ConditionVariable {
	return &ConditionVariable{
		scheduler: scheduler,
		waiters:   sched.NewWaiterList(),
	}
}

// Wait atomically unlocks m and blocks the calling thread until notified,
// then re-locks m before returning, even if the wait failed. The caller
// must hold m.
func (c *ConditionVariable) Wait(m *Mutex) error {
	return c.wait(m, waitForever, 0)
}

// WaitFor is Wait bounded by a relative tick duration, returning ETIMEDOUT
// on expiry.
func (c *ConditionVariable) WaitFor(m *Mutex, ticks uint64) error {
	return c.wait(m, waitDeadline, c.scheduler.Now()+ticks)
}

// WaitUntil is Wait bounded by an absolute tick deadline, returning
// ETIMEDOUT on expiry.
func (c *ConditionVariable) WaitUntil(m *Mutex, deadline uint64) error {
	return c.wait(m, waitDeadline, deadline)
}

func (c *ConditionVariable) wait(m *Mutex, policy waitPolicy, deadline uint64) error {
	s := c.scheduler
	s.Lock()
	self := s.CurrentLocked()
	if m.owner != self {
		s.Unlock()
		return errno.EPERM
	}

	// Releasing the mutex and beginning to wait happen under the same
	// held lock, so a concurrent NotifyOne/NotifyAll can never land in the
	// gap between them (the classic condition-variable atomicity
	// guarantee).
	m.unlockLocked(s)

	var deadlineTick uint64
	if policy == waitDeadline {
		deadlineTick = deadline
	}
	reason := s.BlockLocked(c.waiters, deadlineTick)
	s.Unlock()

	lockErr := m.Lock()
	if lockErr != nil {
		return lockErr
	}
	switch reason {
	case sched.UnblockedTimeout:
		return errno.ETIMEDOUT
	case sched.UnblockedSignal:
		return errno.EINTR
	default:
		return nil
	}
}

// NotifyOne wakes the highest-priority waiting thread, if any.
func (c *ConditionVariable) NotifyOne() {
	s := c.scheduler
	s.Lock()
	defer s.Unlock()
	if !c.waiters.Empty() {
		s.UnblockLocked(c.waiters.PopFront(), sched.UnblockedExplicit)
	}
}

// NotifyAll wakes every waiting thread.
func (c *ConditionVariable) NotifyAll() {
	s := c.scheduler
	s.Lock()
	defer s.Unlock()
	for !c.waiters.Empty() {
		s.UnblockLocked(c.waiters.PopFront(), sched.UnblockedExplicit)
	}
}
