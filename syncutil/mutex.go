package syncutil

import (
	"github.com/joeycumines/go-rtkernel/errno"
	"github.com/joeycumines/go-rtkernel/internal/sched"
)

// maxPropagationDepth bounds the transitive priority-inheritance walk
// across nested mutexes. A thread legitimately holding more than this many nested PI
// mutexes simultaneously is a design smell this kernel declines to chase
// further; propagation simply stops, leaving the tail of the chain at its
// already-boosted priority from the previous round.
const maxPropagationDepth = 8

// Mutex is a lock supporting the Normal/Recursive/ErrorCheck recursion
// types and the None/PriorityInheritance/PriorityProtect priority
// protocols. The zero value is not usable; construct with NewMutex.
type Mutex struct {
	scheduler *sched.Scheduler
	protocol  Protocol
	recursion Recursion
	ceiling   uint8

	owner   *sched.TCB
	count   int
	waiters *sched.WaiterList
}

// NewMutex constructs a Mutex. scheduler must be the same scheduler that
// owns every thread that will lock it.
func NewMutex(scheduler *sched.Scheduler, opts ...MutexOption) *Mutex {
	cfg := resolveMutexOptions(opts)
	return &Mutex{
		scheduler: scheduler,
		protocol:  cfg.protocol,
		recursion: cfg.recursion,
		ceiling:   cfg.ceiling,
		waiters:   sched.NewWaiterList(),
	}
}

// Owner returns the thread currently holding the lock, or nil. Satisfies
// sched.MutexLike for transitive priority-inheritance propagation.
func (m *Mutex) Owner() *sched.TCB {
	return m.owner
}

// MaxDonatedPriority satisfies sched.PriorityDonor: the priority this
// mutex currently lends to its owner.
func (m *Mutex) MaxDonatedPriority() uint8 {
	switch m.protocol {
	case PriorityProtect:
		return m.ceiling
	case PriorityInheritance:
		if m.waiters.Empty() {
			return 0
		}
		return m.waiters.Front().EffectivePriority()
	default:
		return 0
	}
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() error {
	return m.acquire(waitForever, 0)
}

// TryLock acquires the mutex only if it is immediately available, failing
// with EBUSY otherwise. Never blocks.
func (m *Mutex) TryLock() error {
	return m.acquire(waitNone, 0)
}

// TryLockFor blocks until the mutex is acquired or ticks elapse, whichever
// comes first, failing with ETIMEDOUT on expiry.
func (m *Mutex) TryLockFor(ticks uint64) error {
	now := m.scheduler.Now()
	return m.acquire(waitDeadline, now+ticks)
}

// TryLockUntil blocks until the mutex is acquired or the absolute tick
// deadline passes, failing with ETIMEDOUT on expiry.
func (m *Mutex) TryLockUntil(deadline uint64) error {
	return m.acquire(waitDeadline, deadline)
}

type waitPolicy int

const (
	waitForever waitPolicy = iota
	waitNone
	waitDeadline
)

func (m *Mutex) acquire(policy waitPolicy, deadline uint64) error {
	s := m.scheduler
	s.Lock()
	self := s.CurrentLocked()

	if m.owner == self {
		switch m.recursion {
		case Recursive:
			m.count++
			s.Unlock()
			return nil
		default: // Normal, ErrorCheck
			s.Unlock()
			return errno.EDEADLK
		}
	}

	if m.owner == nil {
		if m.protocol == PriorityProtect && self.BasePriority() > m.ceiling {
			s.Unlock()
			return errno.EINVAL
		}
		m.owner = self
		m.count = 1
		if m.protocol != None {
			self.AddDonor(m)
			s.ReprioritizeLocked(self)
		}
		s.Unlock()
		return nil
	}

	if policy == waitNone {
		s.Unlock()
		return errno.EBUSY
	}

	self.SetBlockedOnMutex(m)
	m.waiters.Insert(self)
	if m.protocol == PriorityInheritance {
		propagatePriority(s, m, maxPropagationDepth)
	}

	var waitDeadlineTick uint64
	if policy == waitDeadline {
		waitDeadlineTick = deadline
	}
	reason := s.BlockLocked(m.waiters, waitDeadlineTick)
	s.Unlock()

	switch reason {
	case sched.UnblockedExplicit:
		// Ownership was already transferred to self by Unlock before it
		// was made Runnable; nothing further to do.
		return nil
	case sched.UnblockedTimeout:
		return errno.ETIMEDOUT
	case sched.UnblockedSignal:
		return errno.EINTR
	default:
		return errno.EINVAL
	}
}

// propagatePriority boosts m's owner to account for a new (or
// higher-priority) waiter, then walks up the chain: if the owner is itself
// blocked waiting on another PI mutex, that mutex's donation to its own
// owner is re-evaluated and the walk continues, up to depth levels.
// Precondition: s's lock held.
func propagatePriority(s *sched.Scheduler, m *Mutex, depth int) {
	owner := m.owner
	if owner == nil {
		return
	}
	owner.AddDonor(m)
	s.ReprioritizeLocked(owner)

	if depth <= 1 {
		return
	}
	next, ok := owner.BlockedOnMutex().(*Mutex)
	if !ok || next == nil || next.protocol != PriorityInheritance {
		return
	}
	propagatePriority(s, next, depth-1)
}

// Unlock releases the mutex. Returns EPERM if the calling thread does not
// own it.
func (m *Mutex) Unlock() error {
	s := m.scheduler
	s.Lock()
	self := s.CurrentLocked()
	if m.owner != self {
		s.Unlock()
		return errno.EPERM
	}
	m.unlockLocked(s)
	s.Unlock()
	return nil
}

// unlockLocked performs the release, assuming self (the caller) is the
// owner and s's lock is already held. Used directly by Unlock and by
// ConditionVariable.Wait, which must release the mutex atomically (with
// respect to a concurrent NotifyOne/NotifyAll) with beginning to wait —
// something only possible if both steps happen under the one scheduler
// critical section.
func (m *Mutex) unlockLocked(s *sched.Scheduler) {
	if m.count > 1 {
		m.count--
		return
	}

	self := m.owner
	if m.protocol != None {
		self.RemoveDonor(m)
		s.ReprioritizeLocked(self)
	}

	if m.waiters.Empty() {
		m.owner = nil
		m.count = 0
		return
	}

	next := m.waiters.PopFront()
	m.owner = next
	m.count = 1
	next.SetBlockedOnMutex(nil)
	// The new owner is recorded before UnblockLocked makes it Runnable,
	// so its priority boosts are already attached when it is dispatched.
	s.UnblockLocked(next, sched.UnblockedExplicit)
}
