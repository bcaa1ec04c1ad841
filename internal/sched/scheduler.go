package sched

import (
	"sync"

	"github.com/joeycumines/go-rtkernel/internal/arch"
)

// TimerService is the subset of *timer.Wheel the scheduler needs to arm and
// cancel timed-block deadlines. Declared here, implemented there, so that
// sched need not import timer (and timer need not import sched — it has no
// reason to know what a TCB is).
type TimerService interface {
	Schedule(deadline uint64, period uint64, callback func()) CancelHandle
}

// CancelHandle cancels a previously scheduled timer. Canceling a timer that
// already fired is a no-op.
type CancelHandle interface {
	Cancel()
}

// Scheduler is the kernel's single scheduler instance.
//
// Two families of method exist. Self-locking methods (NextID, Now,
// AddStarting, Spawn, Join, Yield, CheckIn, TickCount, Idle, Start) take the
// lock themselves and are safe to call standalone. "Locked" methods
// (CurrentLocked, BlockLocked, UnblockLocked, ReprioritizeLocked) assume the
// caller already holds the lock via Lock/Unlock, and exist so that
// synchronization primitives in other packages (syncutil, queue, signals)
// can compose several scheduler operations into one atomic critical
// section.
type Scheduler struct {
	mu sync.Mutex

	port  arch.Port
	idle  *TCB
	ready *WaiterList

	current *TCB
	nowTick uint64

	timers TimerService

	// sleepers holds threads parked in SleepFor/SleepUntil. Unlike every
	// other waiter list in this kernel, nothing ever explicitly unblocks a
	// member of this one — a sleeper leaves it only via its own armed
	// timeout or a signal interruption.
	sleepers *WaiterList

	// suspended holds threads parked in Suspend. Suspension is not a wait
	// on any primitive: no timeout is ever armed and signals do not
	// interrupt it (the Suspended state is not Blocked, so UnblockLocked
	// refuses to touch it) — only an explicit Resume makes the thread
	// Runnable again.
	suspended *WaiterList

	nextID uint64
}

// New constructs a scheduler using port for context switches.
func New(port arch.Port) *Scheduler {
	return &Scheduler{
		port:      port,
		ready:     NewWaiterList(),
		sleepers:  NewWaiterList(),
		suspended: NewWaiterList(),
	}
}

// SetTimerService wires the software timer wheel used to arm timed-block
// deadlines. Must be called before any BlockLocked call with a non-zero
// deadline.
func (s *Scheduler) SetTimerService(ts TimerService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = ts
}

// NextID returns a fresh, monotonically increasing thread ID.
func (s *Scheduler) NextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// Current returns the currently running thread, for ThisThread-style use
// from a kernel thread's own body. The result is only meaningful when
// called from a kernel thread (from an arbitrary goroutine it is a racy
// snapshot, fine for diagnostics only).
func (s *Scheduler) Current() *TCB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Now returns the current tick count.
func (s *Scheduler) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowTick
}

// Lock enters the scheduler's single critical section. Exported for use by
// synchronization primitives that must perform bookkeeping atomically with
// scheduler state changes. Every Lock must be paired with an Unlock, even
// across a BlockLocked call (it releases and reacquires internally around
// the actual park, transparently to the caller).
func (s *Scheduler) Lock() { s.mu.Lock() }

// Unlock leaves the critical section entered by Lock.
func (s *Scheduler) Unlock() { s.mu.Unlock() }

// CurrentLocked returns the currently running thread. Precondition: caller
// holds the lock.
func (s *Scheduler) CurrentLocked() *TCB { return s.current }

// Idle designates t as the idle thread: always Runnable, dispatched only
// when the ready list is otherwise empty, never itself placed in the ready
// list. Must be called once, before Start.
func (s *Scheduler) Idle(t *TCB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.state = Runnable
	s.idle = t
}

// AddStarting adds t to the ready list in the Runnable state. Used for
// threads created after the scheduler has started.
func (s *Scheduler) AddStarting(t *TCB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.state = Runnable
	t.resetQuantum()
	s.ready.Insert(t)
	s.maybePreempt(t)
}

// Start performs one dispatch from the idle thread: the calling goroutine,
// which must already have adopted its frame into the idle TCB via Idle,
// switches to the highest-priority Runnable thread and blocks until the
// idle thread is next scheduled again (i.e. until every other thread is
// blocked, suspended, or terminated). Returns false without switching if
// nothing but idle is Runnable.
//
// The kernel's idle loop calls this repeatedly — a real idle thread is
// `for (;;) wfi;`, and each wakeup out of wfi re-enters the dispatcher the
// same way. A single call is not enough: threads unblocked by a tick after
// the system has gone fully quiescent have no running thread left to yield
// to them, so the idle thread itself must come back and hand them the CPU.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	next := s.pickNextLocked()
	s.current = next
	idleFrame := s.idle.frame
	sameThread := next == s.idle
	s.mu.Unlock()
	if sameThread {
		return false
	}
	s.port.SwitchTo(idleFrame, next.frame)
	return true
}

// Suspend parks the calling thread in the Suspended state until some other
// thread calls Resume on it. Unlike a block on a primitive, suspension has
// no timeout and is not interrupted by signal delivery.
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	self := s.current
	self.state = Suspended
	self.lastUnblockReason = UnblockedNone
	s.suspended.Insert(self)
	s.dispatchLocked(self)
	s.mu.Unlock()
}

// Resume makes a suspended thread Runnable again, reporting whether it was
// actually suspended (false means t was in some other state and nothing
// was done).
func (s *Scheduler) Resume(t *TCB) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.state != Suspended {
		return false
	}
	s.suspended.Remove(t)
	t.state = Runnable
	t.lastUnblockReason = UnblockedExplicit
	t.resetQuantum()
	s.ready.Insert(t)
	s.maybePreempt(t)
	return true
}

// Spawn builds the architecture frame for t (spawning its goroutine) and
// adds it to the ready list. t.entry runs on
// that goroutine once t is first dispatched; its return value becomes the
// value a later Join observes.
func (s *Scheduler) Spawn(t *TCB) {
	t.frame = s.port.Initialize(
		func() { t.exitVal = t.entry() },
		func() { s.onThreadReturn(t) },
	)
	s.AddStarting(t)
}

// onThreadReturn runs on the terminating thread's own goroutine immediately
// after its entry function returns. It wakes any joiners and performs a
// final, unparking handoff to the next Runnable thread — this goroutine
// never runs again after this call returns.
func (s *Scheduler) onThreadReturn(t *TCB) {
	s.mu.Lock()
	t.state = Terminated
	if t.joiners != nil {
		for !t.joiners.Empty() {
			w := t.joiners.PopFront()
			w.state = Runnable
			w.lastUnblockReason = UnblockedExplicit
			s.ready.Insert(w)
		}
	}
	next := s.pickNextLocked()
	s.current = next
	s.mu.Unlock()
	s.port.SwitchTo(nil, next.frame)
}

// Join blocks the calling thread until t terminates, then returns t's entry
// function's return value. Returns immediately if t has already terminated.
func (s *Scheduler) Join(t *TCB) any {
	s.mu.Lock()
	if t.state == Terminated {
		v := t.exitVal
		s.mu.Unlock()
		return v
	}
	if t.joiners == nil {
		t.joiners = NewWaiterList()
	}
	self := s.current
	self.state = Blocked
	t.joiners.Insert(self)
	s.dispatchLocked(self)
	s.mu.Unlock()
	return t.exitVal
}

// pickNextLocked returns the highest-priority Runnable thread, popping it
// from the ready list, falling back to idle (never removed from the ready
// list since it is never a member of it).
func (s *Scheduler) pickNextLocked() *TCB {
	if s.ready.Empty() {
		return s.idle
	}
	return s.ready.PopFront()
}

// dispatchLocked switches from the calling thread (self, who must already
// have had its new state/membership recorded by the caller) to the
// highest-priority Runnable thread, then blocks until self is resumed.
// Must be called with the lock held; returns with the lock held again.
func (s *Scheduler) dispatchLocked(self *TCB) {
	next := s.pickNextLocked()
	if next == self {
		// Nothing else to run; stay Current without a real switch.
		return
	}
	outgoing := self.frame
	s.current = next
	s.mu.Unlock()
	s.port.SwitchTo(outgoing, next.frame)
	s.mu.Lock()
}

// maybePreempt flags a switch as owed if candidate now outranks whatever is
// Current. Per the cooperative-preemption model (internal/arch/doc.go) this
// does not itself force a switch — it only matters once the Current
// thread's own goroutine calls CheckIn, Yield, or a blocking primitive.
// Precondition: lock held.
func (s *Scheduler) maybePreempt(candidate *TCB) {
	if s.current == nil {
		return
	}
	if candidate.EffectivePriority() > s.current.EffectivePriority() {
		s.current.switchOwed = true
	}
}

// BlockLocked moves the calling thread (which must be Current) onto list in
// the Blocked state, arms a timeout if deadlineTick is non-zero, and parks
// until some other code calls UnblockLocked on it. Returns the reason the
// thread was resumed. Precondition: caller holds the lock (via Lock); it is
// released and reacquired internally around the actual park, and is held
// again on return.
func (s *Scheduler) BlockLocked(list *WaiterList, deadlineTick uint64) UnblockReason {
	self := s.current
	self.state = Blocked
	self.lastUnblockReason = UnblockedNone
	// Mutex.acquire inserts self into list itself (for every protocol),
	// before calling BlockLocked, so propagatePriority can see this
	// waiter while computing the boost to hand the owner. Every other
	// caller relies on BlockLocked to do the insertion.
	if self.membership != list {
		list.Insert(self)
	}

	var cancel CancelHandle
	if deadlineTick != 0 && s.timers != nil {
		cancel = s.timers.Schedule(deadlineTick, 0, func() {
			s.mu.Lock()
			s.unblockLocked(self, UnblockedTimeout)
			s.mu.Unlock()
		})
	}

	s.dispatchLocked(self)

	if cancel != nil {
		cancel.Cancel()
	}
	return self.lastUnblockReason
}

// UnblockLocked moves t from whatever list it is waiting on back to
// Runnable and onto the ready list, recording reason. A no-op (returns
// false) if t is not currently Blocked — this is the first-writer-wins
// rule: whichever of a natural wake, a timeout, or a signal interruption
// reaches UnblockLocked first wins, every later call for the same block
// episode is inert. Precondition: caller holds the
// lock.
func (s *Scheduler) UnblockLocked(t *TCB, reason UnblockReason) bool {
	return s.unblockLocked(t, reason)
}

func (s *Scheduler) unblockLocked(t *TCB, reason UnblockReason) bool {
	if t.state != Blocked {
		return false
	}
	if t.membership != nil {
		t.membership.Remove(t)
	}
	t.blockedOnMutex = nil
	t.lastUnblockReason = reason
	t.state = Runnable
	t.resetQuantum()
	s.ready.Insert(t)
	s.maybePreempt(t)
	return true
}

// Yield rotates the calling thread (must be Current) to the tail of its
// priority level if another Runnable thread shares that level, and
// dispatches that thread. A no-op if no peer is ready to run.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	defer s.mu.Unlock()
	self := s.current
	self.switchOwed = false
	if s.ready.Empty() || s.ready.Front().EffectivePriority() < self.EffectivePriority() {
		return
	}
	self.state = Runnable
	s.ready.Insert(self)
	s.dispatchLocked(self)
}

// SleepFor blocks the calling thread for ticks ticks, the relative form of
// SleepUntil. Built the same way Mutex.TryLockFor computes its
// deadline: relative-to-now, then delegated to the absolute form.
func (s *Scheduler) SleepFor(ticks uint64) UnblockReason {
	return s.SleepUntil(s.Now() + ticks)
}

// SleepUntil blocks the calling thread until the scheduler's tick count
// reaches deadline, or until a signal interrupts the sleep early. Unlike
// every other BlockLocked caller, a timeout here is the thread's normal,
// successful wake-up, not a failure — callers distinguish only
// UnblockedSignal (a handled signal cutting the sleep short).
func (s *Scheduler) SleepUntil(deadline uint64) UnblockReason {
	s.mu.Lock()
	reason := s.BlockLocked(s.sleepers, deadline)
	s.mu.Unlock()
	return reason
}

// CheckIn is a cooperative preemption point: if a higher-priority thread
// became Runnable since the calling thread last ran, or its round-robin
// quantum was exhausted by TickCount, this carries out the switch now. Safe
// (and a no-op) to call when nothing is owed. See internal/arch/doc.go for
// why this module cannot force the switch without the running thread's
// cooperation.
func (s *Scheduler) CheckIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	self := s.current
	if !self.switchOwed {
		return
	}
	self.switchOwed = false
	self.resetQuantum()
	self.state = Runnable
	s.ready.Insert(self)
	s.dispatchLocked(self)
}

// ReprioritizeLocked re-sorts t within whatever list currently holds it
// (the ready list or a primitive's waiter list) after its effective
// priority has changed — e.g. a donor was added or removed by a mutex
// lock/unlock. If t is Current and no longer outranks the ready list front
// it flags a switch owed for the next CheckIn. Precondition: lock held.
func (s *Scheduler) ReprioritizeLocked(t *TCB) {
	if t.membership != nil {
		t.membership.Reinsert(t)
		return
	}
	if t == s.current {
		s.maybePreempt(t)
	}
}

// TickCount advances the scheduler's clock by one tick, decrementing the
// running thread's round-robin quantum (flagging a switch owed on
// exhaustion), and returns the new tick count. The kernel's tick driver
// passes the returned value to the software timer wheel's Advance after
// this call has released the lock, and hands any fired timers to the
// dedicated software-timer thread, so no callback ever runs inside a
// scheduler critical section (see the timer package doc).
func (s *Scheduler) TickCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowTick++
	self := s.current
	if self != nil && self != s.idle && self.policy == RoundRobin {
		self.remainingQuantum--
		if self.remainingQuantum <= 0 {
			self.switchOwed = true
		}
	}
	return s.nowTick
}
