package sched

import "github.com/joeycumines/go-rtkernel/internal/arch"

// State is a thread's scheduling state.
type State int

const (
	Created State = iota
	Runnable
	Blocked
	Suspended
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Runnable:
		return "runnable"
	case Blocked:
		return "blocked"
	case Suspended:
		return "suspended"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Policy selects round-robin quantum rotation vs. cooperative FIFO among
// equal-priority threads.
type Policy int

const (
	FIFO Policy = iota
	RoundRobin
)

// UnblockReason records why a blocked thread became Runnable again. Exactly
// one reason is ever recorded for a given block episode (the
// first-writer-wins rule); see [Scheduler.UnblockLocked].
type UnblockReason int

const (
	UnblockedNone UnblockReason = iota
	UnblockedExplicit
	UnblockedTimeout
	UnblockedSignal
)

// PriorityDonor is something that may be temporarily boosting a thread's
// effective priority while the thread holds it — concretely, a locked
// priority-inheritance or priority-protect mutex. Declared here (rather
// than in syncutil, which owns the concrete Mutex type) so TCB can hold a
// donor list without importing syncutil, which itself must import sched
// for TCB and Scheduler.
type PriorityDonor interface {
	// MaxDonatedPriority returns the priority this donor currently lends
	// to its owner. Mutexes compute this fresh from their own waiter list
	// (PI) or fixed ceiling (PP) on every call — there is nothing to
	// invalidate when a waiter's own priority changes transitively.
	MaxDonatedPriority() uint8
}

// MutexLike exposes the one fact about a locked mutex that priority
// inheritance's transitive propagation needs: who currently owns it. Like
// PriorityDonor, this avoids sched importing syncutil.
type MutexLike interface {
	Owner() *TCB
}

// TCB is a thread control block. All
// field access happens under the owning [Scheduler]'s lock except where
// noted.
type TCB struct {
	ID   uint64
	Name string

	basePriority uint8
	donors       []PriorityDonor

	policy           Policy
	quantum          int
	remainingQuantum int
	switchOwed       bool

	state State

	frame *arch.Frame

	// membership is the list (ready list or some primitive's waiter list)
	// this TCB currently belongs to, or nil if it is Current or not yet
	// started. Exactly one non-nil membership at a time.
	membership *WaiterList

	blockedOnMutex MutexLike

	lastUnblockReason UnblockReason

	entry   func() any
	exitVal any

	joiners *WaiterList

	// signalsReceiver is the thread's optional signals-receiver control
	// block. Held as any because sched cannot import the signals package
	// (signals depends on sched for TCB and the scheduler critical
	// section); the kernel's thread builder stores the concrete
	// *signals.Receiver here and type-asserts it back out.
	signalsReceiver any
}

// NewTCB constructs a TCB in the Created state. priority is the base
// (non-inherited) priority; 255 is most urgent, 0 least.
func NewTCB(id uint64, name string, priority uint8, policy Policy, quantum int, entry func() any) *TCB {
	return &TCB{
		ID:               id,
		Name:             name,
		basePriority:     priority,
		policy:           policy,
		quantum:          quantum,
		remainingQuantum: quantum,
		state:            Created,
		entry:            entry,
	}
}

// BasePriority returns the thread's configured, non-inherited priority.
func (t *TCB) BasePriority() uint8 { return t.basePriority }

// EffectivePriority returns the thread's current scheduling priority: its
// base priority, maxed against every resource it holds that is currently
// donating a boost (priority inheritance or a priority ceiling).
func (t *TCB) EffectivePriority() uint8 {
	p := t.basePriority
	for _, d := range t.donors {
		if dp := d.MaxDonatedPriority(); dp > p {
			p = dp
		}
	}
	return p
}

// State returns the thread's current scheduling state.
func (t *TCB) State() State { return t.state }

// Policy returns the thread's scheduling policy.
func (t *TCB) Policy() Policy { return t.policy }

// LastUnblockReason returns why the thread's most recent block episode
// ended. Valid only immediately after the thread resumes running.
func (t *TCB) LastUnblockReason() UnblockReason { return t.lastUnblockReason }

// BlockedOnMutex returns the mutex this thread is waiting to lock, or nil.
// Used by priority inheritance's transitive propagation walk.
func (t *TCB) BlockedOnMutex() MutexLike { return t.blockedOnMutex }

// SetBlockedOnMutex records (or clears, with nil) which mutex this thread
// is blocked trying to lock.
func (t *TCB) SetBlockedOnMutex(m MutexLike) { t.blockedOnMutex = m }

// AddDonor registers d as currently boosting this thread's priority, if it
// is not already registered. Idempotent: a mutex that already has
// outstanding waiters stays registered exactly once regardless of how many
// waiters arrive.
func (t *TCB) AddDonor(d PriorityDonor) {
	for _, existing := range t.donors {
		if existing == d {
			return
		}
	}
	t.donors = append(t.donors, d)
}

// RemoveDonor unregisters d. A no-op if d was never registered.
func (t *TCB) RemoveDonor(d PriorityDonor) {
	for i, existing := range t.donors {
		if existing == d {
			t.donors = append(t.donors[:i], t.donors[i+1:]...)
			return
		}
	}
}

func (t *TCB) resetQuantum() {
	t.remainingQuantum = t.quantum
}

// SignalsReceiver returns whatever receiver control block was attached by
// SetSignalsReceiver, or nil.
func (t *TCB) SignalsReceiver() any { return t.signalsReceiver }

// SetSignalsReceiver attaches the thread's signals-receiver control block.
// Called once, at thread construction, before the thread is spawned.
func (t *TCB) SetSignalsReceiver(r any) { t.signalsReceiver = r }

// Frame returns the architecture port handle for this thread.
func (t *TCB) Frame() *arch.Frame { return t.frame }

// SetFrame installs the architecture port handle for this thread. Used
// once, when adopting the boot goroutine as the idle thread (the frame is
// built before a TCB exists to own it) or by Scheduler.Spawn for every
// other thread.
func (t *TCB) SetFrame(f *arch.Frame) { t.frame = f }
