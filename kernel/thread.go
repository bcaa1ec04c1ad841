package kernel

import (
	"github.com/joeycumines/go-rtkernel/errno"
	"github.com/joeycumines/go-rtkernel/internal/sched"
	"github.com/joeycumines/go-rtkernel/signals"
)

// Thread is the kernel's thread handle — an alias for the scheduler's
// control block, exported here so application code outside this module can
// name the type (the sched package itself is internal).
type Thread = sched.TCB

// Policy selects how equal-priority threads share the processor.
type Policy = sched.Policy

// Re-exported policy values; see Policy.
const (
	FIFO       = sched.FIFO
	RoundRobin = sched.RoundRobin
)

// threadOptions holds the optional parts of a thread's static
// configuration.
type threadOptions struct {
	signals          bool
	queuedSignalsCap int
	signalActionsCap int
}

// ThreadOption configures a thread built by NewThread.
type ThreadOption interface {
	applyThread(*threadOptions)
}

type threadOptionFunc struct {
	fn func(*threadOptions)
}

func (o *threadOptionFunc) applyThread(cfg *threadOptions) { o.fn(cfg) }

// WithSignals gives the thread an embedded signals receiver and catcher.
// queuedCapacity bounds undelivered
// queued-signal instances; actionsCapacity bounds distinct handler
// associations. Retrieve the control block with SignalsOf.
func WithSignals(queuedCapacity, actionsCapacity int) ThreadOption {
	return &threadOptionFunc{func(cfg *threadOptions) {
		cfg.signals = true
		cfg.queuedSignalsCap = queuedCapacity
		cfg.signalActionsCap = actionsCapacity
	}}
}

func resolveThreadOptions(opts []ThreadOption) *threadOptions {
	cfg := &threadOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyThread(cfg)
	}
	return cfg
}

// NewThread builds a thread control block with a static configuration:
// priority, scheduling policy,
// round-robin quantum (ticks; ignored under FIFO), and any optional signals
// storage are fixed at creation. entry's return value becomes whatever a
// later Join observes. The thread is not runnable until passed to Spawn.
func (k *Kernel) NewThread(name string, priority uint8, policy Policy, quantum int, entry func() any, opts ...ThreadOption) *Thread {
	cfg := resolveThreadOptions(opts)
	t := sched.NewTCB(k.scheduler.NextID(), name, priority, policy, quantum, entry)
	if cfg.signals {
		catcher := signals.NewCatcher(cfg.signalActionsCap)
		t.SetSignalsReceiver(signals.NewReceiver(k.scheduler, t, catcher, cfg.queuedSignalsCap))
	}
	return t
}

// SignalsOf returns t's embedded signals receiver, or nil if t was built
// without WithSignals.
func SignalsOf(t *Thread) *signals.Receiver {
	r, _ := t.SignalsReceiver().(*signals.Receiver)
	return r
}

// Spawn starts t: its goroutine is created and it is added to the ready
// list. Safe to call before or after Run.
func (k *Kernel) Spawn(t *sched.TCB) {
	k.scheduler.Spawn(t)
}

// Join blocks the calling thread until t terminates, returning its entry
// function's return value.
func (k *Kernel) Join(t *sched.TCB) any {
	return k.scheduler.Join(t)
}

// Yield voluntarily gives up the remainder of the calling thread's
// scheduling slice to a same-priority peer, if one is ready.
func (k *Kernel) Yield() {
	k.scheduler.Yield()
}

// CheckIn is the cooperative preemption point application code running a
// long computation should call periodically, so priority preemption and
// round-robin rotation can actually take effect (internal/arch/doc.go).
func (k *Kernel) CheckIn() {
	k.scheduler.CheckIn()
}

// Suspend parks the calling thread in the Suspended state until another
// thread calls Resume on it. Unlike blocking on a primitive, suspension
// has no timeout and signal delivery does not cut it short.
func (k *Kernel) Suspend() {
	k.scheduler.Suspend()
}

// Resume makes a suspended thread runnable again, reporting whether t was
// actually suspended.
func (k *Kernel) Resume(t *Thread) bool {
	return k.scheduler.Resume(t)
}

// SleepFor blocks the calling thread for ticks ticks. Returns nil on
// normal expiry and errno.EINTR if a handled signal woke the thread
// early.
func (k *Kernel) SleepFor(ticks uint64) error {
	return sleepResult(k.scheduler.SleepFor(ticks))
}

// SleepUntil blocks the calling thread until the scheduler's tick count
// reaches deadline. Returns nil on normal expiry and
// errno.EINTR if a handled signal woke the thread early.
func (k *Kernel) SleepUntil(deadline uint64) error {
	return sleepResult(k.scheduler.SleepUntil(deadline))
}

// sleepResult translates a sleep's UnblockReason to an error. Unlike every
// other blocking primitive in this kernel, a sleep's timeout is its
// successful, expected outcome rather than ETIMEDOUT — only an interrupting
// signal is reported as an error.
func sleepResult(reason sched.UnblockReason) error {
	if reason == sched.UnblockedSignal {
		return errno.EINTR
	}
	return nil
}
