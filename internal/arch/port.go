// Package arch defines the architecture port contract required by the
// scheduler and provides the two ports this module ships:
// [GoroutinePort], the real simulation backing every kernel thread with a
// parked goroutine, and [NullPort], a minimal double used to unit-test the
// scheduler against the contract in isolation.
package arch

// Frame is the architecture-specific handle for one thread's execution
// context. On real hardware this would be the stack pointer plus the
// buffer it points into; here it is a
// handoff (resume) channel plus a completion channel, since Go has no user-level
// stack to save and restore directly.
type Frame struct {
	resume     chan struct{}
	terminated chan struct{}
}

// Port is the contract the scheduler requires from an architecture
// backing: build an initial frame for a new thread, adopt the
// currently-running context for the boot/idle thread, and perform a context
// switch between two frames.
type Port interface {
	// Initialize constructs the frame for a new thread whose body is
	// entry. entry must not be invoked until the frame is first switched
	// to. onReturn is invoked (the "thread return trap") after entry
	// returns, before the frame is marked terminated.
	Initialize(entry func(), onReturn func()) *Frame

	// AdoptCurrent builds a frame for the calling goroutine itself,
	// without constructing a new one — the equivalent of adopting
	// main()'s already-live stack, used once for the
	// boot context that becomes the idle thread.
	AdoptCurrent() *Frame

	// SwitchTo performs the context switch: a outgoing frame (nil if
	// switching away from no live frame, e.g. during Start()) is parked
	// and incoming is resumed. It must not return until incoming has
	// definitely started running (or already has), so the scheduler's
	// invariant of exactly one Current thread holds at every observable
	// point, not just eventually.
	SwitchTo(outgoing, incoming *Frame)

	// Park blocks the calling goroutine (which must be running on incoming
	// of the most recent SwitchTo targeting it) until the next SwitchTo
	// resumes it. The scheduler itself does not call Park: its block,
	// yield and check-in paths park the outgoing thread inside SwitchTo
	// (see doc.go for why preemption here is cooperative at kernel entry
	// points rather than instruction-level).
	Park(self *Frame)

	// Terminated reports whether entry has returned for this frame.
	Terminated(f *Frame) bool
}
