package arch

// GoroutinePort is the real architecture port: each Frame is backed by a
// dedicated goroutine parked on a handoff channel. See doc.go for the
// preemption model this implies.
type GoroutinePort struct{}

// NewGoroutinePort constructs the default port.
func NewGoroutinePort() *GoroutinePort {
	return &GoroutinePort{}
}

func newFrame() *Frame {
	return &Frame{
		resume:     make(chan struct{}),
		terminated: make(chan struct{}),
	}
}

// Initialize builds a new frame and immediately spawns its goroutine, which
// parks waiting for the first SwitchTo before running entry. This is the
// analogue of a stack constructor writing an initial exception frame so
// that on first dispatch execution resumes at the entry function — here
// "resumes" means "the parked goroutine is allowed to proceed past its
// first receive".
func (p *GoroutinePort) Initialize(entry func(), onReturn func()) *Frame {
	f := newFrame()
	go func() {
		<-f.resume
		entry()
		onReturn()
		close(f.terminated)
	}()
	return f
}

// AdoptCurrent builds a frame for the calling goroutine without spawning a
// new one — the port equivalent of adopting main()'s already-live stack
// instead of constructing a fresh one. The caller becomes responsible for
// calling SwitchTo/Park on the returned frame itself once it no longer
// wants to run.
func (p *GoroutinePort) AdoptCurrent() *Frame {
	return newFrame()
}

// SwitchTo hands the resume token to incoming, then — if outgoing is
// non-nil — blocks the calling goroutine (which must be outgoing's own)
// until it is resumed by a future SwitchTo. Called by the currently
// running thread's own goroutine, never from a third goroutine, which is
// what keeps "exactly one Current thread" a hard invariant: the caller
// does not return from SwitchTo until it has itself been rescheduled.
func (p *GoroutinePort) SwitchTo(outgoing, incoming *Frame) {
	incoming.resume <- struct{}{}
	if outgoing != nil {
		<-outgoing.resume
	}
}

// Park blocks the calling goroutine (self's own) until resumed. Equivalent
// to SwitchTo(self, <whoever the scheduler resumes next>) from self's point
// of view, exposed separately for call sites that already handed off
// control via some other path (e.g. the boot goroutine after adopting).
func (p *GoroutinePort) Park(self *Frame) {
	<-self.resume
}

// Terminated reports whether entry has returned.
func (p *GoroutinePort) Terminated(f *Frame) bool {
	select {
	case <-f.terminated:
		return true
	default:
		return false
	}
}
