package arch

// Package-level note on preemption.
//
// GoroutinePort backs every Frame with a parked goroutine. A context switch
// (SwitchTo) is always invoked by the currently-running frame's own
// goroutine: it hands the resume token to the incoming frame, then blocks
// itself on its own resume channel until some future switch resumes it
// again. This gives an exact analogue of "save callee-saved registers,
// pick the next thread, restore its registers, return" without a real
// stack to save, and preserves "exactly one thread is Current" as a hard
// invariant rather than an approximation: at most one goroutine is ever
// outside a Park/SwitchTo call at a time.
//
// The one place this diverges from real hardware: on real hardware, a tick
// ISR can force a context switch in the middle of an arbitrary instruction.
// A Go goroutine cannot be stopped mid-statement by another goroutine
// without runtime support this module intentionally does not depend on.
// Quantum expiry and priority-driven preemption are therefore *requested*
// by the scheduler's tick handler (it flags the running TCB) and *carried
// out* the next time that TCB's own goroutine calls into the scheduler —
// CheckIn, any blocking primitive, Yield, or Sleep. Every round-robin test in
// this module has its thread bodies call CheckIn on a bounded cadence, which
// is both how the simulation can preempt them and how real RTOS
// application code is written in practice.
