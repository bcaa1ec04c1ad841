// Package signals implements the kernel's signal subsystem: generated
// (stateless, coalescing) and queued (carrying a value, each instance kept
// distinct up to a bounded capacity) signals, per-thread masks and handler
// associations, and blocking wait for pending signals.
//
// A thread's handler associations are kept in a small fixed-capacity,
// linearly-scanned table rather than a map; SetAction fails with EAGAIN
// once that table is full and the signal number being associated isn't
// already in it. Calling SetMask to unblock a signal number that already
// has a pending instance and a registered handler triggers immediate
// delivery, exactly as if the signal had just arrived.
//
// Simulation note: real signal delivery interrupts the target thread's
// instruction stream to run the handler on its own stack before resuming.
// This module has no instruction stream to interrupt (see
// internal/arch/doc.go for the matching note on quantum preemption), so a
// handler registered via SetAction runs synchronously on whichever
// goroutine generated or queued the signal, immediately after the pending
// state is updated and any blocked wait is interrupted. This is a
// deliberate, documented simplification, not an oversight.
package signals
