// Package queue implements the kernel's bounded message queues:
// fixed-capacity, priority-ordered with FIFO-among-equal-priority ties,
// blocking push/pop with the usual Try/TryFor/TryUntil non-blocking and
// timed variants.
//
// Slot accounting is built on two syncutil.Semaphore instances, one
// counting free slots and one counting filled slots, reusing the
// semaphore's blocking and hand-off semantics rather than re-implementing
// them from scratch.
package queue
