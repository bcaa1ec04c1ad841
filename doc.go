// Package rtkernel is a preemptive, priority-based real-time kernel,
// simulated entirely in userspace Go — a thread is a goroutine parked on a
// channel handoff rather than a saved CPU register file, but the
// scheduling rules above that boundary (strict priority ordering, FIFO
// among ties, priority inheritance, no-drift software timers) are the
// real thing.
//
// # Architecture
//
// [github.com/joeycumines/go-rtkernel/kernel.Kernel] assembles a scheduler
// ([github.com/joeycumines/go-rtkernel/internal/sched.Scheduler]), a
// software timer wheel ([github.com/joeycumines/go-rtkernel/timer.Wheel]),
// and an architecture port
// ([github.com/joeycumines/go-rtkernel/internal/arch.Port]) into one
// running instance. Application code builds threads with
// [github.com/joeycumines/go-rtkernel/kernel.Kernel.NewThread], blocks them
// on the primitives in
// [github.com/joeycumines/go-rtkernel/syncutil] (mutex, semaphore,
// condition variable),
// [github.com/joeycumines/go-rtkernel/queue] (priority-ordered message
// queues), and
// [github.com/joeycumines/go-rtkernel/signals] (POSIX-style signal
// delivery), and drives time forward with
// [github.com/joeycumines/go-rtkernel/kernel.Kernel.Tick].
//
// # Preemption model
//
// Quantum expiry and priority-driven preemption are requested, not forced
// — see internal/arch's package doc for why, and why every thread body in
// this module calls CheckIn or a blocking primitive on a bounded
// cadence as a result.
//
// # Thread safety
//
// Every primitive in this module is safe to call from any goroutine, not
// just a kernel thread's own — this is what lets Kernel.Tick and signal
// generation simulate interrupt-context callers.
package rtkernel
