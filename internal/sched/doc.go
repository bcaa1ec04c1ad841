// Package sched implements the scheduler core: the thread control block,
// the priority-ordered ready list, and the state machine driving
// add/block/unblock/yield/tick/dispatch.
//
// All mutable scheduler state — the ready list, every waiter list handed
// out by [NewWaiterList], and every TCB's state/priority/donor fields — is
// protected by a single lock owned by [Scheduler]: one coarse critical
// section standing in for a BASEPRI-style interrupt mask, rather than
// per-structure locks, so priority inheritance's cross-structure
// propagation (a mutex waiter list affecting another mutex's owner) never
// has to reason about lock ordering.
package sched
