// Package kernel assembles the scheduler, software timer wheel, and
// architecture port into the single running kernel instance — the one
// piece of deliberately mutable global-ish state in this module.
//
// It also hosts the static thread builder (NewThread: a fixed
// configuration surface rather than ad-hoc goroutine spawning, with
// optional embedded signals storage), the tick driver, and the dedicated
// software-timer thread that executes fired timer callbacks outside of any
// scheduler critical section.
package kernel
