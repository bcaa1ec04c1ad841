// Package syncutil implements the kernel's blocking synchronization
// primitives: a mutex supporting the Normal / Recursive / ErrorCheck
// recursion types and the None / PriorityInheritance / PriorityProtect
// protocols, a counting semaphore with direct wake-to-waiter hand-off, and
// a condition variable with atomic release-and-reacquire of an associated
// mutex.
//
// Mutex and Semaphore blocking operations come in four forms: a plain
// blocking call, TryLock/TryWait (never blocks), TryLockFor/TryWaitFor
// (relative tick deadline), and TryLockUntil/TryWaitUntil (absolute tick
// deadline); ConditionVariable has Wait, WaitFor and WaitUntil. Each
// primitive funnels its forms into one internal routine parameterized by a wait
// policy and deadline tick, built directly on the scheduler's block and
// unblock operations.
package syncutil
