package queue

import (
	"sync"

	"github.com/joeycumines/go-rtkernel/internal/sched"
	"github.com/joeycumines/go-rtkernel/internal/sortedlist"
	"github.com/joeycumines/go-rtkernel/syncutil"
)

// entry is one queued value together with its priority and arrival
// sequence (ordered by priority, FIFO among ties).
type entry[T any] struct {
	value    T
	priority uint8
	seq      uint64
}

// Queue is a bounded, priority-ordered FIFO. The zero value
// is not usable; construct with New.
//
// RawQueue is Queue[byte], the undifferentiated raw byte queue: every
// element is a single byte. PushFIFO pushes at priority 0; Push still
// accepts any priority.
type Queue[T any] struct {
	capacity int
	free     *syncutil.Semaphore
	used     *syncutil.Semaphore

	mu      sync.Mutex
	slots   *sortedlist.List[entry[T]]
	nextSeq uint64
}

// RawQueue is the undifferentiated byte queue.
type RawQueue = Queue[byte]

// New constructs a queue with room for capacity elements.
func New[T any](scheduler *sched.Scheduler, capacity int) *Queue[T] {
	q := &Queue[T]{capacity: capacity}
	q.free = syncutil.NewSemaphore(scheduler, capacity, capacity)
	q.used = syncutil.NewSemaphore(scheduler, 0, capacity)
	q.slots = sortedlist.New[entry[T]](func(a, b entry[T]) bool {
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.seq < b.seq
	})
	return q
}

// Capacity returns the fixed number of slots the queue was built with.
func (q *Queue[T]) Capacity() int { return q.capacity }

// Push blocks until a free slot is available, then enqueues value at the
// given priority (higher values dequeue first; equal priorities dequeue in
// push order).
func (q *Queue[T]) Push(value T, priority uint8) error {
	if err := q.free.Wait(); err != nil {
		return err
	}
	q.insert(value, priority)
	return q.used.Post()
}

// PushFIFO pushes value at priority 0, for plain FIFO use.
func (q *Queue[T]) PushFIFO(value T) error {
	return q.Push(value, 0)
}

// TryPush enqueues value only if a slot is immediately free, failing with
// EAGAIN otherwise. Never blocks — the ISR-callable entry point.
func (q *Queue[T]) TryPush(value T, priority uint8) error {
	if err := q.free.TryWait(); err != nil {
		return err
	}
	q.insert(value, priority)
	return q.used.Post()
}

// TryPushFor blocks for at most ticks waiting for a free slot.
func (q *Queue[T]) TryPushFor(value T, priority uint8, ticks uint64) error {
	if err := q.free.TryWaitFor(ticks); err != nil {
		return err
	}
	q.insert(value, priority)
	return q.used.Post()
}

// TryPushUntil blocks until deadline (an absolute tick) waiting for a free
// slot.
func (q *Queue[T]) TryPushUntil(value T, priority uint8, deadline uint64) error {
	if err := q.free.TryWaitUntil(deadline); err != nil {
		return err
	}
	q.insert(value, priority)
	return q.used.Post()
}

func (q *Queue[T]) insert(value T, priority uint8) {
	q.mu.Lock()
	q.nextSeq++
	q.slots.Insert(entry[T]{value: value, priority: priority, seq: q.nextSeq})
	q.mu.Unlock()
}

// Pop blocks until a value is available, then removes and returns the
// highest-priority, longest-waiting one.
func (q *Queue[T]) Pop() (T, error) {
	var zero T
	if err := q.used.Wait(); err != nil {
		return zero, err
	}
	v := q.remove()
	if err := q.free.Post(); err != nil {
		return zero, err
	}
	return v, nil
}

// TryPop removes a value only if one is immediately available, failing
// with EAGAIN otherwise. Never blocks — the ISR-callable entry point.
func (q *Queue[T]) TryPop() (T, error) {
	var zero T
	if err := q.used.TryWait(); err != nil {
		return zero, err
	}
	v := q.remove()
	if err := q.free.Post(); err != nil {
		return zero, err
	}
	return v, nil
}

// TryPopFor blocks for at most ticks waiting for a value.
func (q *Queue[T]) TryPopFor(ticks uint64) (T, error) {
	var zero T
	if err := q.used.TryWaitFor(ticks); err != nil {
		return zero, err
	}
	v := q.remove()
	if err := q.free.Post(); err != nil {
		return zero, err
	}
	return v, nil
}

// TryPopUntil blocks until deadline (an absolute tick) waiting for a
// value.
func (q *Queue[T]) TryPopUntil(deadline uint64) (T, error) {
	var zero T
	if err := q.used.TryWaitUntil(deadline); err != nil {
		return zero, err
	}
	v := q.remove()
	if err := q.free.Post(); err != nil {
		return zero, err
	}
	return v, nil
}

func (q *Queue[T]) remove() T {
	q.mu.Lock()
	v := q.slots.PopFront()
	q.mu.Unlock()
	return v.value
}

// Len reports how many values are currently queued. Racy with concurrent
// pushes/pops by design (it takes no scheduler lock), intended for
// diagnostics only.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.slots.Len()
}
