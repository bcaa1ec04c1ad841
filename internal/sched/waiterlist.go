package sched

import "github.com/joeycumines/go-rtkernel/internal/sortedlist"

// WaiterList is a priority-ordered, FIFO-among-equal-priority list of
// threads; the ready list and every primitive's waiter list share
// this exact ordering rule. It is reused unchanged by [Scheduler]'s own
// ready list and by every blocking primitive (mutex, semaphore, condition
// variable, queue, signal wait) so the tie-break rule lives in one place.
type WaiterList struct {
	l *sortedlist.List[*TCB]
}

// NewWaiterList constructs an empty, priority-ordered waiter list.
func NewWaiterList() *WaiterList {
	return &WaiterList{
		l: sortedlist.New[*TCB](func(a, b *TCB) bool {
			return a.EffectivePriority() > b.EffectivePriority()
		}),
	}
}

// Insert adds t to the list (at the tail of its priority level) and records
// the list as t's membership.
func (w *WaiterList) Insert(t *TCB) {
	t.membership = w
	w.l.Insert(t)
}

// Remove removes t if present, returning whether it was found. Clears t's
// membership either way it was this list's entry.
func (w *WaiterList) Remove(t *TCB) bool {
	found := w.l.Remove(func(x *TCB) bool { return x == t })
	if found && t.membership == w {
		t.membership = nil
	}
	return found
}

// Reinsert re-sorts t within the list after its effective priority has
// changed. A no-op if t is not currently a member.
func (w *WaiterList) Reinsert(t *TCB) {
	if t.membership != w {
		return
	}
	if w.l.Remove(func(x *TCB) bool { return x == t }) {
		w.l.Insert(t)
		t.membership = w
	}
}

// PopFront removes and returns the highest-priority (longest-waiting among
// ties) member, or nil if empty.
func (w *WaiterList) PopFront() *TCB {
	if w.l.Empty() {
		return nil
	}
	t := w.l.PopFront()
	if t.membership == w {
		t.membership = nil
	}
	return t
}

// Front returns the highest-priority member without removing it, or nil.
func (w *WaiterList) Front() *TCB {
	if w.l.Empty() {
		return nil
	}
	return w.l.Front()
}

// Len returns the number of members.
func (w *WaiterList) Len() int { return w.l.Len() }

// Empty reports whether the list has no members.
func (w *WaiterList) Empty() bool { return w.l.Empty() }

// Each calls fn for every member, highest priority first.
func (w *WaiterList) Each(fn func(*TCB)) { w.l.Each(fn) }
