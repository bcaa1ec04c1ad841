package signals

import "github.com/joeycumines/go-rtkernel/errno"

// association is one (number, action) pair.
type association struct {
	number Number
	action Action
}

// Catcher holds a thread's signal mask and handler associations.
// Associations are kept in a small fixed-capacity slice scanned linearly
// rather than indexed by number, so SetAction can fail with EAGAIN once
// the table is full (see doc.go).
type Catcher struct {
	capacity     int
	associations []association
	mask         Set
	receiver     *Receiver
}

// NewCatcher constructs a Catcher with room for capacity simultaneous
// handler associations, all signals initially unmasked.
func NewCatcher(capacity int) *Catcher {
	return &Catcher{capacity: capacity}
}

// SetAction associates action with number, replacing any existing
// association for that number. Fails with EAGAIN if the table is full and
// number is not already associated.
func (c *Catcher) SetAction(number Number, action Action) error {
	for i := range c.associations {
		if c.associations[i].number == number {
			c.associations[i].action = action
			return nil
		}
	}
	if len(c.associations) >= c.capacity {
		return errno.EAGAIN
	}
	c.associations = append(c.associations, association{number: number, action: action})
	return nil
}

// ClearAction removes number's association, if any.
func (c *Catcher) ClearAction(number Number) {
	for i := range c.associations {
		if c.associations[i].number == number {
			c.associations = append(c.associations[:i], c.associations[i+1:]...)
			return
		}
	}
}

// Action returns number's registered action and whether one is set.
func (c *Catcher) Action(number Number) (Action, bool) {
	for i := range c.associations {
		if c.associations[i].number == number {
			return c.associations[i].action, true
		}
	}
	return Action{}, false
}

// Mask returns the current signal mask.
func (c *Catcher) Mask() Set { return c.mask }

// SetMask replaces the signal mask and returns the previous one. Unmasking
// a number that already has a pending instance and a registered handler
// triggers immediate delivery of that instance, exactly as if it had just
// arrived.
//
// Once a Receiver is attached, GenerateSignal/QueueSignal may run
// concurrently from any goroutine, including ISR-simulating ones (their
// doc comments say so), and they read c.mask under the scheduler's
// critical section. So the mutation here must go through that same
// critical section too, or the two would race on c.mask unsynchronized —
// the mask is thread-local state mutated only by the owning thread or by
// holders of the scheduler critical section, and this is the owning
// thread becoming one of those holders for the duration of the change.
func (c *Catcher) SetMask(mask Set) Set {
	if c.receiver == nil {
		old := c.mask
		c.mask = mask
		return old
	}
	return c.receiver.setCatcherMask(c, mask)
}
