package sched

import (
	"testing"

	"github.com/joeycumines/go-rtkernel/internal/arch"
	"github.com/stretchr/testify/assert"
)

func newTestScheduler() *Scheduler {
	return New(arch.NewNullPort())
}

func TestAddStartingOrdersByPriority(t *testing.T) {
	s := newTestScheduler()
	idle := NewTCB(s.NextID(), "idle", 0, FIFO, 0, nil)
	idle.frame = &arch.Frame{}
	s.Idle(idle)

	low := NewTCB(s.NextID(), "low", 10, FIFO, 0, nil)
	high := NewTCB(s.NextID(), "high", 200, FIFO, 0, nil)
	mid := NewTCB(s.NextID(), "mid", 100, FIFO, 0, nil)

	s.AddStarting(low)
	s.AddStarting(high)
	s.AddStarting(mid)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, high, s.pickNextLocked())
	assert.Equal(t, mid, s.pickNextLocked())
	assert.Equal(t, low, s.pickNextLocked())
	// Ready list now empty; falls back to idle.
	assert.Equal(t, idle, s.pickNextLocked())
}

func TestEqualPriorityIsFIFO(t *testing.T) {
	s := newTestScheduler()
	a := NewTCB(s.NextID(), "a", 50, FIFO, 0, nil)
	b := NewTCB(s.NextID(), "b", 50, FIFO, 0, nil)
	c := NewTCB(s.NextID(), "c", 50, FIFO, 0, nil)
	s.AddStarting(a)
	s.AddStarting(b)
	s.AddStarting(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, a, s.pickNextLocked())
	assert.Equal(t, b, s.pickNextLocked())
	assert.Equal(t, c, s.pickNextLocked())
}

func TestUnblockLockedIsFirstWriterWins(t *testing.T) {
	s := newTestScheduler()
	list := NewWaiterList()
	tcb := NewTCB(s.NextID(), "t", 10, FIFO, 0, nil)
	tcb.state = Blocked
	list.Insert(tcb)

	s.mu.Lock()
	first := s.unblockLocked(tcb, UnblockedExplicit)
	second := s.unblockLocked(tcb, UnblockedTimeout)
	s.mu.Unlock()

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, UnblockedExplicit, tcb.LastUnblockReason())
	assert.Equal(t, Runnable, tcb.State())
}

func TestReprioritizeLockedResortsWaiterList(t *testing.T) {
	s := newTestScheduler()
	list := NewWaiterList()
	low := NewTCB(s.NextID(), "low", 10, FIFO, 0, nil)
	mid := NewTCB(s.NextID(), "mid", 50, FIFO, 0, nil)
	low.state, mid.state = Blocked, Blocked
	list.Insert(low)
	list.Insert(mid)
	assert.Equal(t, mid, list.Front())

	low.AddDonor(fixedDonor(100))
	s.mu.Lock()
	s.ReprioritizeLocked(low)
	s.mu.Unlock()

	assert.Equal(t, low, list.Front())
}

type fixedDonor uint8

func (f fixedDonor) MaxDonatedPriority() uint8 { return uint8(f) }

func TestTickCountExhaustsRoundRobinQuantum(t *testing.T) {
	s := newTestScheduler()
	rr := NewTCB(s.NextID(), "rr", 10, RoundRobin, 2, nil)
	s.current = rr

	assert.Equal(t, uint64(1), s.TickCount())
	assert.False(t, rr.switchOwed)
	assert.Equal(t, uint64(2), s.TickCount())
	assert.True(t, rr.switchOwed)
}

func TestTickCountIgnoresIdleAndFIFO(t *testing.T) {
	s := newTestScheduler()
	idle := NewTCB(s.NextID(), "idle", 0, RoundRobin, 1, nil)
	s.idle = idle
	s.current = idle
	s.TickCount()
	assert.False(t, idle.switchOwed)

	fifo := NewTCB(s.NextID(), "fifo", 10, FIFO, 1, nil)
	s.current = fifo
	s.TickCount()
	assert.False(t, fifo.switchOwed)
}

func TestEffectivePriorityTracksHighestDonor(t *testing.T) {
	tcb := NewTCB(1, "t", 10, FIFO, 0, nil)
	assert.Equal(t, uint8(10), tcb.EffectivePriority())

	tcb.AddDonor(fixedDonor(50))
	assert.Equal(t, uint8(50), tcb.EffectivePriority())

	tcb.AddDonor(fixedDonor(5))
	assert.Equal(t, uint8(50), tcb.EffectivePriority())

	tcb.RemoveDonor(fixedDonor(50))
	assert.Equal(t, uint8(10), tcb.EffectivePriority())
}
