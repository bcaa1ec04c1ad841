package syncutil_test

import (
	"testing"
	"time"

	"github.com/joeycumines/go-rtkernel/errno"
	"github.com/joeycumines/go-rtkernel/internal/sched"
	"github.com/joeycumines/go-rtkernel/kernel"
	"github.com/joeycumines/go-rtkernel/syncutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runKernel starts k on a background goroutine and drives its tick until
// done is closed, then stops it.
func runKernel(k *kernel.Kernel, done chan struct{}) {
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				time.Sleep(time.Millisecond)
				k.Tick()
			}
		}
	}()
	go k.Run()
	<-done
	k.Stop()
}

func TestPriorityInheritanceBoostsOwnerAndRestoresOnUnlock(t *testing.T) {
	k := kernel.New()
	mu := syncutil.NewMutex(k.Scheduler(), syncutil.WithProtocol(syncutil.PriorityInheritance))
	done := make(chan struct{})

	var lowEffectiveWhileBlocking, lowEffectiveAfterUnlock uint8
	var lowTCB *sched.TCB

	low := k.NewThread("low", 10, sched.FIFO, 0, func() any {
		require.NoError(t, mu.Lock())

		// Spawn the higher-priority waiter only once low already holds
		// the mutex, since the scheduler always dispatches strictly by
		// priority — spawning both up front would let high simply run
		// first against an uncontended mutex and never exercise
		// inheritance at all.
		high := k.NewThread("high", 200, sched.FIFO, 0, func() any {
			require.NoError(t, mu.Lock())
			require.NoError(t, mu.Unlock())
			close(done)
			return nil
		})
		k.Spawn(high)

		for i := 0; i < 50; i++ {
			k.CheckIn()
		}
		lowEffectiveWhileBlocking = lowTCB.EffectivePriority()
		require.NoError(t, mu.Unlock())
		lowEffectiveAfterUnlock = lowTCB.EffectivePriority()
		return nil
	})
	lowTCB = low

	k.Spawn(low)
	runKernel(k, done)

	assert.Equal(t, uint8(200), lowEffectiveWhileBlocking)
	assert.Equal(t, uint8(10), lowEffectiveAfterUnlock)
}

func TestRecursiveMutexAllowsNestedLockByOwner(t *testing.T) {
	k := kernel.New()
	mu := syncutil.NewMutex(k.Scheduler(), syncutil.WithRecursion(syncutil.Recursive))
	done := make(chan struct{})

	th := k.NewThread("t", 10, sched.FIFO, 0, func() any {
		require.NoError(t, mu.Lock())
		require.NoError(t, mu.Lock())
		require.NoError(t, mu.Unlock())
		require.NoError(t, mu.Unlock())
		assert.ErrorIs(t, mu.Unlock(), errno.EPERM)
		close(done)
		return nil
	})
	k.Spawn(th)
	runKernel(k, done)
}

func TestNormalMutexRejectsSelfRelock(t *testing.T) {
	k := kernel.New()
	mu := syncutil.NewMutex(k.Scheduler())
	done := make(chan struct{})

	th := k.NewThread("t", 10, sched.FIFO, 0, func() any {
		require.NoError(t, mu.Lock())
		assert.ErrorIs(t, mu.Lock(), errno.EDEADLK)
		require.NoError(t, mu.Unlock())
		close(done)
		return nil
	})
	k.Spawn(th)
	runKernel(k, done)
}

func TestTryLockFailsBusyWhenContended(t *testing.T) {
	k := kernel.New()
	mu := syncutil.NewMutex(k.Scheduler())
	done := make(chan struct{})

	holder := k.NewThread("holder", 50, sched.FIFO, 0, func() any {
		require.NoError(t, mu.Lock())

		taker := k.NewThread("taker", 60, sched.FIFO, 0, func() any {
			assert.ErrorIs(t, mu.TryLock(), errno.EBUSY)
			return nil
		})
		k.Spawn(taker)
		_ = k.Join(taker)

		require.NoError(t, mu.Unlock())
		close(done)
		return nil
	})
	k.Spawn(holder)
	runKernel(k, done)
}

func TestPriorityProtectRejectsAboveCeiling(t *testing.T) {
	k := kernel.New()
	mu := syncutil.NewMutex(k.Scheduler(), syncutil.WithProtocol(syncutil.PriorityProtect), syncutil.WithCeiling(50))
	done := make(chan struct{})

	th := k.NewThread("t", 100, sched.FIFO, 0, func() any {
		assert.ErrorIs(t, mu.Lock(), errno.EINVAL)
		close(done)
		return nil
	})
	k.Spawn(th)
	runKernel(k, done)
}

func TestPriorityInheritanceTimeoutRestoresOwnerBeforeWaiterResumes(t *testing.T) {
	k := kernel.New()
	mu := syncutil.NewMutex(k.Scheduler(), syncutil.WithProtocol(syncutil.PriorityInheritance))
	done := make(chan struct{})

	var boostedDuringWait, restoredAtTimeout uint8
	var lockErr error
	var lowTCB, highTCB *sched.TCB

	low := k.NewThread("low", 1, sched.FIFO, 0, func() any {
		require.NoError(t, mu.Lock())

		high := k.NewThread("high", 3, sched.FIFO, 0, func() any {
			lockErr = mu.TryLockFor(10)
			// The donated boost must already be gone by the time the
			// timed-out waiter resumes, not merely by unlock time.
			restoredAtTimeout = lowTCB.EffectivePriority()
			return nil
		})
		highTCB = high
		k.Spawn(high)
		k.CheckIn() // let high block on the mutex
		boostedDuringWait = lowTCB.EffectivePriority()

		// Keep holding the mutex across high's whole timed wait.
		require.NoError(t, k.SleepFor(20))

		require.NoError(t, mu.Unlock())
		k.Join(highTCB)
		close(done)
		return nil
	})
	lowTCB = low

	k.Spawn(low)
	runKernel(k, done)

	assert.Equal(t, uint8(3), boostedDuringWait)
	assert.Equal(t, uint8(1), restoredAtTimeout)
	assert.ErrorIs(t, lockErr, errno.ETIMEDOUT)
}

func TestTransitivePriorityInheritancePropagatesAcrossChain(t *testing.T) {
	k := kernel.New()
	m1 := syncutil.NewMutex(k.Scheduler(), syncutil.WithProtocol(syncutil.PriorityInheritance))
	m2 := syncutil.NewMutex(k.Scheduler(), syncutil.WithProtocol(syncutil.PriorityInheritance))
	done := make(chan struct{})

	var t1Eff, t2Eff uint8
	var t1TCB, t2TCB, t3TCB *sched.TCB

	t1 := k.NewThread("t1", 10, sched.FIFO, 0, func() any {
		require.NoError(t, m1.Lock())

		t2 := k.NewThread("t2", 30, sched.FIFO, 0, func() any {
			require.NoError(t, m2.Lock())
			require.NoError(t, m1.Lock())
			require.NoError(t, m1.Unlock())
			require.NoError(t, m2.Unlock())
			return nil
		})
		t2TCB = t2
		k.Spawn(t2)
		k.CheckIn() // t2 locks m2, then blocks on m1

		t3 := k.NewThread("t3", 200, sched.FIFO, 0, func() any {
			require.NoError(t, m2.Lock())
			require.NoError(t, m2.Unlock())
			return nil
		})
		t3TCB = t3
		k.Spawn(t3)
		k.CheckIn() // t3 blocks on m2; boost propagates m2 -> t2 -> m1 -> t1

		t1Eff = t1TCB.EffectivePriority()
		t2Eff = t2TCB.EffectivePriority()

		require.NoError(t, m1.Unlock())
		k.Join(t2TCB)
		k.Join(t3TCB)
		close(done)
		return nil
	})
	t1TCB = t1

	k.Spawn(t1)
	runKernel(k, done)

	assert.Equal(t, uint8(200), t1Eff)
	assert.Equal(t, uint8(200), t2Eff)
}
