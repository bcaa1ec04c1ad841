package kernel

import (
	"sync"
	"time"

	"github.com/joeycumines/go-rtkernel/internal/arch"
	"github.com/joeycumines/go-rtkernel/internal/sched"
	"github.com/joeycumines/go-rtkernel/queue"
	"github.com/joeycumines/go-rtkernel/timer"
)

// Kernel is the single running instance assembling the scheduler, the
// software timer wheel, and the architecture port (see doc.go). New wires
// them together; Run hands the calling goroutine to the scheduler as the
// idle thread and starts the software-timer thread.
type Kernel struct {
	scheduler *sched.Scheduler
	wheel     *timer.Wheel
	port      arch.Port
	logger    *Logger

	idle *sched.TCB

	softTimerPriority uint8
	// fired hands batches of due timers from Tick to the dedicated
	// software-timer thread. It is a kernel queue, not a raw Go channel,
	// so that the consumer thread blocks on it via the scheduler's own
	// cooperative block/dispatch path rather than a native channel select
	// that would never hand control back to the scheduler.
	fired *queue.Queue[[]*timer.Timer]

	runOnce  sync.Once
	stopped  chan struct{}
	shutdown chan struct{}
}

// New assembles a Kernel. Call Run once, from the goroutine that should
// become the idle thread, to start dispatch.
func New(opts ...Option) *Kernel {
	cfg := resolveOptions(opts)

	k := &Kernel{
		wheel:             timer.New(),
		port:              cfg.port,
		logger:            cfg.logger,
		softTimerPriority: cfg.softTimerPriority,
		stopped:           make(chan struct{}),
		shutdown:          make(chan struct{}),
	}
	k.scheduler = sched.New(cfg.port)
	k.fired = queue.New[[]*timer.Timer](k.scheduler, cfg.softTimerQueueCap)
	k.scheduler.SetTimerService(&timerAdapter{wheel: k.wheel})
	return k
}

// Scheduler returns the kernel's scheduler, for use by the syncutil, queue,
// and signals packages, and by application code constructing threads
// directly against sched.NewTCB rather than NewThread.
func (k *Kernel) Scheduler() *sched.Scheduler { return k.scheduler }

// Now returns the current tick count.
func (k *Kernel) Now() uint64 { return k.scheduler.Now() }

// Current returns the currently running thread — the ThisThread handle.
// Meaningful only when called from a kernel thread's own body.
func (k *Kernel) Current() *Thread { return k.scheduler.Current() }

// Run adopts the calling goroutine as the kernel's idle thread, spawns the
// dedicated software-timer thread, and runs the idle loop: dispatch the
// highest-priority Runnable thread, and when control comes back (everything
// else blocked, suspended, or terminated) either dispatch again or wait for
// a tick to make someone Runnable — the wfi-in-a-loop body every RTOS idle
// thread has. Run blocks until Stop completes; call it on its own goroutine
// and drive time forward with Tick from another.
func (k *Kernel) Run() {
	k.runOnce.Do(func() {
		k.idle = sched.NewTCB(k.scheduler.NextID(), "idle", 0, sched.FIFO, 0, nil)
		k.idle.SetFrame(k.port.AdoptCurrent())
		k.scheduler.Idle(k.idle)

		softTimer := k.NewThread("kernel.softtimer", k.softTimerPriority, sched.FIFO, 0, func() any {
			k.runSoftwareTimerThread()
			return nil
		})
		k.Spawn(softTimer)

		k.logDebug().Log("kernel starting")
	})
	for {
		select {
		case <-k.shutdown:
			return
		default:
		}
		if !k.scheduler.Start() {
			// Nothing Runnable but idle; stand in for wfi until the next
			// tick can wake someone.
			time.Sleep(50 * time.Microsecond)
		}
	}
}

// Tick advances the kernel's notion of time by one tick: it ticks the
// scheduler (which may flag a round-robin switch owed) and advances the
// software timer wheel, handing any fired timers to the dedicated
// software-timer thread for execution outside of this call.
// Safe to call from a goroutine other than any kernel thread's own — the
// real analogue is a periodic hardware tick ISR, which is why handoff uses
// TryPush (never blocks) rather than Push.
func (k *Kernel) Tick() {
	now := k.scheduler.TickCount()
	fired := k.wheel.Advance(timer.Tick(now))
	if len(fired) == 0 {
		return
	}
	k.logTrace().Uint64("tick", now).Int("fired", len(fired)).Log("timers due")
	if err := k.fired.TryPush(fired, 0); err != nil {
		k.logDebug().Err(err).Log("software timer queue full, dropping fired batch")
	}
}

// Stop signals the software-timer thread to exit (by pushing a nil
// sentinel batch), waits for it to do so, then ends Run's idle loop.
// Threads already spawned are left exactly as they are; Stop does not tear
// down the scheduler. Call at most once, and never from a kernel thread
// (it would wait on its own dispatch).
func (k *Kernel) Stop() {
	for k.fired.TryPush(nil, 255) != nil {
		time.Sleep(time.Millisecond)
	}
	<-k.stopped
	close(k.shutdown)
}

// runSoftwareTimerThread is the dedicated thread body that executes fired
// timer callbacks outside of any scheduler critical section.
// It blocks on k.fired between batches via the scheduler's own
// queue, so it participates in priority-based dispatch exactly like any
// other kernel thread rather than parking outside the scheduler's control.
func (k *Kernel) runSoftwareTimerThread() {
	defer close(k.stopped)
	for {
		batch, err := k.fired.Pop()
		if err != nil {
			continue
		}
		if batch == nil {
			return
		}
		for _, t := range batch {
			t.Fire()
		}
	}
}
