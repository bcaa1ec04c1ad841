package kernel

import (
	"github.com/joeycumines/go-rtkernel/internal/sched"
	"github.com/joeycumines/go-rtkernel/timer"
)

// ScheduleTimer arms a software timer: callback runs on the dedicated
// software-timer thread (never in tick context) once the kernel's tick
// count reaches deadline, and again every period ticks thereafter if
// period is non-zero. Periodic timers re-arm by adding
// period to the deadline that just fired, so delayed ticks produce
// catch-up firings on the original cadence rather than drift.
func (k *Kernel) ScheduleTimer(deadline, period uint64, callback func()) *timer.Timer {
	return k.wheel.Schedule(timer.Tick(deadline), timer.Tick(period), timer.Callback(callback))
}

// CancelTimer disarms t before its next firing. Canceling a timer that has
// already fired (or was already canceled) is a harmless no-op.
func (k *Kernel) CancelTimer(t *timer.Timer) {
	k.wheel.Cancel(t)
}

// timerAdapter satisfies sched.TimerService by wrapping a *timer.Wheel,
// whose Schedule/Cancel pair takes the Wheel itself rather than exposing
// Cancel on the returned *timer.Timer. sched only needs to arm and cancel
// deadlines, never to read a timer back, so the adapter is this thin.
type timerAdapter struct {
	wheel *timer.Wheel
}

func (a *timerAdapter) Schedule(deadline uint64, period uint64, callback func()) sched.CancelHandle {
	t := a.wheel.Schedule(timer.Tick(deadline), timer.Tick(period), timer.Callback(callback))
	return &timerCancelHandle{wheel: a.wheel, timer: t}
}

type timerCancelHandle struct {
	wheel *timer.Wheel
	timer *timer.Timer
}

func (h *timerCancelHandle) Cancel() {
	h.wheel.Cancel(h.timer)
}
