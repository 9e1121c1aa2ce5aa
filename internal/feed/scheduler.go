package feed

import "time"

// Scheduler defers a single callback. The coalescer keeps at most one
// scheduled flush in flight per feed; Cancel must prevent a not-yet-started
// callback from running.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) Handle
}

// Handle cancels a scheduled callback.
type Handle interface {
	Cancel()
}

// TimerScheduler backs the Scheduler with time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return timerHandle{t: time.AfterFunc(delay, fn)}
}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() {
	h.t.Stop()
}
