package notify

import "time"

// Handle identifies a scheduled callback.
type Handle any

// Scheduler abstracts timer scheduling so the debouncer can run against a
// virtual clock in tests.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// timerScheduler is the wall-clock Scheduler.
type timerScheduler struct{}

// NewTimerScheduler returns a Scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) Schedule(d time.Duration, fn func()) Handle {
	return time.AfterFunc(d, fn)
}

func (timerScheduler) Cancel(h Handle) {
	if t, ok := h.(*time.Timer); ok {
		t.Stop()
	}
}
