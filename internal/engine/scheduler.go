package engine

import "time"

// Scheduler defers a callback. The engine uses it for rate-limit
// resumes and ladder backoff so tests can substitute a manual clock.
type Scheduler interface {
	ScheduleAfter(d time.Duration, fn func())
}

type timerScheduler struct{}

// NewTimerScheduler returns the production scheduler backed by
// time.AfterFunc.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) ScheduleAfter(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, fn)
}
