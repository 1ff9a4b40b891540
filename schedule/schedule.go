// Package schedule abstracts one-shot timers so that session-scoped work
// (poll intervals, health checks, delayed reloads) can be driven by a fake
// clock in tests.
package schedule

import "time"

// Timer is a pending callback
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// Scheduler runs callbacks after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemScheduler struct{}

// System returns a Scheduler backed by time.AfterFunc
func System() Scheduler {
	return systemScheduler{}
}

func (systemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// StopAll stops every non-nil timer
func StopAll(timers ...Timer) {
	for _, t := range timers {
		if t != nil {
			t.Stop()
		}
	}
}
