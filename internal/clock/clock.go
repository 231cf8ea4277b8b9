package clock

import "time"

// Timer is the subset of *time.Timer the game loop relies on.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and scheduled callbacks so round timing can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// New returns the process wall clock.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
