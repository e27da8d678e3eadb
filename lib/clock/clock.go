package clock

import (
	"time"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// Clock is the time source of the services; tests substitute a fixed one.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func System() Clock {
	return systemClock{}
}

// Fixed is a manually advanced clock.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time {
	return f.T
}

func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}

// Now is the response timestamp, always UTC.
func Now() string {
	return time.Now().UTC().Format(timestampLayout)
}

// Day truncates t to the start of its UTC day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current UTC day of c.
func Today(c Clock) time.Time {
	return Day(c.Now())
}
