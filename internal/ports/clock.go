package ports

import "time"

// Clock is the time source of the tick schedule.
// Tests replace it to control when ticks fire.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// After delivers the current time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}
