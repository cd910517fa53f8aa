package app

import (
	"time"

	"github.com/bft-labs/tickquery/internal/ports"
)

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ ports.Clock = SystemClock{}
