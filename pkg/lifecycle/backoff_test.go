package lifecycle

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_NextDoublesAndCaps(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 300*time.Millisecond)

	bases := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, base := range bases {
		if b.Current() != base {
			t.Fatalf("attempt %d: Current() = %v, want %v", i, b.Current(), base)
		}
		d := b.Next()
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if d < lo || d > hi {
			t.Errorf("attempt %d: Next() = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}

	b.Reset()
	if b.Current() != 100*time.Millisecond {
		t.Errorf("Current() after Reset = %v", b.Current())
	}
}

func TestBackoff_WaitHonorsContext(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestBackoff_Wait(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Millisecond)
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}
