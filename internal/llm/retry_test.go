package llm

import (
	"context"
	"testing"
	"time"
)

func TestCalculateBackoffBounds(t *testing.T) {
	initial := 500 * time.Millisecond
	maxDelay := 3 * time.Second

	if got := CalculateBackoff(0, initial, maxDelay); got != 0 {
		t.Errorf("CalculateBackoff(0) = %v, want 0", got)
	}

	for attempt := 1; attempt <= 10; attempt++ {
		got := CalculateBackoff(attempt, initial, maxDelay)
		if got < 0 || got > maxDelay {
			t.Errorf("CalculateBackoff(%d) = %v, outside [0, %v]", attempt, got, maxDelay)
		}
	}
}

func TestCalculateBackoffGrowsCap(t *testing.T) {
	initial := 100 * time.Millisecond
	maxDelay := time.Second

	// The cap, not individual samples, grows exponentially. Sample a few
	// times and check every value stays under min(max, initial*2^(n-1)).
	for attempt := 1; attempt <= 6; attempt++ {
		ceiling := initial * (1 << (attempt - 1))
		if ceiling > maxDelay {
			ceiling = maxDelay
		}
		for range 20 {
			if got := CalculateBackoff(attempt, initial, maxDelay); got > ceiling {
				t.Fatalf("CalculateBackoff(%d) = %v, exceeds cap %v", attempt, got, ceiling)
			}
		}
	}
}

func TestSleepRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, time.Minute); err != context.Canceled {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if err := Sleep(ctx, 0); err != nil {
		t.Errorf("Sleep(0) = %v, want nil even when cancelled", err)
	}
}

func TestHasSufficientBudget(t *testing.T) {
	if !HasSufficientBudget(context.Background(), time.Hour) {
		t.Error("no deadline should mean unlimited budget")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if HasSufficientBudget(ctx, time.Minute) {
		t.Error("10ms deadline cannot cover a one-minute operation")
	}
}
