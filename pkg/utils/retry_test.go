package utils

import (
	"context"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	if got := CalculateBackoff(time.Second, 0); got != 0 {
		t.Errorf("attempt 0: got %v", got)
	}
	for attempt := 1; attempt <= 4; attempt++ {
		base := 100 * time.Millisecond
		nominal := base * time.Duration(1<<uint(attempt))
		got := CalculateBackoff(base, attempt)
		if got < nominal*3/4 || got > nominal*5/4 {
			t.Errorf("attempt %d: got %v, want within 25%% of %v", attempt, got, nominal)
		}
	}
	if got := CalculateBackoff(time.Second, 100); got > MaxBackoff*5/4 {
		t.Errorf("expected cap near %v, got %v", MaxBackoff, got)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); err == nil {
		t.Error("expected context error")
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
