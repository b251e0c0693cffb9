package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelforge/internal/services"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		base    time.Duration
		limit   time.Duration
		want    time.Duration
	}{
		{name: "negative attempt", attempt: -3, base: time.Second, want: time.Second},
		{name: "first retry", attempt: 0, base: 2 * time.Second, want: 2 * time.Second},
		{name: "doubles", attempt: 3, base: 2 * time.Second, want: 16 * time.Second},
		{name: "capped", attempt: 3, base: time.Second, limit: 5 * time.Second, want: 5 * time.Second},
		{name: "below cap", attempt: 1, base: time.Second, limit: 5 * time.Second, want: 2 * time.Second},
		{name: "zero base", attempt: 4, base: 0, limit: time.Second, want: 0},
		{name: "huge attempt stays positive", attempt: 500, base: time.Second, want: time.Second << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Backoff(tt.attempt, tt.base, tt.limit); got != tt.want {
				t.Fatalf("Backoff(%d, %s, %s) = %s, want %s", tt.attempt, tt.base, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSleepUsesSleeper(t *testing.T) {
	var slept []time.Duration
	if err := services.Sleep(context.Background(), 3*time.Second, func(d time.Duration) { slept = append(slept, d) }); err != nil {
		t.Fatalf("Sleep returned error: %v", err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
	if err := services.Sleep(context.Background(), 0, func(time.Duration) { t.Fatal("zero delay should not sleep") }); err != nil {
		t.Fatalf("zero delay returned error: %v", err)
	}
}

func TestSleepStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := services.Sleep(ctx, time.Hour, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := services.Sleep(ctx, 0, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for zero delay, got %v", err)
	}
}
