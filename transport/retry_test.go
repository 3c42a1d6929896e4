package transport

import (
	"testing"
	"time"
)

func TestRetryConfig_Defaults(t *testing.T) {
	c := RetryConfig{}.withDefaults()

	if c.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", c.MaxAttempts)
	}
	if c.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", c.InitialDelay)
	}
	if c.Multiplier != 2 {
		t.Errorf("Multiplier = %v, want 2", c.Multiplier)
	}
	if c.MaxDelay != 0 {
		t.Errorf("MaxDelay = %v, want 0 zero value preserved", c.MaxDelay)
	}
}

func TestRetryConfig_DelayCurve(t *testing.T) {
	c := RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Second,
	}.withDefaults()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},  // capped
		{10, time.Second}, // still capped
	}

	for _, tt := range tests {
		if got := c.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryConfig_NoCap(t *testing.T) {
	c := RetryConfig{
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     0,
	}

	if got := c.Delay(5); got != 32*time.Second {
		t.Errorf("Delay(5) = %v, want 32s", got)
	}
}

func TestRetryConfig_NegativeAttemptClamped(t *testing.T) {
	c := RetryConfig{InitialDelay: time.Second, Multiplier: 2}

	if got := c.Delay(-1); got != time.Second {
		t.Errorf("Delay(-1) = %v, want 1s", got)
	}
}

func TestRetryConfig_OverflowGuard(t *testing.T) {
	c := RetryConfig{InitialDelay: time.Hour, Multiplier: 10}

	got := c.Delay(30)
	if got <= 0 {
		t.Errorf("Delay(30) = %v, want positive clamped value", got)
	}
}

func TestJitter_Bounds(t *testing.T) {
	base := time.Second

	for range 100 {
		got := jitter(base)
		if got < 750*time.Millisecond || got > 1250*time.Millisecond {
			t.Fatalf("jitter(1s) = %v, want within [750ms, 1250ms]", got)
		}
	}
}

func TestJitter_ZeroPassthrough(t *testing.T) {
	if got := jitter(0); got != 0 {
		t.Errorf("jitter(0) = %v, want 0", got)
	}
}
