package guard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})

	if b.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", b.config.FailureThreshold)
	}
	if b.config.Cooldown != 30*time.Second {
		t.Errorf("Cooldown = %v, want 30s", b.config.Cooldown)
	}
	if b.config.HalfOpenProbes != 1 {
		t.Errorf("HalfOpenProbes = %d, want 1", b.config.HalfOpenProbes)
	}
	if b.State() != BreakerClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute})
	testErr := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Allow() on attempt %d = %v", i, err)
		}
		b.Record(testErr)
	}

	if b.State() != BreakerOpen {
		t.Errorf("state = %v, want open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Allow() while open = %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2})
	testErr := errors.New("boom")

	b.Record(testErr)
	b.Record(nil)
	b.Record(testErr)

	if b.State() != BreakerClosed {
		t.Errorf("state = %v, want closed (failure streak broken)", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
		HalfOpenProbes:   1,
	})

	b.Record(errors.New("boom"))
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	if b.State() != BreakerHalfOpen {
		t.Fatalf("state after cooldown = %v, want half-open", b.State())
	}

	// First probe allowed, second rejected.
	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow() = %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("second probe Allow() = %v, want ErrBreakerOpen", err)
	}

	// Successful probe closes the circuit.
	b.Record(nil)
	if b.State() != BreakerClosed {
		t.Errorf("state after successful probe = %v, want closed", b.State())
	}
}

func TestBreaker_CancelReturnsProbeSlot(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
		HalfOpenProbes:   1,
	})

	b.Record(errors.New("boom"))
	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow() = %v", err)
	}

	// The request was never sent; cancelling frees the probe for the
	// next caller instead of closing or reopening the circuit.
	b.Cancel()

	if b.State() != BreakerHalfOpen {
		t.Errorf("state after Cancel() = %v, want half-open", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() after Cancel() = %v, want probe available", err)
	}
}

func TestBreaker_CancelKeepsFailureStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour})
	testErr := errors.New("boom")

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	b.Record(testErr)

	// A cancelled request must not reset the streak the way a recorded
	// success would.
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	b.Cancel()

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	b.Record(testErr)

	if b.State() != BreakerOpen {
		t.Errorf("state = %v, want open (streak preserved across Cancel)", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	b.Record(errors.New("boom"))
	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow() = %v", err)
	}
	b.Record(errors.New("still down"))

	if b.State() != BreakerOpen {
		t.Errorf("state after failed probe = %v, want open", b.State())
	}
}

func TestBreaker_IsFailurePredicate(t *testing.T) {
	counted := errors.New("counted")
	ignored := errors.New("ignored")

	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return errors.Is(err, counted) },
	})

	b.Record(ignored)
	if b.State() != BreakerClosed {
		t.Errorf("state = %v, want closed (error not counted)", b.State())
	}

	b.Record(counted)
	if b.State() != BreakerOpen {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string

	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange: func(from, to BreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.Record(errors.New("boom"))
	b.Reset()

	want := []string{"closed->open", "open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestBreaker_Do(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})

	calls := 0
	err := b.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Do() error = nil, want boom")
	}

	err = b.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Do() while open = %v, want ErrBreakerOpen", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (open circuit must not invoke op)", calls)
	}
}
