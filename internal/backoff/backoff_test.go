package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock records sleeps instead of waiting.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func TestDelayDoubles(t *testing.T) {
	p := Policy{BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{5, 60 * time.Second}, // capped
		{40, 60 * time.Second},
		{-1, 2 * time.Second},
	}
	for _, c := range cases {
		if got := p.Delay(c.attempt); got != c.want {
			t.Errorf("Delay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	transient := errors.New("connection reset")
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    time.Minute,
		Retryable:   func(error) bool { return true },
	}

	clk := &fakeClock{}
	calls := 0
	err := p.Do(context.Background(), clk, func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	// Sleeps between attempts: 2s then 4s.
	if len(clk.sleeps) != 2 || clk.sleeps[0] != 2*time.Second || clk.sleeps[1] != 4*time.Second {
		t.Errorf("Unexpected sleep schedule: %v", clk.sleeps)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	terminal := errors.New("insufficient balance")
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Retryable:   func(err error) bool { return !errors.Is(err, terminal) },
	}

	clk := &fakeClock{}
	calls := 0
	err := p.Do(context.Background(), clk, func() error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("Expected terminal error returned, got %v", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("Terminal error must not be wrapped as retries exhausted")
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 call, got %d", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	transient := errors.New("504 gateway timeout")
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   func(error) bool { return true },
	}

	clk := &fakeClock{}
	calls := 0
	err := p.Do(context.Background(), clk, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, transient) {
		t.Error("Expected last error preserved in the wrap chain")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   func(error) bool { return true },
	}

	calls := 0
	err := p.Do(ctx, System(), func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call before cancelled sleep, got %d", calls)
	}
}
