package syncer

import (
	"errors"
	"testing"
	"time"
)

var errRefused = errors.New("connection refused")

func failN(b *breaker, n int) {
	for range n {
		b.execute(func() error { return errRefused })
	}
}

// elapseResetTimeout rewinds the last failure so the breaker considers the
// reset timeout expired without the test having to sleep.
func elapseResetTimeout(b *breaker) {
	b.mu.Lock()
	b.lastFailure = time.Now().Add(-2 * b.resetTimeout)
	b.mu.Unlock()
}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()
	b := newBreaker(3, time.Hour)

	failN(b, 2)
	if got := b.currentState(); got != breakerClosed {
		t.Fatalf("state after 2 failures = %s, want closed", got)
	}

	failN(b, 1)
	if got := b.currentState(); got != breakerOpen {
		t.Fatalf("state after 3 failures = %s, want open", got)
	}

	called := false
	err := b.execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("execute while open = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Fatal("open breaker must not invoke fn")
	}
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	t.Parallel()
	b := newBreaker(2, time.Hour)
	failN(b, 2)
	elapseResetTimeout(b)

	if err := b.execute(func() error { return nil }); err != nil {
		t.Fatalf("probe after reset timeout: %v", err)
	}
	if got := b.currentState(); got != breakerClosed {
		t.Fatalf("state after successful probe = %s, want closed", got)
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	t.Parallel()
	b := newBreaker(2, time.Hour)
	failN(b, 2)
	elapseResetTimeout(b)

	if err := b.execute(func() error { return errRefused }); !errors.Is(err, errRefused) {
		t.Fatalf("failed probe = %v, want underlying error", err)
	}
	if got := b.currentState(); got != breakerOpen {
		t.Fatalf("state after failed probe = %s, want open", got)
	}
	if err := b.execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("execute right after reopen = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	b := newBreaker(3, time.Hour)
	failN(b, 2)
	if err := b.execute(func() error { return nil }); err != nil {
		t.Fatalf("execute: %v", err)
	}

	failN(b, 2)
	if got := b.currentState(); got != breakerClosed {
		t.Fatalf("state = %s, want closed after counter reset", got)
	}
}
