package syncer

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [breaker.execute] while the breaker is open
// and the reset timeout has not yet elapsed. It counts as an ordinary
// delivery failure; affected incidents simply stay queued.
var ErrCircuitOpen = errors.New("syncer: collector circuit is open")

// breakerState is the operating mode of a [breaker].
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// String returns the human-readable name of the state.
func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker is a three-state circuit breaker around collector deliveries. It
// keeps a flapping or dead collector from being hammered on every probe tick
// while the queue is non-empty. Safe for concurrent use.
type breaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu              sync.Mutex
	state           breakerState
	consecutiveFail int
	lastFailure     time.Time
}

// newBreaker creates a breaker that opens after maxFailures consecutive
// failures and probes again after resetTimeout.
func newBreaker(maxFailures int, resetTimeout time.Duration) *breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        breakerClosed,
	}
}

// execute runs fn if the breaker allows it. In the open state it returns
// ErrCircuitOpen without calling fn; after the reset timeout a single probe
// call is let through and its outcome decides the next state.
func (b *breaker) execute(fn func() error) error {
	b.mu.Lock()
	if b.state == breakerOpen {
		if time.Since(b.lastFailure) < b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = breakerHalfOpen
		slog.Info("syncer: collector circuit half-open, probing")
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.lastFailure = time.Now()
		if b.state == breakerHalfOpen {
			// The probe failed; go straight back to open.
			b.state = breakerOpen
			slog.Warn("syncer: collector circuit re-opened")
			return err
		}
		b.consecutiveFail++
		if b.consecutiveFail >= b.maxFailures {
			b.state = breakerOpen
			slog.Warn("syncer: collector circuit opened",
				"consecutive_failures", b.consecutiveFail)
		}
		return err
	}

	if b.state != breakerClosed {
		slog.Info("syncer: collector circuit closed")
	}
	b.state = breakerClosed
	b.consecutiveFail = 0
	return nil
}

// currentState returns the state, accounting for an elapsed reset timeout.
func (b *breaker) currentState() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return breakerHalfOpen
	}
	return b.state
}
