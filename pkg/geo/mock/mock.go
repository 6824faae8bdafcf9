// Package mock provides a test double for the geo package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/salama-app/salama/pkg/geo"
)

// Locator is a mock implementation of geo.Locator.
type Locator struct {
	mu sync.Mutex

	// Pos is returned by Current when Err is nil.
	Pos geo.Position

	// Err, if non-nil, is returned by every Current call.
	Err error

	// Delay, if set, makes Current wait for the delay or ctx cancellation,
	// whichever comes first. Used to exercise timeout paths.
	Delay func(ctx context.Context) error

	// CurrentCalls counts invocations of Current.
	CurrentCalls int
}

// Current records the call and returns Pos, Err.
func (l *Locator) Current(ctx context.Context) (geo.Position, error) {
	l.mu.Lock()
	l.CurrentCalls++
	delay := l.Delay
	pos, err := l.Pos, l.Err
	l.mu.Unlock()

	if delay != nil {
		if derr := delay(ctx); derr != nil {
			return geo.Position{}, derr
		}
	}
	if err != nil {
		return geo.Position{}, err
	}
	return pos, nil
}

// Calls returns the number of Current calls. Thread-safe.
func (l *Locator) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.CurrentCalls
}

// Ensure Locator implements geo.Locator at compile time.
var _ geo.Locator = (*Locator)(nil)
