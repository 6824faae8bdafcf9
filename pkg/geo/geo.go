// Package geo defines the geolocation capability port.
//
// The companion records a position opportunistically when an incident is
// created: a single bounded request, never a subscription. Implementations
// wrap whatever positioning source the host exposes. A Locator that cannot
// produce a fix in time should return an error; callers treat a missing
// position as acceptable and record the incident without one.
package geo

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by a Locator when the host has no positioning
// capability at all (as opposed to a transient failure to get a fix).
var ErrUnavailable = errors.New("geo: positioning unavailable")

// Position is a geographic coordinate pair captured at a point in time.
type Position struct {
	// Latitude in decimal degrees, positive north.
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees, positive east.
	Longitude float64 `json:"longitude"`

	// AccuracyMeters is the estimated error radius. Zero if unknown.
	AccuracyMeters float64 `json:"accuracy_meters,omitempty"`

	// CapturedAt is when the fix was obtained.
	CapturedAt time.Time `json:"captured_at"`
}

// Locator is the one-shot positioning port. Implementations must be safe for
// concurrent use.
type Locator interface {
	// Current returns the best available position. The caller bounds the wait
	// via ctx; implementations must return promptly once ctx is done.
	Current(ctx context.Context) (Position, error)
}

// Fixed is a Locator that always reports the same position. Useful for
// devices without positioning hardware that are configured with a home
// location, and in tests.
type Fixed struct {
	Position Position
}

// Current returns the configured position.
func (f *Fixed) Current(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	p := f.Position
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now().UTC()
	}
	return p, nil
}

// Ensure Fixed implements Locator at compile time.
var _ Locator = (*Fixed)(nil)
