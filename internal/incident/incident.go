// Package incident defines the incident model and the durable local queue
// that holds incidents until they are delivered to the collector.
//
// Incidents are append-only: once written they are never mutated, only
// removed after confirmed delivery. The queue preserves insertion order so
// older incidents are delivered first.
package incident

import (
	"context"
	"errors"
	"time"

	"github.com/salama-app/salama/pkg/geo"
)

// ErrStoreClosed is returned by store operations after Close.
var ErrStoreClosed = errors.New("incident: store is closed")

// Type classifies an incident.
type Type string

const (
	// TypeEmergency is an active distress alert.
	TypeEmergency Type = "emergency"

	// TypeSafe records that the user declared themselves safe again.
	TypeSafe Type = "safe"
)

// IsValid reports whether t is a recognised incident type.
func (t Type) IsValid() bool {
	return t == TypeEmergency || t == TypeSafe
}

// String returns the wire name of the type.
func (t Type) String() string { return string(t) }

// Incident is a recorded emergency or safe-status event.
//
// ID and Timestamp are assigned by the store on append when empty; all fields
// are immutable afterwards.
type Incident struct {
	// ID is the unique identifier, assigned at creation.
	ID string `json:"id"`

	// Timestamp is the creation time in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Type is the incident classification.
	Type Type `json:"type"`

	// Location is the position captured at creation time, if one was
	// available. Never back-filled.
	Location *geo.Position `json:"location,omitempty"`

	// DangerWords holds the raw utterance fragments that triggered
	// auto-escalation. Present only for danger-word emergencies.
	DangerWords []string `json:"danger_words,omitempty"`
}

// Store is the durable incident queue shared by the voice engine, manual UI
// actions (writers) and the sync coordinator (reader + deleter).
//
// Implementations must be safe for concurrent use and must survive process
// restart.
type Store interface {
	// Append persists inc, assigning ID and Timestamp if they are empty, and
	// returns the stored record. A persistence failure is returned to the
	// caller; the store's contents are unchanged on error.
	Append(ctx context.Context, inc Incident) (Incident, error)

	// PendingCount returns the number of incidents currently queued. The
	// count is recomputed from the persisted set, never cached.
	PendingCount(ctx context.Context) (int, error)

	// Drain returns all queued incidents in insertion order without removing
	// them.
	Drain(ctx context.Context) ([]Incident, error)

	// Remove deletes exactly the incidents with the given IDs. Unknown IDs
	// are ignored, so calling Remove twice with the same set is a no-op.
	Remove(ctx context.Context, ids []string) error

	// ClearAll empties the queue. Administrative escape hatch; delivery code
	// uses Remove so incidents appended mid-flush are never dropped.
	ClearAll(ctx context.Context) error
}
