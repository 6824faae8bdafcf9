// Package recognizer defines the speech-recognition capability port.
//
// The companion never processes raw audio. The host platform owns microphone
// access and continuous recognition; this port delivers the resulting events
// to the daemon. The central abstraction is Session: once opened, a session
// emits a single ordered stream of Event values — session lifecycle markers
// plus finalized transcripts. Interim hypotheses are not part of the port:
// the engine acts only on finals.
//
// Implementations must be safe for concurrent use.
package recognizer

import (
	"context"
	"errors"
)

// ErrUnsupportedCapability is returned by Provider.Start when the host has no
// speech-recognition capability. Callers should disable voice control rather
// than retry.
var ErrUnsupportedCapability = errors.New("recognizer: speech recognition not supported on this host")

// EventKind discriminates the Event union.
type EventKind int

const (
	// EventStarted is emitted once when the recognition session is live and
	// the microphone is open.
	EventStarted EventKind = iota

	// EventResult carries a finalized transcript.
	EventResult

	// EventError reports a recognizer-level failure. The session is dead
	// after an error; a new one must be started explicitly.
	EventError

	// EventEnded is emitted when the session terminates, whether by Close,
	// by error, or by the host stopping recognition.
	EventEnded
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a single occurrence within a recognition session.
type Event struct {
	// Kind identifies which fields are meaningful.
	Kind EventKind

	// Transcript is the finalized utterance text. Set only for EventResult.
	Transcript string

	// Err describes the failure. Set only for EventError.
	Err error
}

// Config describes the recognition session to open.
type Config struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US",
	// "sw-KE"). Required.
	Language string

	// Continuous keeps the session open across utterances instead of ending
	// after the first final result.
	Continuous bool
}

// Session is an open recognition session.
//
// Callers must call Close when the session is no longer needed. All methods
// must be safe for concurrent use.
type Session interface {
	// Events returns the ordered event stream for this session. The channel
	// is closed after the terminal EventEnded.
	Events() <-chan Event

	// Close terminates the session and releases host resources. Events
	// already buffered may still be read; no new results arrive after Close
	// returns. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over the host's recognition capability.
type Provider interface {
	// Start opens a continuous recognition session with the given
	// configuration. Returns ErrUnsupportedCapability (possibly wrapped) when
	// the host cannot recognise speech at all.
	Start(ctx context.Context, cfg Config) (Session, error)
}
