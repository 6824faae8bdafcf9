// Package mock provides test doubles for the recognizer package interfaces.
//
// Use Provider to verify that the caller starts sessions with the expected
// Config. Use Session to feed controlled Event values to the consumer.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	handle, _ := p.Start(ctx, cfg)
//	sess.Emit(recognizer.Event{Kind: recognizer.EventResult, Transcript: "help me"})
package mock

import (
	"context"
	"sync"

	"github.com/salama-app/salama/pkg/recognizer"
)

// StartCall records a single invocation of Provider.Start.
type StartCall struct {
	// Ctx is the context passed to Start.
	Ctx context.Context
	// Cfg is the Config passed to Start.
	Cfg recognizer.Config
}

// Provider is a mock implementation of recognizer.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by Start. If nil, Start returns a new Session.
	Session recognizer.Session

	// StartErr, if non-nil, is returned as the error from Start.
	StartErr error

	// StartCalls records every call to Start.
	StartCalls []StartCall
}

// Start records the call and returns Session, StartErr.
func (p *Provider) Start(ctx context.Context, cfg recognizer.Config) (recognizer.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartCalls = append(p.StartCalls, StartCall{Ctx: ctx, Cfg: cfg})
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(), nil
}

// Calls returns the number of Start invocations. Thread-safe.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.StartCalls)
}

// Ensure Provider implements recognizer.Provider at compile time.
var _ recognizer.Provider = (*Provider)(nil)

// Session is a mock implementation of recognizer.Session. Tests push events
// with Emit and terminate the stream with End.
type Session struct {
	mu     sync.Mutex
	events chan recognizer.Event
	closed bool

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewSession returns a Session with a buffered event channel.
func NewSession() *Session {
	return &Session{events: make(chan recognizer.Event, 16)}
}

// Emit sends ev to the session's event stream. Emit after End or Close
// panics, as would a real provider writing to a closed stream.
func (s *Session) Emit(ev recognizer.Event) {
	s.events <- ev
}

// End emits EventEnded and closes the stream, mimicking the host stopping
// recognition on its own. Safe to call once, before any Close.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.events <- recognizer.Event{Kind: recognizer.EventEnded}
	close(s.events)
}

// Events returns the event stream.
func (s *Session) Events() <-chan recognizer.Event {
	return s.events
}

// Close records the call, terminates the event stream the way a real
// provider does when the socket closes, and returns CloseErr on the first
// call.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return s.CloseErr
}

// Closed reports whether Close has been called. Thread-safe.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ensure Session implements recognizer.Session at compile time.
var _ recognizer.Session = (*Session)(nil)
