// Package wsbridge implements the recognizer port over a WebSocket bridge to
// the host UI.
//
// The host owns the microphone and the platform recognition engine; it exposes
// a local WebSocket endpoint that relays recognition events as JSON messages.
// This package dials that endpoint, translates the wire messages into
// recognizer.Event values, and presents them as a recognizer.Session.
//
// A dial failure with a capability-denied close reason maps to
// recognizer.ErrUnsupportedCapability so the caller can disable voice control.
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"

	"github.com/salama-app/salama/pkg/recognizer"
)

// Wire message types sent by the host bridge.
const (
	msgStarted     = "started"
	msgResult      = "result"
	msgError       = "error"
	msgEnded       = "ended"
	msgUnsupported = "unsupported"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithOrigin overrides the Origin header sent on the bridge handshake.
func WithOrigin(origin string) Option {
	return func(p *Provider) {
		p.origin = origin
	}
}

// Provider implements recognizer.Provider backed by the host bridge endpoint.
type Provider struct {
	endpoint string
	origin   string
}

// New creates a Provider that dials the bridge at endpoint (a ws:// or wss://
// URL). endpoint must be non-empty and parseable.
func New(endpoint string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("wsbridge: endpoint must not be empty")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("wsbridge: parse endpoint: %w", err)
	}
	p := &Provider{endpoint: endpoint}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Start dials the bridge and begins a recognition session. The language and
// continuous flags are sent as query parameters so the host can configure its
// engine before opening the microphone.
func (p *Provider) Start(ctx context.Context, cfg recognizer.Config) (recognizer.Session, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lang", cfg.Language)
	if cfg.Continuous {
		q.Set("continuous", "true")
	}
	u.RawQuery = q.Encode()

	opts := &websocket.DialOptions{}
	if p.origin != "" {
		opts.HTTPHeader = http.Header{"Origin": []string{p.origin}}
	}
	conn, _, err := websocket.Dial(ctx, u.String(), opts)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: dial: %w", err)
	}

	sess := &session{
		conn:   conn,
		events: make(chan recognizer.Event, 64),
		done:   make(chan struct{}),
	}
	sess.wg.Add(1)
	go sess.readLoop(ctx)

	return sess, nil
}

// Ensure Provider implements recognizer.Provider at compile time.
var _ recognizer.Provider = (*Provider)(nil)

// bridgeMessage is the JSON structure relayed by the host bridge.
type bridgeMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	IsFinal    bool   `json:"is_final,omitempty"`
	Message    string `json:"message,omitempty"`
}

// session is a live bridge session. It implements recognizer.Session.
type session struct {
	conn   *websocket.Conn
	events chan recognizer.Event

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Events returns the ordered event stream.
func (s *session) Events() <-chan recognizer.Event { return s.events }

// Close terminates the session cleanly. The host stops recognition when the
// socket closes, so no explicit stop message is needed.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.wg.Wait()
	})
	return nil
}

// readLoop receives JSON messages from the bridge and dispatches them as
// events. It emits a terminal EventEnded and closes the stream on exit.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	ended := false
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation. Make sure consumers see
			// a terminal event even if the bridge never sent one.
			if !ended {
				s.deliver(recognizer.Event{Kind: recognizer.EventEnded})
			}
			return
		}

		ev, ok := parseBridgeMessage(msg)
		if !ok {
			continue
		}
		// Interim hypotheses are not part of the port.
		if ev.Kind == recognizer.EventResult && ev.Transcript == "" {
			continue
		}
		s.deliver(ev)
		if ev.Kind == recognizer.EventEnded {
			ended = true
			return
		}
	}
}

// deliver sends ev unless the session has been closed locally.
func (s *session) deliver(ev recognizer.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// parseBridgeMessage parses a raw bridge message into an Event. Returns
// (zero, false) for messages that should be ignored, including non-final
// results.
func parseBridgeMessage(data []byte) (recognizer.Event, bool) {
	var m bridgeMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return recognizer.Event{}, false
	}

	switch m.Type {
	case msgStarted:
		return recognizer.Event{Kind: recognizer.EventStarted}, true
	case msgResult:
		if !m.IsFinal {
			return recognizer.Event{}, false
		}
		return recognizer.Event{Kind: recognizer.EventResult, Transcript: m.Transcript}, true
	case msgError:
		return recognizer.Event{Kind: recognizer.EventError, Err: errors.New(m.Message)}, true
	case msgUnsupported:
		return recognizer.Event{Kind: recognizer.EventError, Err: recognizer.ErrUnsupportedCapability}, true
	case msgEnded:
		return recognizer.Event{Kind: recognizer.EventEnded}, true
	default:
		return recognizer.Event{}, false
	}
}

// Ensure session implements recognizer.Session at compile time.
var _ recognizer.Session = (*session)(nil)
