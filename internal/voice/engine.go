// Package voice implements the continuous voice-command engine.
//
// The engine owns a recognition session obtained from the recognizer port and
// classifies every finalized utterance in two passes: the danger-word pass
// (which escalates straight to an emergency and short-circuits everything
// else) and the command-matching pass. Matched emergency and safe commands
// write an incident to the durable queue before their callback fires; the
// engine itself performs no network I/O.
//
// Utterances are processed strictly one at a time, in arrival order.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/salama-app/salama/internal/incident"
	"github.com/salama-app/salama/internal/lang"
	"github.com/salama-app/salama/pkg/geo"
	"github.com/salama-app/salama/pkg/recognizer"
)

// ErrAlreadyListening is returned by Start when a session is already open.
var ErrAlreadyListening = errors.New("voice: already listening")

// defaultLocationTimeout bounds the opportunistic position lookup when an
// incident is recorded.
const defaultLocationTimeout = 5 * time.Second

// State represents the engine's listening lifecycle.
type State int

const (
	// StateIdle means no recognition session is open.
	StateIdle State = iota

	// StateListening means the session is live and awaiting an utterance.
	StateListening

	// StateProcessing means a finalized utterance is being classified.
	StateProcessing

	// StateError is the transient state entered on a recognizer failure
	// before the engine settles back to idle. The engine does not retry on
	// its own; the user must restart listening explicitly.
	StateError
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Callbacks are the host-supplied reactions to classified utterances.
// Nil entries are skipped. Callbacks run on the engine's event goroutine, so
// they should hand off long work rather than block the next utterance.
type Callbacks struct {
	// OnEmergency fires for danger-word escalations and matched emergency
	// commands, after the incident has been recorded.
	OnEmergency func(inc incident.Incident)

	// OnSafe fires for matched safe commands, after the incident has been
	// recorded.
	OnSafe func(inc incident.Incident)

	// OnCallPolice asks the host to dial the police via its native handler.
	OnCallPolice func()

	// OnShareLocation asks the host to share the current location.
	OnShareLocation func()

	// OnUnrecognized reports an utterance that matched nothing. The session
	// stays open.
	OnUnrecognized func(transcript string)

	// OnError reports a recognizer-level failure. The engine has already
	// returned to idle when this fires; the host should offer a retry.
	OnError func(err error)

	// OnStateChange reports every lifecycle transition, for UI indicators.
	OnStateChange func(s State)
}

// Config assembles the engine's dependencies. Recognizer and Store are
// required; the rest have usable defaults.
type Config struct {
	// Language is the active interface language. Commands match against this
	// language only; danger words match against its union with English.
	Language lang.Lang

	// Commands is the command table. Defaults to lang.DefaultCommands().
	Commands lang.CommandTable

	// DangerWords is the danger-word table. Defaults to
	// lang.DefaultDangerWords().
	DangerWords lang.DangerTable

	// Recognizer is the host speech-recognition capability.
	Recognizer recognizer.Provider

	// Store is the durable incident queue.
	Store incident.Store

	// Locator provides the opportunistic one-shot position for incidents.
	// May be nil, in which case incidents carry no location.
	Locator geo.Locator

	// LocationTimeout bounds the position lookup. Defaults to 5s.
	LocationTimeout time.Duration

	// Callbacks are the host reactions.
	Callbacks Callbacks
}

// Engine is the continuous voice-command engine. Create one with New; all
// exported methods are safe for concurrent use.
type Engine struct {
	language    lang.Lang
	commands    lang.CommandTable
	dangerWords lang.DangerTable
	provider    recognizer.Provider
	store       incident.Store
	locator     geo.Locator
	locTimeout  time.Duration
	callbacks   Callbacks

	mu      sync.Mutex
	state   State
	session recognizer.Session
	stopped bool // set by Stop; discards in-flight results
	wg      sync.WaitGroup
}

// New creates an Engine from cfg. It returns an error if a required
// dependency is missing.
func New(cfg Config) (*Engine, error) {
	if cfg.Recognizer == nil {
		return nil, errors.New("voice: recognizer is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("voice: incident store is required")
	}
	if cfg.Commands == nil {
		cfg.Commands = lang.DefaultCommands()
	}
	if cfg.DangerWords == nil {
		cfg.DangerWords = lang.DefaultDangerWords()
	}
	if !cfg.Language.IsValid() {
		cfg.Language = lang.English
	}
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = defaultLocationTimeout
	}
	return &Engine{
		language:    cfg.Language,
		commands:    cfg.Commands,
		dangerWords: cfg.DangerWords,
		provider:    cfg.Recognizer,
		store:       cfg.Store,
		locator:     cfg.Locator,
		locTimeout:  cfg.LocationTimeout,
		callbacks:   cfg.Callbacks,
	}, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start opens a recognition session and begins classifying utterances.
// It returns recognizer.ErrUnsupportedCapability (wrapped) when the host
// cannot recognise speech, and ErrAlreadyListening if a session is open.
func (e *Engine) Start(ctx context.Context) error {
	// Reserve the session slot before dialling so concurrent Starts cannot
	// both open one.
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrAlreadyListening
	}
	e.state = StateListening
	e.stopped = false
	e.mu.Unlock()

	sess, err := e.provider.Start(ctx, recognizer.Config{
		Language:   e.Language().Tag(),
		Continuous: true,
	})
	if err != nil {
		e.mu.Lock()
		e.state = StateIdle
		e.mu.Unlock()
		if errors.Is(err, recognizer.ErrUnsupportedCapability) {
			slog.Warn("voice: speech recognition unsupported on this host")
			return fmt.Errorf("voice: start: %w", err)
		}
		return fmt.Errorf("voice: start session: %w", err)
	}

	e.mu.Lock()
	e.session = sess
	e.mu.Unlock()
	if e.callbacks.OnStateChange != nil {
		e.callbacks.OnStateChange(StateListening)
	}

	e.wg.Add(1)
	go e.eventLoop(ctx, sess)

	slog.Info("voice: listening started", "language", e.Language())
	return nil
}

// SetLanguage switches the trigger language. Commands match the new language
// from the next utterance; danger scanning uses its union with English. The
// recognition language of an already open session is unchanged until it is
// restarted. Invalid values are ignored.
func (e *Engine) SetLanguage(l lang.Lang) {
	if !l.IsValid() {
		return
	}
	e.mu.Lock()
	e.language = l
	e.mu.Unlock()
}

// Language returns the active trigger language.
func (e *Engine) Language() lang.Lang {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.language
}

// Stop closes the current session. Any utterance still in flight is
// discarded; no incident is written for it. Safe to call when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	sess := e.session
	e.session = nil
	e.stopped = true
	e.mu.Unlock()

	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		slog.Warn("voice: session close failed", "error", err)
	}
	e.wg.Wait()
	slog.Info("voice: listening stopped")
}

// Toggle starts listening when idle and stops it otherwise.
func (e *Engine) Toggle(ctx context.Context) error {
	if e.State() == StateIdle {
		return e.Start(ctx)
	}
	e.Stop()
	return nil
}

// eventLoop consumes the session's event stream until it terminates.
func (e *Engine) eventLoop(ctx context.Context, sess recognizer.Session) {
	defer e.wg.Done()
	for ev := range sess.Events() {
		switch ev.Kind {
		case recognizer.EventStarted:
			// Session already counted as listening.

		case recognizer.EventResult:
			if e.discarding() {
				slog.Debug("voice: discarding in-flight result after stop")
				continue
			}
			e.setState(StateProcessing)
			stop := e.handleUtterance(ctx, ev.Transcript)
			if stop {
				e.closeSession()
				return
			}
			e.setState(StateListening)

		case recognizer.EventError:
			slog.Warn("voice: recognition error", "error", ev.Err)
			e.setState(StateError)
			e.closeSession()
			e.setState(StateIdle)
			if e.callbacks.OnError != nil {
				e.callbacks.OnError(ev.Err)
			}
			return

		case recognizer.EventEnded:
			e.closeSession()
			return
		}
	}
	e.closeSession()
}

// handleUtterance classifies one finalized utterance. It reports whether the
// session should end (every successful match ends it to avoid re-triggering).
func (e *Engine) handleUtterance(ctx context.Context, raw string) bool {
	lng := e.Language()

	// Danger pass runs first and short-circuits command matching entirely.
	if word, ok := e.dangerWords.Scan(lng, raw); ok {
		slog.Warn("voice: danger word detected", "word", word)
		inc := e.record(ctx, incident.Incident{
			Type:        incident.TypeEmergency,
			DangerWords: []string{raw},
		})
		if e.callbacks.OnEmergency != nil {
			e.callbacks.OnEmergency(inc)
		}
		return true
	}

	action, ok := e.commands.Match(lng, raw)
	if !ok {
		slog.Debug("voice: command not recognized", "transcript", raw)
		if e.callbacks.OnUnrecognized != nil {
			e.callbacks.OnUnrecognized(raw)
		}
		return false
	}

	slog.Info("voice: command matched", "action", action)
	switch action {
	case lang.ActionEmergency:
		inc := e.record(ctx, incident.Incident{Type: incident.TypeEmergency})
		if e.callbacks.OnEmergency != nil {
			e.callbacks.OnEmergency(inc)
		}
	case lang.ActionSafe:
		inc := e.record(ctx, incident.Incident{Type: incident.TypeSafe})
		if e.callbacks.OnSafe != nil {
			e.callbacks.OnSafe(inc)
		}
	case lang.ActionCallPolice:
		if e.callbacks.OnCallPolice != nil {
			e.callbacks.OnCallPolice()
		}
	case lang.ActionShareLocation:
		if e.callbacks.OnShareLocation != nil {
			e.callbacks.OnShareLocation()
		}
	}
	return true
}

// record captures an opportunistic position and appends inc to the store.
// A storage failure is logged and surfaced through OnError but does not
// swallow the alert: the returned incident is still handed to the callback.
func (e *Engine) record(ctx context.Context, inc incident.Incident) incident.Incident {
	inc.Location = e.locate(ctx)

	stored, err := e.store.Append(ctx, inc)
	if err != nil {
		slog.Error("voice: incident append failed", "type", inc.Type, "error", err)
		if e.callbacks.OnError != nil {
			e.callbacks.OnError(fmt.Errorf("voice: store incident: %w", err))
		}
		return inc
	}
	slog.Info("voice: incident recorded", "id", stored.ID, "type", stored.Type)
	return stored
}

// locate performs the bounded one-shot position lookup. Failures are
// acceptable; the incident is simply recorded without a location.
func (e *Engine) locate(ctx context.Context) *geo.Position {
	if e.locator == nil {
		return nil
	}
	lctx, cancel := context.WithTimeout(ctx, e.locTimeout)
	defer cancel()

	pos, err := e.locator.Current(lctx)
	if err != nil {
		slog.Debug("voice: position unavailable", "error", err)
		return nil
	}
	return &pos
}

// discarding reports whether Stop has been called for the current session.
func (e *Engine) discarding() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// closeSession releases the session, if still held, and settles to idle.
func (e *Engine) closeSession() {
	e.mu.Lock()
	sess := e.session
	e.session = nil
	e.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			slog.Warn("voice: session close failed", "error", err)
		}
	}
	e.setState(StateIdle)
}

// setState transitions the lifecycle state and notifies the host.
func (e *Engine) setState(s State) {
	e.mu.Lock()
	if e.state == s {
		e.mu.Unlock()
		return
	}
	e.state = s
	e.mu.Unlock()

	if e.callbacks.OnStateChange != nil {
		e.callbacks.OnStateChange(s)
	}
}
