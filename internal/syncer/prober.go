package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultProbeInterval is how often the prober checks collector
// reachability.
const defaultProbeInterval = 15 * time.Second

// Pinger is the reachability check the prober runs on every tick.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober watches collector reachability and reports edge-triggered
// online/offline transitions. It starts pessimistic (offline) so the first
// successful probe produces an offline→online transition and with it the
// initial queue flush.
//
// All methods are safe for concurrent use.
type Prober struct {
	pinger   Pinger
	interval time.Duration
	onChange func(ctx context.Context, online bool)

	mu     sync.Mutex
	online bool
}

// ProberConfig configures a [Prober].
type ProberConfig struct {
	// Pinger performs the reachability check. Required.
	Pinger Pinger

	// Interval between probes. Defaults to 15s.
	Interval time.Duration

	// OnChange is invoked on every transition with the new state. May be
	// nil. Called from the prober goroutine.
	OnChange func(ctx context.Context, online bool)
}

// NewProber creates a Prober from cfg.
func NewProber(cfg ProberConfig) *Prober {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &Prober{
		pinger:   cfg.Pinger,
		interval: interval,
		onChange: cfg.OnChange,
	}
}

// Online reports the last observed connectivity state.
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Run probes immediately and then on every interval tick until ctx is
// cancelled. Blocking; run it in a goroutine.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

// probe performs one reachability check and fires OnChange on transition.
func (p *Prober) probe(ctx context.Context) {
	err := p.pinger.Ping(ctx)
	online := err == nil

	p.mu.Lock()
	changed := online != p.online
	p.online = online
	p.mu.Unlock()

	if !changed {
		return
	}
	if online {
		slog.Info("syncer: connectivity restored")
	} else {
		slog.Warn("syncer: connectivity lost", "error", err)
	}
	if p.onChange != nil {
		p.onChange(ctx, online)
	}
}
