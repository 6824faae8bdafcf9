package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/salama-app/salama/internal/incident"
)

// defaultFlushConcurrency bounds how many incidents are delivered in
// parallel during one flush.
const defaultFlushConcurrency = 4

// Deliverer posts a single incident to the collector. An error means the
// incident was not acknowledged and must stay queued.
type Deliverer interface {
	Deliver(ctx context.Context, inc incident.Incident) error
}

// Result summarizes one flush pass.
type Result struct {
	Delivered int
	Failed    int
	Pending   int
}

// Coordinator drains the incident queue to the collector whenever
// connectivity allows. Delivered incidents are removed individually, so a
// partial failure keeps exactly the unacknowledged incidents queued for
// the next pass.
//
// All methods are safe for concurrent use; concurrent Flush calls are
// serialized.
type Coordinator struct {
	store       incident.Store
	deliverer   Deliverer
	concurrency int
	onPending   func(pending int)
	breaker     *breaker

	online  atomic.Bool
	flushMu sync.Mutex
}

// CoordinatorConfig configures a [Coordinator].
type CoordinatorConfig struct {
	// Store is the durable incident queue. Required.
	Store incident.Store

	// Deliverer posts incidents to the collector. Required.
	Deliverer Deliverer

	// Concurrency bounds parallel deliveries per flush. Defaults to 4.
	Concurrency int

	// OnPending is invoked after every flush with the recomputed pending
	// count. May be nil.
	OnPending func(pending int)
}

// NewCoordinator creates a Coordinator from cfg.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultFlushConcurrency
	}
	return &Coordinator{
		store:       cfg.Store,
		deliverer:   cfg.Deliverer,
		concurrency: concurrency,
		onPending:   cfg.OnPending,
		breaker:     newBreaker(0, 0),
	}
}

// Online reports whether the coordinator currently considers the collector
// reachable.
func (c *Coordinator) Online() bool {
	return c.online.Load()
}

// SetOnline updates the connectivity state. Going online triggers a flush.
// Wire this to [Prober]'s OnChange.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) {
	was := c.online.Swap(online)
	if online && !was {
		if _, err := c.Flush(ctx); err != nil {
			slog.Error("syncer: flush after reconnect failed", "error", err)
		}
	}
}

// Flush drains the queue once. Offline or empty queues are a no-op.
// Transport failures for individual incidents are counted in
// [Result.Failed], not returned; the error return covers store access
// only.
func (c *Coordinator) Flush(ctx context.Context) (Result, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	if !c.online.Load() {
		pending, err := c.store.PendingCount(ctx)
		if err != nil {
			return Result{}, err
		}
		c.notifyPending(pending)
		return Result{Pending: pending}, nil
	}

	queued, err := c.store.Drain(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(queued) == 0 {
		c.notifyPending(0)
		return Result{}, nil
	}

	start := time.Now()
	var (
		mu        sync.Mutex
		succeeded []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, inc := range queued {
		g.Go(func() error {
			err := c.breaker.execute(func() error {
				return c.deliverer.Deliver(gctx, inc)
			})
			if err != nil {
				slog.Warn("syncer: delivery failed",
					"incident_id", inc.ID, "error", err)
				return nil
			}
			mu.Lock()
			succeeded = append(succeeded, inc.ID)
			mu.Unlock()
			return nil
		})
	}
	// Delivery errors are swallowed above; Wait only propagates ctx
	// cancellation through gctx.
	_ = g.Wait()

	if len(succeeded) > 0 {
		if err := c.store.Remove(ctx, succeeded); err != nil {
			return Result{}, err
		}
	}
	pending, err := c.store.PendingCount(ctx)
	if err != nil {
		return Result{}, err
	}
	c.notifyPending(pending)

	res := Result{
		Delivered: len(succeeded),
		Failed:    len(queued) - len(succeeded),
		Pending:   pending,
	}
	slog.Info("syncer: flush complete",
		"delivered", res.Delivered,
		"failed", res.Failed,
		"pending", res.Pending,
		"duration", time.Since(start))
	return res, nil
}

func (c *Coordinator) notifyPending(pending int) {
	if c.onPending != nil {
		c.onPending(pending)
	}
}
