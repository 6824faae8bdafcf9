// Package app assembles the companion daemon: voice engine, incident queue,
// sync coordinator, asset cache and the HTTP surface the host UI talks to.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salama-app/salama/internal/assetcache"
	"github.com/salama-app/salama/internal/config"
	"github.com/salama-app/salama/internal/contact"
	"github.com/salama-app/salama/internal/health"
	"github.com/salama-app/salama/internal/incident"
	"github.com/salama-app/salama/internal/observe"
	"github.com/salama-app/salama/internal/syncer"
	"github.com/salama-app/salama/internal/voice"
	"github.com/salama-app/salama/pkg/geo"
	"github.com/salama-app/salama/pkg/recognizer"
)

// Deps are the host capabilities injected into the daemon. Recognizer is
// required; Locator may be nil when the host exposes no geolocation.
type Deps struct {
	Recognizer recognizer.Provider
	Locator    geo.Locator
}

// App is the assembled daemon. Create with [New], drive with [App.Run] and
// tear down with [App.Shutdown].
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	incidents *incident.FileStore
	contacts  *contact.FileStore
	engine    *voice.Engine
	coord     *syncer.Coordinator
	prober    *syncer.Prober
	cache     *assetcache.Manager

	srv *http.Server
}

// New wires the daemon from cfg and deps.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if deps.Recognizer == nil {
		return nil, errors.New("app: recognizer capability is required")
	}

	a := &App{
		cfg:       cfg,
		metrics:   observe.DefaultMetrics(),
		incidents: incident.NewFileStore(cfg.Storage.IncidentsPath),
		contacts:  contact.NewFileStore(cfg.Storage.ContactsPath),
	}

	engine, err := voice.New(voice.Config{
		Language:        cfg.Voice.Language,
		Recognizer:      deps.Recognizer,
		Store:           a.incidents,
		Locator:         deps.Locator,
		LocationTimeout: cfg.Voice.LocationTimeout,
		Callbacks:       a.callbacks(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: build voice engine: %w", err)
	}
	a.engine = engine

	if cfg.Sync.CollectorURL != "" {
		client, err := syncer.NewClient(cfg.Sync.CollectorURL)
		if err != nil {
			return nil, fmt.Errorf("app: build collector client: %w", err)
		}
		a.coord = syncer.NewCoordinator(syncer.CoordinatorConfig{
			Store:       a.incidents,
			Deliverer:   a.measuredDeliverer(client),
			Concurrency: cfg.Sync.FlushConcurrency,
			OnPending:   a.reportPending,
		})
		a.prober = syncer.NewProber(syncer.ProberConfig{
			Pinger:   client,
			Interval: cfg.Sync.ProbeInterval,
			OnChange: a.coord.SetOnline,
		})
	} else {
		slog.Warn("app: no collector configured, incidents stay local")
	}

	if cfg.Cache.Origin != "" {
		mgr, err := assetcache.NewManager(cfg.Cache.Root, cfg.Cache.Origin)
		if err != nil {
			return nil, fmt.Errorf("app: build asset cache: %w", err)
		}
		a.cache = mgr
	}

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// Run installs the asset cache generation, starts the connectivity prober
// and serves the UI endpoints until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	if a.cache != nil {
		if err := a.cache.Install(ctx, a.cfg.Cache.Manifest); err != nil {
			// Offline first run: keep whatever generation is already on
			// disk and retry install on the next start.
			slog.Warn("app: asset cache install failed", "error", err)
		} else if err := a.cache.Activate(a.cfg.Cache.Manifest); err != nil {
			return fmt.Errorf("app: activate asset cache: %w", err)
		}
	}
	if a.prober != nil {
		go a.prober.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("app: listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown stops listening voice sessions, drains the HTTP server and closes
// the stores.
func (a *App) Shutdown(ctx context.Context) error {
	a.engine.Stop()

	var errs []error
	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.incidents.Close(); err != nil {
		errs = append(errs, fmt.Errorf("incident store: %w", err))
	}
	return errors.Join(errs...)
}

// ApplyChanges applies a hot-reloadable config change set. Language takes
// effect on the next listening session; manifest changes install and
// activate a new generation.
func (a *App) ApplyChanges(ctx context.Context, updated *config.Config, cs config.ChangeSet) {
	if cs.LanguageChanged {
		a.engine.SetLanguage(cs.NewLanguage)
		slog.Info("app: trigger language switched", "language", cs.NewLanguage)
	}
	if cs.ManifestChanged && a.cache != nil {
		if err := a.cache.Install(ctx, updated.Cache.Manifest); err != nil {
			slog.Warn("app: asset cache reinstall failed", "error", err)
		} else if err := a.cache.Activate(updated.Cache.Manifest); err != nil {
			slog.Error("app: asset cache activation failed", "error", err)
		}
	}
}

// callbacks maps engine outcomes to logs, metrics and sync triggers.
func (a *App) callbacks() voice.Callbacks {
	return voice.Callbacks{
		OnEmergency: func(inc incident.Incident) {
			a.metrics.RecordUtterance(context.Background(), "emergency")
			a.metrics.RecordIncident(context.Background(), string(inc.Type))
			slog.Warn("app: emergency recorded",
				"incident_id", inc.ID, "danger_words", len(inc.DangerWords))
			a.flushSoon()
		},
		OnSafe: func(inc incident.Incident) {
			a.metrics.RecordUtterance(context.Background(), "safe")
			a.metrics.RecordIncident(context.Background(), string(inc.Type))
			slog.Info("app: safe status recorded", "incident_id", inc.ID)
			a.flushSoon()
		},
		OnCallPolice: func() {
			a.metrics.RecordUtterance(context.Background(), "call_police")
			slog.Warn("app: call-police requested")
		},
		OnShareLocation: func() {
			a.metrics.RecordUtterance(context.Background(), "share_location")
			slog.Info("app: share-location requested")
		},
		OnUnrecognized: func(transcript string) {
			a.metrics.RecordUtterance(context.Background(), "unrecognized")
			slog.Debug("app: utterance not recognized", "transcript", transcript)
		},
		OnError: func(err error) {
			slog.Error("app: recognition failed", "error", err)
		},
		OnStateChange: func(s voice.State) {
			slog.Debug("app: engine state", "state", s)
		},
	}
}

// flushSoon kicks an asynchronous flush after a new incident so delivery
// does not wait for the next probe tick.
func (a *App) flushSoon() {
	if a.coord == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := a.coord.Flush(ctx); err != nil {
			slog.Error("app: flush failed", "error", err)
		}
	}()
}

func (a *App) reportPending(pending int) {
	a.metrics.SetPending(context.Background(), pending)
}

// measuredDeliverer wraps the collector client with delivery metrics.
type measuredDeliverer struct {
	client  *syncer.Client
	metrics *observe.Metrics
}

func (a *App) measuredDeliverer(client *syncer.Client) syncer.Deliverer {
	return &measuredDeliverer{client: client, metrics: a.metrics}
}

func (d *measuredDeliverer) Deliver(ctx context.Context, inc incident.Incident) error {
	start := time.Now()
	err := d.client.Deliver(ctx, inc)
	status := "ok"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordDelivery(ctx, time.Since(start).Seconds(), status)
	return err
}

// routes builds the daemon mux: UI asset cache in front, API and health
// behind it, /metrics for scraping.
func (a *App) routes() http.Handler {
	api := http.NewServeMux()
	a.registerAPI(api)
	health.New([]health.Checker{
		{Name: "incident-store", Check: func(ctx context.Context) error {
			_, err := a.incidents.PendingCount(ctx)
			return err
		}},
	}).Register(api)
	api.Handle("GET /metrics", promhttp.Handler())

	withMetrics := observe.Middleware(a.metrics)
	if a.cache == nil {
		return withMetrics(api)
	}
	cached := assetcache.NewHandler(assetcache.HandlerConfig{
		Manager: a.cache,
		Next:    api,
		Passthrough: func(r *http.Request) bool {
			p := r.URL.Path
			return strings.HasPrefix(p, "/api/") ||
				p == "/healthz" || p == "/readyz" || p == "/metrics"
		},
		Observe: func(outcome string) {
			a.metrics.RecordCacheResult(context.Background(), outcome)
		},
	})
	return withMetrics(cached)
}
