// Package health provides the liveness and readiness endpoints served by
// both the companion daemon and the collector.
//
//   - /healthz — liveness; a process that can answer HTTP is alive. The
//     daemon's sync prober also uses this endpoint on the collector side to
//     detect connectivity.
//   - /readyz  — readiness; 200 only when every registered [Checker] passes
//     (collector: database ping; daemon: incident store access).
//
// Responses are JSON with a top-level "status" ("ok" or "fail") and a
// per-checker "checks" map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// defaultCheckTimeout bounds a single readiness check.
const defaultCheckTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is healthy.
type Checker struct {
	// Name labels the check in the JSON response, e.g. "database" or
	// "incident-store".
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Option configures a [Handler].
type Option func(*Handler)

// WithCheckTimeout overrides the per-check deadline.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// Handler serves /healthz and /readyz. Safe for concurrent use; the checker
// list is fixed at construction.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// New creates a Handler evaluating the given checkers, in order, on each
// /readyz request.
func New(checkers []Checker, opts ...Option) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  defaultCheckTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every checker passes, 503 otherwise. Each
// checker runs with its own deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	status := http.StatusOK
	res := result{Status: "ok"}

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			checks[c.Name] = "ok"
		}
	}
	res.Checks = checks
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
