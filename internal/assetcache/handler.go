package assetcache

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// syntheticUnavailableBody is served when a request cannot be satisfied from
// cache or network and no document fallback applies.
const syntheticUnavailableBody = "offline and not cached"

// ResultObserver is notified of every cache decision, keyed by outcome
// ("hit", "miss", "fallback", "unavailable"). Wired to the observe metrics
// in the daemon; nil-safe.
type ResultObserver func(outcome string)

// Handler serves UI assets cache-first. GET requests for same-origin assets
// are answered from the cache generations when possible; misses go to the
// network and cacheable responses are copied into the dynamic generation.
// When the network is down, navigational requests fall back to the cached
// shell document and everything else gets a synthetic 503.
//
// Requests outside the asset surface (non-GET, or paths matched by the
// passthrough predicate) are handed to next untouched.
type Handler struct {
	mgr         *Manager
	next        http.Handler
	passthrough func(*http.Request) bool
	observe     ResultObserver
}

// HandlerConfig configures a [Handler].
type HandlerConfig struct {
	// Manager owns the cache generations. Required.
	Manager *Manager

	// Next receives requests the cache does not intercept. Required.
	Next http.Handler

	// Passthrough marks additional requests to hand to Next, typically
	// the API prefix. May be nil.
	Passthrough func(*http.Request) bool

	// Observe is notified of cache outcomes. May be nil.
	Observe ResultObserver
}

// NewHandler creates a Handler from cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		mgr:         cfg.Manager,
		next:        cfg.Next,
		passthrough: cfg.Passthrough,
		observe:     cfg.Observe,
	}
}

var _ http.Handler = (*Handler)(nil)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || (h.passthrough != nil && h.passthrough(r)) {
		h.next.ServeHTTP(w, r)
		return
	}

	path := r.URL.Path
	entry, err := h.mgr.Lookup(path)
	if err == nil {
		h.record("hit")
		serveEntry(w, entry)
		return
	}
	if !errors.Is(err, ErrNotCached) {
		slog.Error("assetcache: lookup failed", "path", path, "error", err)
	}

	resp, err := h.mgr.Fetch(r.Context(), path)
	if err != nil {
		h.serveOffline(w, r)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.serveOffline(w, r)
		return
	}

	h.record("miss")
	if resp.StatusCode == http.StatusOK {
		ctype := resp.Header.Get("Content-Type")
		if err := h.mgr.StoreDynamic(path, ctype, body); err != nil {
			slog.Warn("assetcache: dynamic store failed", "path", path, "error", err)
		}
	}
	if ctype := resp.Header.Get("Content-Type"); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

// serveOffline handles a network failure: navigational requests get the
// cached shell document, everything else a synthetic 503.
func (h *Handler) serveOffline(w http.ResponseWriter, r *http.Request) {
	if isNavigational(r) {
		if entry, err := h.mgr.Lookup("/"); err == nil {
			h.record("fallback")
			serveEntry(w, entry)
			return
		}
	}
	h.record("unavailable")
	http.Error(w, syntheticUnavailableBody, http.StatusServiceUnavailable)
}

func (h *Handler) record(outcome string) {
	if h.observe != nil {
		h.observe(outcome)
	}
}

func serveEntry(w http.ResponseWriter, entry Entry) {
	if entry.ContentType != "" {
		w.Header().Set("Content-Type", entry.ContentType)
	}
	w.Write(entry.Body)
}

// isNavigational reports whether the request asks for a document, mirroring
// a browser navigation. Fetch metadata is authoritative when present; the
// Accept header is the fallback signal.
func isNavigational(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
