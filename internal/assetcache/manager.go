// Package assetcache keeps the companion UI usable with no connectivity. It
// maintains on-disk cache generations of the UI shell assets and serves them
// cache-first, falling back to the network only on a miss.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrNotCached is returned by [Manager.Lookup] when neither the static nor
// the dynamic generation holds the requested path.
var ErrNotCached = errors.New("assetcache: path not cached")

// dynamicDirName is the single dynamic generation. Unlike static
// generations it is never replaced wholesale, only appended to.
const dynamicDirName = "dynamic"

const defaultFetchTimeout = 30 * time.Second

// contentTypeSuffix marks the sidecar file holding an entry's content type.
const contentTypeSuffix = ".ctype"

// Manifest names a static generation and the shell paths it must contain.
// An install is all-or-nothing: if any path cannot be fetched, no trace of
// the generation remains on disk.
type Manifest struct {
	// Generation is the version label, e.g. "v2". The on-disk directory
	// is "static-<Generation>".
	Generation string `yaml:"generation"`

	// Paths are the origin paths to precache. Must include "/" so offline
	// navigation has a document to fall back to.
	Paths []string `yaml:"paths"`
}

// Validate reports whether the manifest can be installed.
func (m Manifest) Validate() error {
	var errs []error
	if m.Generation == "" {
		errs = append(errs, errors.New("generation must not be empty"))
	}
	if strings.ContainsAny(m.Generation, `/\`) {
		errs = append(errs, fmt.Errorf("generation %q must not contain path separators", m.Generation))
	}
	if len(m.Paths) == 0 {
		errs = append(errs, errors.New("manifest must list at least one path"))
	}
	for _, p := range m.Paths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("path %q must be absolute", p))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("assetcache: invalid manifest: %w", err)
	}
	return nil
}

func (m Manifest) dirName() string { return "static-" + m.Generation }

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithHTTPClient replaces the client used to fetch assets from the origin.
func WithHTTPClient(hc *http.Client) ManagerOption {
	return func(m *Manager) { m.hc = hc }
}

// Manager owns the cache generations under a root directory. Safe for
// concurrent use.
type Manager struct {
	root   string
	origin string
	hc     *http.Client

	mu        sync.RWMutex
	staticDir string // empty until a generation is activated
}

// NewManager creates a Manager caching origin's assets under root. The root
// and the dynamic generation directory are created if missing.
func NewManager(root, origin string, opts ...ManagerOption) (*Manager, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("assetcache: parse origin URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("assetcache: origin URL %q must be absolute", origin)
	}
	if err := os.MkdirAll(filepath.Join(root, dynamicDirName), 0o755); err != nil {
		return nil, fmt.Errorf("assetcache: create cache root: %w", err)
	}

	m := &Manager{
		root:   root,
		origin: u.Scheme + "://" + u.Host,
		hc:     &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Install precaches every manifest path into a fresh static generation. The
// generation is assembled in a hidden temp directory and renamed into place
// only when every fetch succeeded, so a partial install leaves no trace. It
// does not become active until [Manager.Activate].
func (m *Manager) Install(ctx context.Context, manifest Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(m.root, ".install-*")
	if err != nil {
		return fmt.Errorf("assetcache: create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, p := range manifest.Paths {
		if err := m.fetchInto(ctx, tmp, p); err != nil {
			return fmt.Errorf("assetcache: install %s: %w", manifest.Generation, err)
		}
	}

	dest := filepath.Join(m.root, manifest.dirName())
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("assetcache: clear previous %s: %w", manifest.Generation, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("assetcache: commit %s: %w", manifest.Generation, err)
	}
	slog.Info("assetcache: generation installed",
		"generation", manifest.Generation, "paths", len(manifest.Paths))
	return nil
}

// Activate makes the manifest's generation the one served by lookups and
// deletes every other static generation on disk. The dynamic generation
// always survives.
func (m *Manager) Activate(manifest Manifest) error {
	dir := manifest.dirName()
	if _, err := os.Stat(filepath.Join(m.root, dir)); err != nil {
		return fmt.Errorf("assetcache: activate %s: %w", manifest.Generation, err)
	}

	m.mu.Lock()
	m.staticDir = dir
	m.mu.Unlock()

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return fmt.Errorf("assetcache: list generations: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if name == dir || name == dynamicDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.root, name)); err != nil {
			return fmt.Errorf("assetcache: delete stale generation %s: %w", name, err)
		}
		slog.Debug("assetcache: stale generation deleted", "generation", name)
	}
	slog.Info("assetcache: generation activated", "generation", manifest.Generation)
	return nil
}

// Entry is a cached asset body with its content type.
type Entry struct {
	Body        []byte
	ContentType string
}

// Lookup returns the cached entry for path, consulting the active static
// generation first and the dynamic generation second. Returns
// [ErrNotCached] when neither holds it.
func (m *Manager) Lookup(path string) (Entry, error) {
	m.mu.RLock()
	staticDir := m.staticDir
	m.mu.RUnlock()

	dirs := []string{}
	if staticDir != "" {
		dirs = append(dirs, staticDir)
	}
	dirs = append(dirs, dynamicDirName)

	key := entryKey(path)
	for _, dir := range dirs {
		body, err := os.ReadFile(filepath.Join(m.root, dir, key))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Entry{}, fmt.Errorf("assetcache: read %s: %w", path, err)
		}
		ctype, err := os.ReadFile(filepath.Join(m.root, dir, key+contentTypeSuffix))
		if err != nil {
			ctype = nil
		}
		return Entry{Body: body, ContentType: string(ctype)}, nil
	}
	return Entry{}, ErrNotCached
}

// StoreDynamic copies a fetched response body into the dynamic generation so
// later offline requests can be served from it.
func (m *Manager) StoreDynamic(path, contentType string, body []byte) error {
	dir := filepath.Join(m.root, dynamicDirName)
	if err := writeEntry(dir, entryKey(path), contentType, body); err != nil {
		return fmt.Errorf("assetcache: store %s: %w", path, err)
	}
	return nil
}

// Fetch retrieves path from the origin.
func (m *Manager) Fetch(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.origin+path, nil)
	if err != nil {
		return nil, fmt.Errorf("assetcache: build request for %s: %w", path, err)
	}
	return m.hc.Do(req)
}

// fetchInto downloads one manifest path into dir, failing on anything but a
// plain 200.
func (m *Manager) fetchInto(ctx context.Context, dir, path string) error {
	resp, err := m.Fetch(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: origin returned %s", path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	return writeEntry(dir, entryKey(path), resp.Header.Get("Content-Type"), body)
}

func writeEntry(dir, key, contentType string, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, key), body, 0o644); err != nil {
		return err
	}
	if contentType == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, key+contentTypeSuffix), []byte(contentType), 0o644)
}

// entryKey flattens a request path into a single safe file name. PathEscape
// encodes the slashes, so nested paths never escape the generation dir.
func entryKey(path string) string {
	return url.PathEscape(path)
}
