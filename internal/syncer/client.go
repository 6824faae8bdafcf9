package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/salama-app/salama/internal/incident"
)

// defaultRequestTimeout bounds a single delivery or probe request.
const defaultRequestTimeout = 10 * time.Second

// incidentsPath is the collector intake endpoint.
const incidentsPath = "/api/incidents"

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

// Client talks to the remote collector: one request per incident, plus a
// lightweight reachability probe. Safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a Client for the collector at baseURL (scheme and host,
// no trailing path).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("syncer: collector URL must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("syncer: parse collector URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("syncer: collector URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u.Scheme + "://" + u.Host,
		hc:      &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Deliver posts one incident to the collector. Any 2xx response counts as an
// acknowledgement; everything else, including timeouts, is a delivery
// failure that leaves the incident queued.
func (c *Client) Deliver(ctx context.Context, inc incident.Incident) error {
	body, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("syncer: encode incident %s: %w", inc.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+incidentsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("syncer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("syncer: deliver %s: %w", inc.ID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("syncer: deliver %s: collector returned %s", inc.ID, resp.Status)
	}
	return nil
}

// Ping checks collector reachability via its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("syncer: build probe: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("syncer: probe: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("syncer: probe: collector returned %s", resp.Status)
	}
	return nil
}
