package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Voice.Language.IsValid() {
		errs = append(errs, fmt.Errorf("voice.language %q is invalid; valid values: en, sw", cfg.Voice.Language))
	}
	if cfg.Voice.LocationTimeout < 0 {
		errs = append(errs, fmt.Errorf("voice.location_timeout must not be negative"))
	}
	if cfg.Voice.BridgeEndpoint != "" {
		if err := validateURL("voice.bridge_endpoint", cfg.Voice.BridgeEndpoint, "ws", "wss"); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Sync.CollectorURL != "" {
		if err := validateURL("sync.collector_url", cfg.Sync.CollectorURL, "http", "https"); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Sync.FlushConcurrency < 0 {
		errs = append(errs, fmt.Errorf("sync.flush_concurrency must not be negative"))
	}
	if cfg.Cache.Origin != "" {
		if err := validateURL("cache.origin", cfg.Cache.Origin, "http", "https"); err != nil {
			errs = append(errs, err)
		}
		if err := cfg.Cache.Manifest.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("cache.manifest: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q is not a URL: %w", field, raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q must be absolute", field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s %q has scheme %q; valid schemes: %v", field, raw, u.Scheme, schemes)
}
