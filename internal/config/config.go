// Package config provides the configuration schema and loader for the
// salama companion daemon and collector.
package config

import (
	"log/slog"
	"time"

	"github.com/salama-app/salama/internal/assetcache"
	"github.com/salama-app/salama/internal/lang"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration for the companion daemon. It is loaded
// from a YAML file via [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Voice   VoiceConfig   `yaml:"voice"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig holds network and logging settings for the daemon.
type ServerConfig struct {
	// ListenAddr is the TCP address the daemon listens on for the UI
	// (e.g., "127.0.0.1:8787").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// VoiceConfig configures the voice command engine.
type VoiceConfig struct {
	// Language is the active trigger language ("en" or "sw").
	Language lang.Lang `yaml:"language"`

	// BridgeEndpoint is the websocket URL the host UI serves recognition
	// events on (e.g., "ws://127.0.0.1:8788/recognizer").
	BridgeEndpoint string `yaml:"bridge_endpoint"`

	// LocationTimeout bounds the one-shot geolocation attached to an
	// incident. Zero uses the engine default.
	LocationTimeout time.Duration `yaml:"location_timeout"`
}

// StorageConfig holds the durable store file paths.
type StorageConfig struct {
	// IncidentsPath is the incident queue file.
	IncidentsPath string `yaml:"incidents_path"`

	// ContactsPath is the trusted contacts file.
	ContactsPath string `yaml:"contacts_path"`
}

// SyncConfig configures connectivity probing and incident delivery.
type SyncConfig struct {
	// CollectorURL is the base URL of the remote collector.
	CollectorURL string `yaml:"collector_url"`

	// ProbeInterval is how often collector reachability is checked.
	ProbeInterval time.Duration `yaml:"probe_interval"`

	// FlushConcurrency bounds parallel deliveries per flush.
	FlushConcurrency int `yaml:"flush_concurrency"`
}

// CacheConfig configures the offline asset cache.
type CacheConfig struct {
	// Root is the directory holding the cache generations.
	Root string `yaml:"root"`

	// Origin is the base URL the UI shell assets are fetched from.
	Origin string `yaml:"origin"`

	// Manifest names the static generation and its paths.
	Manifest assetcache.Manifest `yaml:"manifest"`
}

// applyDefaults fills zero values with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1:8787"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Voice.Language == "" {
		cfg.Voice.Language = lang.English
	}
	if cfg.Storage.IncidentsPath == "" {
		cfg.Storage.IncidentsPath = "data/incidents.json"
	}
	if cfg.Storage.ContactsPath == "" {
		cfg.Storage.ContactsPath = "data/contacts.json"
	}
	if cfg.Sync.ProbeInterval == 0 {
		cfg.Sync.ProbeInterval = 15 * time.Second
	}
	if cfg.Cache.Root == "" {
		cfg.Cache.Root = "data/assetcache"
	}
}
