// Command salama is the personal-safety companion daemon. It classifies
// voice commands and danger words, queues incidents durably while offline
// and syncs them to the collector when connectivity returns.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salama-app/salama/internal/app"
	"github.com/salama-app/salama/internal/config"
	"github.com/salama-app/salama/internal/observe"
	"github.com/salama-app/salama/pkg/geo"
	"github.com/salama-app/salama/pkg/recognizer"
	"github.com/salama-app/salama/pkg/recognizer/wsbridge"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "salama.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "salama: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "salama: %v\n", err)
		}
		return 1
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("salama starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"language", cfg.Voice.Language,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "salama",
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "error", err)
		return 1
	}
	defer func() {
		sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sc); err != nil {
			slog.Warn("metrics shutdown error", "error", err)
		}
	}()

	if cfg.Voice.BridgeEndpoint == "" {
		slog.Error("voice.bridge_endpoint is not configured; the daemon cannot listen")
		return 1
	}
	var rec recognizer.Provider
	rec, err = wsbridge.New(cfg.Voice.BridgeEndpoint)
	if err != nil {
		slog.Error("failed to build recognizer bridge", "error", err)
		return 1
	}

	application, err := app.New(cfg, app.Deps{
		Recognizer: rec,
		Locator:    locatorFromEnv(),
	})
	if err != nil {
		slog.Error("failed to initialise daemon", "error", err)
		return 1
	}

	// Hot-reload: log level, language and cache manifest apply without a
	// restart.
	watcher, err := config.NewWatcher(*configPath, func(old, updated *config.Config) {
		cs := config.Diff(old, updated)
		if !cs.Any() {
			return
		}
		if cs.LogLevelChanged {
			level.Set(cs.NewLogLevel.Level())
			slog.Info("log level changed", "level", cs.NewLogLevel)
		}
		rctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		application.ApplyChanges(rctx, updated, cs)
	})
	if err != nil {
		slog.Error("failed to start config watcher", "error", err)
		return 1
	}
	defer watcher.Stop()

	slog.Info("daemon ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "error", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// locatorFromEnv builds a fixed locator from SALAMA_LAT/SALAMA_LON when the
// host provides no geolocation capability. Incidents carry no position when
// neither is set.
func locatorFromEnv() geo.Locator {
	lat, lon := os.Getenv("SALAMA_LAT"), os.Getenv("SALAMA_LON")
	if lat == "" || lon == "" {
		return nil
	}
	var latitude, longitude float64
	if _, err := fmt.Sscanf(lat, "%f", &latitude); err != nil {
		slog.Warn("invalid SALAMA_LAT, ignoring", "value", lat)
		return nil
	}
	if _, err := fmt.Sscanf(lon, "%f", &longitude); err != nil {
		slog.Warn("invalid SALAMA_LON, ignoring", "value", lon)
		return nil
	}
	return &geo.Fixed{Position: geo.Position{Latitude: latitude, Longitude: longitude}}
}
