// Command salama-collector is the remote incident collector. It accepts
// incident reports from companion daemons over HTTP and stores them in
// PostgreSQL, idempotently by incident ID.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/salama-app/salama/internal/collector"
	"github.com/salama-app/salama/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	listenAddr := flag.String("listen", ":8790", "TCP address to serve the intake API on")
	dsn := flag.String("dsn", os.Getenv("SALAMA_COLLECTOR_DSN"), "PostgreSQL DSN (defaults to $SALAMA_COLLECTOR_DSN)")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *dsn == "" {
		slog.Error("no PostgreSQL DSN configured; set -dsn or $SALAMA_COLLECTOR_DSN")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "salama-collector",
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

	store, err := collector.NewPostgresStore(ctx, *dsn)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 1
	}
	defer store.Close()

	mux := collector.NewAPI(store).Routes()
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("collector listening", "addr", *listenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sc, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sc)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("collector error", "error", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
