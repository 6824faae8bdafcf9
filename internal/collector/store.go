// Package collector implements the remote incident collector: the HTTP
// intake the companion daemon syncs its queued incidents to, backed by
// PostgreSQL. Intake is idempotent by incident ID, so a daemon that never
// saw an acknowledgement can safely resend.
package collector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salama-app/salama/internal/incident"
)

// Store persists incidents received from daemons.
type Store interface {
	// Insert stores inc, ignoring duplicates by ID. Returns true when the
	// incident was new.
	Insert(ctx context.Context, inc incident.Incident) (bool, error)

	// Ping checks the backing database.
	Ping(ctx context.Context) error
}

const ddlIncidents = `
CREATE TABLE IF NOT EXISTS incidents (
    id           TEXT         PRIMARY KEY,
    type         TEXT         NOT NULL,
    occurred_at  TIMESTAMPTZ  NOT NULL,
    received_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    latitude     DOUBLE PRECISION,
    longitude    DOUBLE PRECISION,
    accuracy_m   DOUBLE PRECISION,
    danger_words TEXT[]       NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_incidents_occurred_at
    ON incidents (occurred_at);

CREATE INDEX IF NOT EXISTS idx_incidents_type
    ON incidents (type);
`

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is the pgx-backed [Store]. All operations are safe for
// concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn, verifies the connection
// and runs [Migrate].
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("collector store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("collector store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("collector store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("collector store: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate ensures the incidents table exists.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlIncidents); err != nil {
		return fmt.Errorf("collector migrate: %w", err)
	}
	return nil
}

// Insert stores inc. A duplicate ID is a no-op per ON CONFLICT DO NOTHING,
// which is what makes daemon redelivery after a lost acknowledgement safe.
func (s *PostgresStore) Insert(ctx context.Context, inc incident.Incident) (bool, error) {
	var (
		lat, lon, acc *float64
	)
	if inc.Location != nil {
		lat = &inc.Location.Latitude
		lon = &inc.Location.Longitude
		acc = &inc.Location.AccuracyMeters
	}
	words := inc.DangerWords
	if words == nil {
		words = []string{}
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO incidents (id, type, occurred_at, latitude, longitude, accuracy_m, danger_words)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		inc.ID, string(inc.Type), inc.Timestamp, lat, lon, acc, words,
	)
	if err != nil {
		return false, fmt.Errorf("collector store: insert %s: %w", inc.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Ping checks database reachability.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
