// Package database provides PostgreSQL connection management for the market
// snapshot store.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrimind/agrimind/internal/config"
)

// ConnectionString returns the PostgreSQL URL for cfg.
func ConnectionString(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(cfg.SSLMode),
	}
	return u.String()
}

// Connect creates a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // bounded by config
	poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // bounded by config
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
    id              UUID PRIMARY KEY,
    crop            TEXT NOT NULL,
    commodity       TEXT NOT NULL,
    region          TEXT NOT NULL,
    state           TEXT,
    district        TEXT,
    price_latest    DOUBLE PRECISION,
    price_med30     DOUBLE PRECISION,
    price_trend7    DOUBLE PRECISION,
    price_z30       DOUBLE PRECISION,
    temperature     DOUBLE PRECISION NOT NULL,
    humidity        DOUBLE PRECISION NOT NULL,
    rainfall        DOUBLE PRECISION NOT NULL,
    rain_days       INTEGER NOT NULL,
    explanation     TEXT NOT NULL,
    fetched_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS market_snapshots_latest_idx
    ON market_snapshots (crop, region, fetched_at DESC);
`

// Migrate creates the tables used by the snapshot repository.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
