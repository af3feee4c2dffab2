// Package db provides PostgreSQL persistence for sessions, topic
// artifacts, merged decks and threshold records.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB holds the pool shared by the session, artifact and threshold stores.
type DB struct {
	pool *pgxpool.Pool
}

// MaxConns caps the connection pool.
const MaxConns = 8

// Connect opens a pool tagged with the application name and checks that the
// server answers before returning.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.MaxConns = MaxConns
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "monitoring_deck"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the pool. A zero DB is safe to close.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Schema creates every table this package uses. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS deck_sessions (
    id UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS topic_artifacts (
    session_id UUID NOT NULL REFERENCES deck_sessions(id) ON DELETE CASCADE,
    topic TEXT NOT NULL,
    revision INTEGER NOT NULL,
    band TEXT NOT NULL,
    slides INTEGER NOT NULL,
    artifact JSONB NOT NULL,
    deck BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (session_id, topic)
);

CREATE TABLE IF NOT EXISTS merged_decks (
    id BIGSERIAL PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES deck_sessions(id) ON DELETE CASCADE,
    revision INTEGER NOT NULL,
    slides INTEGER NOT NULL,
    missing TEXT[] NOT NULL DEFAULT '{}',
    deck BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_merged_decks_session ON merged_decks(session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS threshold_configs (
    metric_type TEXT PRIMARY KEY,
    green DOUBLE PRECISION NOT NULL,
    amber_lower DOUBLE PRECISION NOT NULL,
    amber_upper DOUBLE PRECISION NOT NULL,
    red DOUBLE PRECISION NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies Schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
