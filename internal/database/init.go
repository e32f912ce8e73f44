package database

import (
	"context"
	"fmt"

	"github.com/yourusername/voter-power/internal/config"
)

// Schema creates the result tables when they do not exist
const Schema = `
CREATE TABLE IF NOT EXISTS forecast_runs (
	id            UUID PRIMARY KEY,
	mode          TEXT NOT NULL,
	tail_scale    DOUBLE PRECISION NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL,
	failed_states TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS state_probabilities (
	run_id            UUID NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
	state             TEXT NOT NULL,
	bipartisan_prob   DOUBLE PRECISION NOT NULL,
	lower_prob        DOUBLE PRECISION,
	upper_prob        DOUBLE PRECISION,
	lower_meta_margin DOUBLE PRECISION,
	upper_meta_margin DOUBLE PRECISION,
	PRIMARY KEY (run_id, state)
);

CREATE TABLE IF NOT EXISTS race_powers (
	run_id                    UUID NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
	state                     TEXT NOT NULL,
	district                  TEXT NOT NULL,
	office                    TEXT NOT NULL,
	favored                   TEXT NOT NULL,
	confidence                TEXT NOT NULL,
	margin                    DOUBLE PRECISION NOT NULL,
	voters                    INTEGER NOT NULL,
	voter_power               DOUBLE PRECISION NOT NULL,
	redistricting_voter_power DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, state, office, district)
);

CREATE INDEX IF NOT EXISTS race_powers_power_idx ON race_powers (run_id, voter_power DESC);
`

// Initialize creates a database connection pool and ensures the result schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}
