package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists the session snapshot in a single-row-per-slot table:
//
//	CREATE TABLE relaylink_sessions (
//	    slot       TEXT PRIMARY KEY,
//	    snapshot   JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool. The caller owns the pool's
// lifecycle (including Close).
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Load returns the stored snapshot for Slot, or nil if no row exists or
// its snapshot is not structurally valid.
func (p *Postgres) Load(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT snapshot FROM relaylink_sessions WHERE slot = $1`, Slot,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	if !isValidSnapshot(raw) {
		return nil, nil
	}
	return raw, nil
}

// Save upserts raw as the snapshot for Slot.
func (p *Postgres) Save(ctx context.Context, raw []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO relaylink_sessions (slot, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = now()
	`, Slot, raw)
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

// Remove deletes the row for Slot, if any.
func (p *Postgres) Remove(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM relaylink_sessions WHERE slot = $1`, Slot)
	if err != nil {
		return fmt.Errorf("store: remove: %w", err)
	}
	return nil
}
