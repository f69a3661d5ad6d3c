package store

import "context"

// EnsureSchema creates the tables if they do not exist. Kept idempotent so a
// fresh database works without a separate migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watchlist (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL UNIQUE,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			rule TEXT NOT NULL CHECK (rule IN ('above', 'below')),
			threshold DOUBLE PRECISION NOT NULL CHECK (threshold > 0),
			condition JSONB,
			triggered BOOLEAN NOT NULL DEFAULT FALSE,
			triggered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts (symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts (triggered) WHERE NOT triggered`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
