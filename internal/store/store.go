// Package store persists watchlists and price alerts in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tblake/finboard/backend/internal/metrics"
)

// Store wraps the database handle with typed queries.
type Store struct {
	db *sql.DB
}

// Init opens and pings the database.
func Init(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle; used by tests.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// observe records operation latency and errors.
func observe(op string, start time.Time, err error) {
	metrics.DBOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues(op).Inc()
	}
}

// ListWatchlist returns all watchlist rows ordered by insertion time.
func (s *Store) ListWatchlist(ctx context.Context) (items []WatchlistItem, err error) {
	start := time.Now()
	defer func() { observe("list_watchlist", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, note, created_at FROM watchlist ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it WatchlistItem
		if err = rows.Scan(&it.ID, &it.Symbol, &it.Note, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddWatchlistItem inserts a symbol; re-adding an existing symbol updates the
// note instead of duplicating the row.
func (s *Store) AddWatchlistItem(ctx context.Context, symbol, note string) (item WatchlistItem, err error) {
	start := time.Now()
	defer func() { observe("add_watchlist_item", start, err) }()

	item = WatchlistItem{ID: uuid.New(), Symbol: symbol, Note: note}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO watchlist (id, symbol, note)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (symbol) DO UPDATE SET note = EXCLUDED.note
		 RETURNING id, created_at`,
		item.ID, item.Symbol, item.Note).Scan(&item.ID, &item.CreatedAt)
	return item, err
}

// RemoveWatchlistItem deletes by id, reporting whether a row existed.
func (s *Store) RemoveWatchlistItem(ctx context.Context, id uuid.UUID) (found bool, err error) {
	start := time.Now()
	defer func() { observe("remove_watchlist_item", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// WatchlistSymbols returns the distinct symbols on the watchlist.
func (s *Store) WatchlistSymbols(ctx context.Context) (symbols []string, err error) {
	start := time.Now()
	defer func() { observe("watchlist_symbols", start, err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM watchlist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sym string
		if err = rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// CreateAlert stores a new price alert.
func (s *Store) CreateAlert(ctx context.Context, a Alert) (out Alert, err error) {
	start := time.Now()
	defer func() { observe("create_alert", start, err) }()

	if err = a.Validate(); err != nil {
		return Alert{}, err
	}
	out = a
	out.ID = uuid.New()
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO alerts (id, symbol, rule, threshold, condition)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		out.ID, out.Symbol, out.Rule, out.Threshold, out.Condition).Scan(&out.CreatedAt)
	return out, err
}

// ListAlerts returns all alerts, optionally filtered to specific symbols.
func (s *Store) ListAlerts(ctx context.Context, symbols []string) (alerts []Alert, err error) {
	start := time.Now()
	defer func() { observe("list_alerts", start, err) }()

	query := `SELECT id, symbol, rule, threshold, condition, triggered, triggered_at, created_at
	          FROM alerts`
	var args []any
	if len(symbols) > 0 {
		query += ` WHERE symbol = ANY($1)`
		args = append(args, pq.Array(symbols))
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// ListActiveAlerts returns alerts that have not yet fired.
func (s *Store) ListActiveAlerts(ctx context.Context) (alerts []Alert, err error) {
	start := time.Now()
	defer func() { observe("list_active_alerts", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, rule, threshold, condition, triggered, triggered_at, created_at
		 FROM alerts WHERE NOT triggered ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// MarkAlertTriggered flips an alert to triggered with the firing time.
func (s *Store) MarkAlertTriggered(ctx context.Context, id uuid.UUID, at time.Time) (err error) {
	start := time.Now()
	defer func() { observe("mark_alert_triggered", start, err) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET triggered = TRUE, triggered_at = $2 WHERE id = $1 AND NOT triggered`,
		id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		err = fmt.Errorf("alert %s not found or already triggered", id)
	}
	return err
}

// DeleteAlert removes an alert by id.
func (s *Store) DeleteAlert(ctx context.Context, id uuid.UUID) (found bool, err error) {
	start := time.Now()
	defer func() { observe("delete_alert", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetAlert re-arms a previously triggered alert.
func (s *Store) ResetAlert(ctx context.Context, id uuid.UUID) (found bool, err error) {
	start := time.Now()
	defer func() { observe("reset_alert", start, err) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET triggered = FALSE, triggered_at = NULL WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanAlerts(rows *sql.Rows) ([]Alert, error) {
	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Rule, &a.Threshold,
			&a.Condition, &a.Triggered, &a.TriggeredAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
