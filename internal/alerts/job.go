// Package alerts evaluates price alerts against cached quotes on an interval.
package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tblake/finboard/backend/internal/logger"
	"github.com/tblake/finboard/backend/internal/marketdata"
	"github.com/tblake/finboard/backend/internal/metrics"
	"github.com/tblake/finboard/backend/internal/store"
	"github.com/tblake/finboard/backend/internal/tracing"
)

// Quoter is the slice of the market data client the evaluator needs.
type Quoter interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]*marketdata.Quote
}

// AlertStore is the slice of the persistence layer the evaluator needs.
type AlertStore interface {
	ListActiveAlerts(ctx context.Context) ([]store.Alert, error)
	MarkAlertTriggered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Job periodically evaluates active alerts.
type Job struct {
	quotes   Quoter
	alerts   AlertStore
	interval time.Duration
	log      *slog.Logger
}

// Triggered is reported for each alert that fires during a sweep.
type Triggered struct {
	Alert store.Alert
	Price float64
	At    time.Time
}

// OnTrigger, when set, receives each fired alert (used to push over websocket).
type OnTrigger func(Triggered)

func NewJob(quotes Quoter, alerts AlertStore, interval time.Duration) *Job {
	return &Job{
		quotes:   quotes,
		alerts:   alerts,
		interval: interval,
		log:      logger.WithComponent("alerts"),
	}
}

// Start runs the evaluation loop until ctx is cancelled. An immediate sweep
// runs on start so fresh deploys do not wait a full interval.
func (j *Job) Start(ctx context.Context, onTrigger OnTrigger) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	if err := j.Sweep(ctx, onTrigger); err != nil {
		j.log.Error("alert sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Sweep(ctx, onTrigger); err != nil {
				j.log.Error("alert sweep failed", "error", err)
			}
		}
	}
}

// Sweep evaluates every active alert once. Quotes come through the shared
// cache, so a sweep right after user traffic costs few upstream calls.
func (j *Job) Sweep(ctx context.Context, onTrigger OnTrigger) error {
	ctx, span := tracing.StartSpan(ctx, "alerts.sweep")
	defer span.End()

	active, err := j.alerts.ListActiveAlerts(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(active))
	seen := make(map[string]bool)
	for _, a := range active {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			symbols = append(symbols, a.Symbol)
		}
	}

	quotes := j.quotes.GetQuotes(ctx, symbols)
	now := time.Now().UTC()

	for _, a := range active {
		metrics.AlertsEvaluated.Inc()
		q, ok := quotes[a.Symbol]
		if !ok {
			continue
		}
		if !a.ShouldFire(q.Current) {
			continue
		}
		if err := j.alerts.MarkAlertTriggered(ctx, a.ID, now); err != nil {
			// Lost race with a concurrent sweep or a deleted alert
			j.log.Warn("could not mark alert triggered", "alert_id", a.ID, "error", err)
			continue
		}
		metrics.AlertsTriggered.Inc()
		j.log.Info("alert triggered",
			"alert_id", a.ID, "symbol", a.Symbol, "rule", a.Rule,
			"threshold", a.Threshold, "price", q.Current)
		if onTrigger != nil {
			onTrigger(Triggered{Alert: a, Price: q.Current, At: now})
		}
	}
	return nil
}
