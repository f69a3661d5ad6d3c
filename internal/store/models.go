package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Alert rules
const (
	RuleAbove = "above" // fire when price rises to or past the threshold
	RuleBelow = "below" // fire when price falls to or past the threshold
)

// WatchlistItem is one tracked symbol.
type WatchlistItem struct {
	ID        uuid.UUID `json:"id"`
	Symbol    string    `json:"symbol"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is a price alert. Condition carries optional provider-specific JSON
// (e.g. a percent-change qualifier) without a schema change.
type Alert struct {
	ID          uuid.UUID             `json:"id"`
	Symbol      string                `json:"symbol"`
	Rule        string                `json:"rule"`
	Threshold   float64               `json:"threshold"`
	Condition   pqtype.NullRawMessage `json:"condition,omitempty"`
	Triggered   bool                  `json:"triggered"`
	TriggeredAt sql.NullTime          `json:"triggered_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

var (
	ErrEmptySymbol  = errors.New("alert symbol is required")
	ErrBadRule      = errors.New("alert rule must be above or below")
	ErrBadThreshold = errors.New("alert threshold must be positive")
)

// Validate checks the fields a client can supply.
func (a Alert) Validate() error {
	if a.Symbol == "" {
		return ErrEmptySymbol
	}
	if a.Rule != RuleAbove && a.Rule != RuleBelow {
		return ErrBadRule
	}
	if a.Threshold <= 0 {
		return ErrBadThreshold
	}
	return nil
}

// ShouldFire reports whether the given price crosses the alert threshold.
func (a Alert) ShouldFire(price float64) bool {
	switch a.Rule {
	case RuleAbove:
		return price >= a.Threshold
	case RuleBelow:
		return price <= a.Threshold
	}
	return false
}
