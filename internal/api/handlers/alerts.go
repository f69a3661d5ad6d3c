package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sqlc-dev/pqtype"

	"github.com/tblake/finboard/backend/internal/apierr"
	"github.com/tblake/finboard/backend/internal/marketdata"
	"github.com/tblake/finboard/backend/internal/store"
)

// AlertStore is the slice of the persistence layer these handlers need.
type AlertStore interface {
	ListAlerts(ctx context.Context, symbols []string) ([]store.Alert, error)
	CreateAlert(ctx context.Context, a store.Alert) (store.Alert, error)
	DeleteAlert(ctx context.Context, id uuid.UUID) (bool, error)
	ResetAlert(ctx context.Context, id uuid.UUID) (bool, error)
}

// GetAlerts lists alerts, optionally filtered by ?symbol=.
// GET /api/alerts
func GetAlerts(as AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var symbols []string
		if s := marketdata.NormalizeSymbol(r.URL.Query().Get("symbol")); s != "" {
			symbols = []string{s}
		}

		alerts, err := as.ListAlerts(r.Context(), symbols)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		if alerts == nil {
			alerts = []store.Alert{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"alerts": alerts,
			"count":  len(alerts),
		})
	}
}

// PostAlert creates a price alert.
// POST /api/alerts
func PostAlert(as AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Symbol    string          `json:"symbol"`
			Rule      string          `json:"rule"`
			Threshold float64         `json:"threshold"`
			Condition json.RawMessage `json:"condition"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}

		a := store.Alert{
			Symbol:    marketdata.NormalizeSymbol(body.Symbol),
			Rule:      body.Rule,
			Threshold: body.Threshold,
		}
		if len(body.Condition) > 0 {
			a.Condition = pqtype.NullRawMessage{RawMessage: body.Condition, Valid: true}
		}
		if err := a.Validate(); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.AlertInvalid(err.Error()))
			return
		}
		if !symbolPattern.MatchString(a.Symbol) {
			apierr.WriteErrorWithContext(w, r, apierr.QuoteInvalidSymbol(a.Symbol))
			return
		}

		created, err := as.CreateAlert(r.Context(), a)
		if err != nil {
			if errors.Is(err, store.ErrEmptySymbol) || errors.Is(err, store.ErrBadRule) || errors.Is(err, store.ErrBadThreshold) {
				apierr.WriteErrorWithContext(w, r, apierr.AlertInvalid(err.Error()))
				return
			}
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// DeleteAlert removes an alert by id.
// DELETE /api/alerts/{id}
func DeleteAlert(as AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a UUID"))
			return
		}

		found, err := as.DeleteAlert(r.Context(), id)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		if !found {
			apierr.WriteErrorWithContext(w, r, apierr.AlertNotFound())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PostAlertReset re-arms a triggered alert.
// POST /api/alerts/{id}/reset
func PostAlertReset(as AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a UUID"))
			return
		}

		found, err := as.ResetAlert(r.Context(), id)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		if !found {
			apierr.WriteErrorWithContext(w, r, apierr.AlertNotFound())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":    id,
			"reset": true,
			"at":    time.Now().UTC(),
		})
	}
}
