package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tblake/finboard/backend/internal/apierr"
	"github.com/tblake/finboard/backend/internal/marketdata"
	"github.com/tblake/finboard/backend/internal/store"
)

// WatchlistStore is the slice of the persistence layer these handlers need.
type WatchlistStore interface {
	ListWatchlist(ctx context.Context) ([]store.WatchlistItem, error)
	AddWatchlistItem(ctx context.Context, symbol, note string) (store.WatchlistItem, error)
	RemoveWatchlistItem(ctx context.Context, id uuid.UUID) (bool, error)
}

// GetWatchlist lists all tracked symbols.
// GET /api/watchlist
func GetWatchlist(ws WatchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := ws.ListWatchlist(r.Context())
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		if items == nil {
			items = []store.WatchlistItem{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items": items,
			"count": len(items),
		})
	}
}

// PostWatchlist adds a symbol to the watchlist.
// POST /api/watchlist
func PostWatchlist(ws WatchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Symbol string `json:"symbol"`
			Note   string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}

		symbol := marketdata.NormalizeSymbol(body.Symbol)
		if !symbolPattern.MatchString(symbol) {
			apierr.WriteErrorWithContext(w, r, apierr.QuoteInvalidSymbol(symbol))
			return
		}

		item, err := ws.AddWatchlistItem(r.Context(), symbol, body.Note)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// DeleteWatchlist removes an item by id.
// DELETE /api/watchlist/{id}
func DeleteWatchlist(ws WatchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a UUID"))
			return
		}

		found, err := ws.RemoveWatchlistItem(r.Context(), id)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(err.Error()))
			return
		}
		if !found {
			apierr.WriteErrorWithContext(w, r, apierr.WatchlistNotFound())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
