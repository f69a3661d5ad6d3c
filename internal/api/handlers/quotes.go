package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tblake/finboard/backend/internal/apierr"
	"github.com/tblake/finboard/backend/internal/circuitbreaker"
	"github.com/tblake/finboard/backend/internal/marketdata"
)

// MarketData is the slice of the market client these handlers need.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) map[string]*marketdata.Quote
	GetCandles(ctx context.Context, symbol, resolution string, from, to int64) (*marketdata.Candles, error)
}

// Tickers are 1-10 uppercase letters, digits, dots or dashes (BRK.B, BTC-USD).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

const maxBatchSymbols = 25

// GetQuote returns one symbol's quote.
// GET /api/quotes/{symbol}
func GetQuote(md MarketData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := marketdata.NormalizeSymbol(mux.Vars(r)["symbol"])
		if !symbolPattern.MatchString(symbol) {
			apierr.WriteErrorWithContext(w, r, apierr.QuoteInvalidSymbol(symbol))
			return
		}

		q, err := md.GetQuote(r.Context(), symbol)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, quoteError(symbol, err))
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GetQuotes returns quotes for up to maxBatchSymbols comma-separated symbols.
// GET /api/quotes?symbols=AAPL,MSFT
func GetQuotes(md MarketData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("symbols")
		if strings.TrimSpace(raw) == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("symbols"))
			return
		}

		var symbols []string
		for _, s := range strings.Split(raw, ",") {
			s = marketdata.NormalizeSymbol(s)
			if s == "" {
				continue
			}
			if !symbolPattern.MatchString(s) {
				apierr.WriteErrorWithContext(w, r, apierr.QuoteInvalidSymbol(s))
				return
			}
			symbols = append(symbols, s)
		}
		if len(symbols) == 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("symbols"))
			return
		}
		if len(symbols) > maxBatchSymbols {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("symbols",
				"at most "+strconv.Itoa(maxBatchSymbols)+" symbols per request"))
			return
		}

		quotes := md.GetQuotes(r.Context(), symbols)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"quotes": quotes,
			"count":  len(quotes),
		})
	}
}

// GetHistory returns OHLCV candles.
// GET /api/history/{symbol}?resolution=D&from=...&to=...
func GetHistory(md MarketData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := marketdata.NormalizeSymbol(mux.Vars(r)["symbol"])
		if !symbolPattern.MatchString(symbol) {
			apierr.WriteErrorWithContext(w, r, apierr.QuoteInvalidSymbol(symbol))
			return
		}

		resolution := r.URL.Query().Get("resolution")
		if resolution == "" {
			resolution = "D"
		}

		now := time.Now().Unix()
		from, err := unixParam(r, "from", now-30*24*3600)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("from", "must be a unix timestamp"))
			return
		}
		to, err := unixParam(r, "to", now)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("to", "must be a unix timestamp"))
			return
		}
		if from >= to {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("from", "must be before to"))
			return
		}

		candles, err := md.GetCandles(r.Context(), symbol, resolution, from, to)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, quoteError(symbol, err))
			return
		}
		writeJSON(w, http.StatusOK, candles)
	}
}

// quoteError maps upstream client errors to API errors.
func quoteError(symbol string, err error) *apierr.Error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return apierr.QuoteUnavailable()
	}
	var apiErr *marketdata.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case marketdata.ErrorSymbolUnknown, marketdata.ErrorNotFound:
			return apierr.QuoteNotFound(symbol)
		case marketdata.ErrorRateLimited, marketdata.ErrorQuotaExceeded:
			return apierr.QuoteUnavailable()
		}
		return apierr.QuoteUpstreamFailed(apiErr.Message)
	}
	return apierr.QuoteUpstreamFailed(err.Error())
}

func unixParam(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
