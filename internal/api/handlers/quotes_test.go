package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/tblake/finboard/backend/internal/marketdata"
)

type fakeMarket struct {
	quote      *marketdata.Quote
	quoteErr   error
	quotes     map[string]*marketdata.Quote
	candles    *marketdata.Candles
	candlesErr error
}

func (f *fakeMarket) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeMarket) GetQuotes(ctx context.Context, symbols []string) map[string]*marketdata.Quote {
	return f.quotes
}

func (f *fakeMarket) GetCandles(ctx context.Context, symbol, resolution string, from, to int64) (*marketdata.Candles, error) {
	return f.candles, f.candlesErr
}

func quoteRouter(md MarketData) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/quotes/{symbol}", GetQuote(md)).Methods("GET")
	r.HandleFunc("/api/quotes", GetQuotes(md)).Methods("GET")
	r.HandleFunc("/api/history/{symbol}", GetHistory(md)).Methods("GET")
	return r
}

func TestGetQuote_OK(t *testing.T) {
	md := &fakeMarket{quote: &marketdata.Quote{Symbol: "AAPL", Current: 190.5}}
	rr := httptest.NewRecorder()
	quoteRouter(md).ServeHTTP(rr, httptest.NewRequest("GET", "/api/quotes/aapl", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var q marketdata.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Symbol != "AAPL" || q.Current != 190.5 {
		t.Errorf("quote = %+v", q)
	}
}

func TestGetQuote_InvalidSymbol(t *testing.T) {
	rr := httptest.NewRecorder()
	quoteRouter(&fakeMarket{}).ServeHTTP(rr, httptest.NewRequest("GET", "/api/quotes/way-too-long-symbol", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGetQuote_UnknownSymbolIs404(t *testing.T) {
	md := &fakeMarket{quoteErr: &marketdata.APIError{Type: marketdata.ErrorSymbolUnknown, Message: "nope"}}
	rr := httptest.NewRecorder()
	quoteRouter(md).ServeHTTP(rr, httptest.NewRequest("GET", "/api/quotes/ZZZZ", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestGetQuotes_MissingParam(t *testing.T) {
	rr := httptest.NewRecorder()
	quoteRouter(&fakeMarket{}).ServeHTTP(rr, httptest.NewRequest("GET", "/api/quotes", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGetQuotes_OK(t *testing.T) {
	md := &fakeMarket{quotes: map[string]*marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Current: 190},
		"MSFT": {Symbol: "MSFT", Current: 430},
	}}
	rr := httptest.NewRecorder()
	quoteRouter(md).ServeHTTP(rr, httptest.NewRequest("GET", "/api/quotes?symbols=aapl,msft", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestGetQuotes_TooManySymbols(t *testing.T) {
	q := "/api/quotes?symbols=A1"
	for i := 0; i < maxBatchSymbols; i++ {
		q += ",S" + string(rune('A'+i%26)) + "1"
	}
	rr := httptest.NewRecorder()
	quoteRouter(&fakeMarket{}).ServeHTTP(rr, httptest.NewRequest("GET", q, nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGetHistory_OK(t *testing.T) {
	md := &fakeMarket{candles: &marketdata.Candles{Symbol: "AAPL", Close: []float64{1, 2}}}
	rr := httptest.NewRecorder()
	quoteRouter(md).ServeHTTP(rr, httptest.NewRequest("GET", "/api/history/AAPL", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestGetHistory_BadRange(t *testing.T) {
	rr := httptest.NewRecorder()
	quoteRouter(&fakeMarket{}).ServeHTTP(rr,
		httptest.NewRequest("GET", "/api/history/AAPL?from=100&to=50", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
