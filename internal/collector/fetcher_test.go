package collector

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

const backendBody = `{"tickers":[{
	"ticker":"AAPL","price":191.5,
	"candles":[
		{"time":"2026-10-15T00:00:00.000000Z","open":190,"high":192,"low":189,"close":191.5,"volume":1000},
		{"time":"2026-10-14T00:00:00.000000Z","open":188,"high":191,"low":187,"close":190,"volume":900}
	],
	"options":{"topCalls":[{"contractSymbol":"AAPL261016C00195000","strike":195,"lastPrice":1.2,"volume":500,"openInterest":900,"impliedVolatility":0.3,"isUnusual":true}],
		"topPuts":[],"averageIV":0.3},
	"earningsDate":"2026-10-20T00:00:00.000000Z"
},{
	"ticker":"SPY","price":500,"candles":[],"options":{"topCalls":[],"topPuts":[],"averageIV":0},"earningsDate":null
}]}`

func TestBackendFetcher(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("tickers")
		fmt.Fprint(w, backendBody)
	}))
	defer srv.Close()

	f := NewBackendFetcher(srv.URL+"/", "")
	data, err := f.FetchAll(context.Background(), []string{"AAPL", "SPY"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotQuery != "AAPL,SPY" {
		t.Errorf("tickers query: got %q", gotQuery)
	}
	if len(data) != 2 {
		t.Fatalf("expected 2 tickers, got %d", len(data))
	}
	aapl := data[0]
	if !aapl.Candles[0].Time.Before(aapl.Candles[1].Time) {
		t.Error("candles should be sorted chronologically")
	}
	if aapl.EarningsDate == nil || aapl.EarningsDate.Day() != 20 {
		t.Errorf("earnings date: got %v", aapl.EarningsDate)
	}
	if !aapl.Options.UnusualCalls() {
		t.Error("expected unusual call flag to round-trip")
	}
	if data[1].EarningsDate != nil {
		t.Error("null earnings date should decode as nil")
	}
}

func TestBackendFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"missing tickers", http.StatusOK, `{"error":"No tickers provided"}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			fmt.Fprint(w, tt.body)
		}))
		_, err := NewBackendFetcher(srv.URL, "").FetchAll(context.Background(), []string{"AAPL"})
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
		srv.Close()
	}
}

const chartBody = `{"chart":{"result":[{
	"timestamp":[1760572800,1760659200,1760745600],
	"indicators":{"quote":[{
		"open":[100,null,102],"high":[101,null,104],"low":[99,null,101],"close":[100.5,null,103],"volume":[1000,null,1200]
	}]}
}],"error":null}}`

const optionsBody = `{"optionChain":{"result":[{
	"quote":{"regularMarketPrice":103,"earningsTimestamp":1761004800},
	"options":[{
		"calls":[
			{"contractSymbol":"C1","strike":100,"lastPrice":3,"volume":10,"openInterest":5,"impliedVolatility":0.3},
			{"contractSymbol":"C2","strike":105,"lastPrice":1,"volume":20,"openInterest":5,"impliedVolatility":0.3},
			{"contractSymbol":"C3","strike":110,"lastPrice":0.5,"volume":30,"openInterest":5,"impliedVolatility":0.3},
			{"contractSymbol":"C4","strike":115,"lastPrice":0.2,"volume":400,"openInterest":5,"impliedVolatility":0.5},
			{"contractSymbol":"C5","strike":120,"lastPrice":0.1,"volume":5,"openInterest":5,"impliedVolatility":0.3},
			{"contractSymbol":"C6","strike":125,"lastPrice":0.1,"volume":6,"openInterest":5,"impliedVolatility":0.3}
		],
		"puts":[
			{"contractSymbol":"P1","strike":100,"lastPrice":2,"volume":50,"openInterest":5,"impliedVolatility":0.2},
			{"contractSymbol":"P2","strike":95,"lastPrice":1,"volume":60,"openInterest":5,"impliedVolatility":0.2}
		]
	}]
}],"error":null}}`

func TestYahooFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody)
	})
	mux.HandleFunc("/v7/finance/options/AAPL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, optionsBody)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewYahooFetcher("", 6000, 60, 2, 3)
	f.BaseURL = srv.URL

	data, err := f.FetchAll(context.Background(), []string{"AAPL", "MISSING"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("expected only AAPL, got %d tickers", len(data))
	}
	td := data[0]
	if len(td.Candles) != 2 {
		t.Errorf("null bar should be skipped, got %d candles", len(td.Candles))
	}
	if td.Price != 103 {
		t.Errorf("price: got %v, want 103", td.Price)
	}
	if err := td.Validate(); err != nil {
		t.Errorf("snapshot invalid: %v", err)
	}

	calls := td.Options.TopCalls
	if len(calls) != 2 || calls[0].ContractSymbol != "C4" || calls[1].ContractSymbol != "C3" {
		t.Fatalf("top calls: %+v", calls)
	}
	if !calls[0].IsUnusual || calls[1].IsUnusual || td.Options.UnusualPuts() {
		t.Errorf("unusual flags wrong: calls=%+v puts=%+v", calls, td.Options.TopPuts)
	}
	wantIV := (0.5 + 0.3 + 0.2 + 0.2) / 4
	if math.Abs(td.Options.AverageIV-wantIV) > 1e-9 {
		t.Errorf("average IV: got %v, want %v", td.Options.AverageIV, wantIV)
	}
	if td.EarningsDate == nil || td.EarningsDate.Unix() != 1761004800 {
		t.Errorf("earnings date: got %v", td.EarningsDate)
	}
}

func TestYahooFetcher_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	f := NewYahooFetcher("", 6000, 60, 5, 3)
	f.BaseURL = srv.URL
	if _, err := f.FetchAll(context.Background(), []string{"AAPL"}); err == nil {
		t.Error("expected error when no ticker can be fetched")
	}
}
