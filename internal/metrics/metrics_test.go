package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"OptionSentinel/internal/model"
)

func TestMetrics_ObserveSignals(t *testing.T) {
	m := NewMetrics()
	m.ObserveSignals([]model.Signal{
		{Ticker: "AAPL", CallScore: 82, PutScore: 10},
		{Ticker: "SPY", CallScore: 30, PutScore: 64},
	})
	m.SetDataStatus(model.StatusMock)

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"optsentinel_signals_scored_total 2",
		`optsentinel_signal_score{side="call",ticker="AAPL"} 82`,
		`optsentinel_signal_score{side="put",ticker="SPY"} 64`,
		"optsentinel_data_status 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestNewMetrics_Independent(t *testing.T) {
	// Private registries allow more than one instance per process.
	NewMetrics()
	NewMetrics()
}

func TestHealthStatus(t *testing.T) {
	h := NewHealthStatus()
	h.RecordCycle(model.StatusLive, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("expected healthy 200, got %d %v", rec.Code, body["status"])
	}

	h.RecordCycle(model.StatusMock, errors.New("backend down"))
	h.SetRecorderOK(false)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the recorder fails, got %d", rec.Code)
	}
}
