package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"OptionSentinel/internal/model"
)

// Metrics holds all Prometheus metrics for the signal bot.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal   *prometheus.CounterVec // labels: status=live|mock|error
	SignalsScored prometheus.Counter
	InvalidInputs prometheus.Counter
	AlertsSent    prometheus.Counter
	FetchDuration prometheus.Histogram
	ScoreDuration prometheus.Histogram
	DataStatus    prometheus.Gauge     // 0=loading, 1=live, 2=mock
	MarketState   prometheus.Gauge     // 0=closed, 1=open
	Scores        *prometheus.GaugeVec // labels: ticker, side=call|put
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optsentinel_cycles_total",
			Help: "Refresh cycles completed (by data status)",
		}, []string{"status"}),
		SignalsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optsentinel_signals_scored_total",
			Help: "Total signals produced by the scoring engine",
		}),
		InvalidInputs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optsentinel_invalid_inputs_total",
			Help: "Tickers skipped because their snapshot failed validation",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optsentinel_alerts_sent_total",
			Help: "Signal alerts delivered to Telegram",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optsentinel_fetch_duration_seconds",
			Help:    "Watchlist fetch latency per cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ScoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optsentinel_score_duration_seconds",
			Help:    "Indicator and scoring latency per cycle",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		DataStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optsentinel_data_status",
			Help: "Data source state (0=loading, 1=live, 2=mock)",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optsentinel_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
		Scores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "optsentinel_signal_score",
			Help: "Latest call/put score per ticker",
		}, []string{"ticker", "side"}),
	}

	m.Registry.MustRegister(
		m.CyclesTotal,
		m.SignalsScored,
		m.InvalidInputs,
		m.AlertsSent,
		m.FetchDuration,
		m.ScoreDuration,
		m.DataStatus,
		m.MarketState,
		m.Scores,
	)
	return m
}

// SetDataStatus maps the collector state onto the status gauge.
func (m *Metrics) SetDataStatus(s model.DataStatus) {
	switch s {
	case model.StatusLive:
		m.DataStatus.Set(1)
	case model.StatusMock:
		m.DataStatus.Set(2)
	default:
		m.DataStatus.Set(0)
	}
}

func (m *Metrics) SetMarketOpen(open bool) {
	if open {
		m.MarketState.Set(1)
	} else {
		m.MarketState.Set(0)
	}
}

// ObserveSignals publishes the latest scores.
func (m *Metrics) ObserveSignals(signals []model.Signal) {
	m.SignalsScored.Add(float64(len(signals)))
	for _, s := range signals {
		m.Scores.WithLabelValues(s.Ticker, "call").Set(float64(s.CallScore))
		m.Scores.WithLabelValues(s.Ticker, "put").Set(float64(s.PutScore))
	}
}

// HealthStatus represents the bot's health as served on /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	DataStatus   model.DataStatus
	LastCycleAt  time.Time
	LastCycleErr string
	RecorderOK   bool
	StartedAt    time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		DataStatus: model.StatusLoading,
		RecorderOK: true,
		StartedAt:  time.Now(),
	}
}

// RecordCycle stores the outcome of one refresh cycle.
func (h *HealthStatus) RecordCycle(status model.DataStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.DataStatus = status
	h.LastCycleAt = time.Now()
	h.LastCycleErr = ""
	if err != nil {
		h.LastCycleErr = err.Error()
	}
}

func (h *HealthStatus) SetRecorderOK(v bool) {
	h.mu.Lock()
	h.RecorderOK = v
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if h.DataStatus != model.StatusLive || !h.RecorderOK || h.LastCycleErr != "" {
		overall = "degraded"
	}
	if !h.RecorderOK {
		code = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleAt.IsZero() {
		lastCycle = h.LastCycleAt.Format(time.RFC3339)
	}

	status := struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		DataStatus   string `json:"data_status"`
		LastCycleAt  string `json:"last_cycle_at"`
		LastCycleErr string `json:"last_cycle_error,omitempty"`
		RecorderOK   bool   `json:"recorder_ok"`
	}{
		Status:       overall,
		Uptime:       time.Since(h.StartedAt).Round(time.Second).String(),
		DataStatus:   string(h.DataStatus),
		LastCycleAt:  lastCycle,
		LastCycleErr: h.LastCycleErr,
		RecorderOK:   h.RecorderOK,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[INFO] metrics server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
