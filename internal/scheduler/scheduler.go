package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"OptionSentinel/internal/calendar"
	"OptionSentinel/internal/collector"
	"OptionSentinel/internal/metrics"
	"OptionSentinel/internal/model"
	"OptionSentinel/internal/notifier"
	"OptionSentinel/internal/recorder"
	"OptionSentinel/internal/strategy"
)

// Sender delivers formatted messages. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Cycle is the outcome of one refresh.
type Cycle struct {
	ID       string
	At       time.Time
	Status   model.DataStatus
	Signals  []model.Signal // ranked
	Invalid  int
	Recorded bool
}

// Scheduler manages the refresh cron and the bot commands.
type Scheduler struct {
	Cron           *cron.Cron
	Collector      *collector.Collector
	Engine         *strategy.Engine
	Notifier       Sender // nil disables alerts
	Recorder       recorder.Recorder
	Metrics        *metrics.Metrics
	Health         *metrics.HealthStatus
	AlertThreshold int
	Now            func() time.Time
	Ctx            context.Context

	cycleMu    sync.Mutex
	mu         sync.RWMutex
	latest     *Cycle
	alerted    map[string]string // ticker -> side alerted in the previous cycle
	marketOpen bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, eng *strategy.Engine, tn Sender,
	rec recorder.Recorder, m *metrics.Metrics, health *metrics.HealthStatus, alertThreshold int) *Scheduler {
	return &Scheduler{
		Cron:           cron.New(cron.WithSeconds()),
		Collector:      col,
		Engine:         eng,
		Notifier:       tn,
		Recorder:       rec,
		Metrics:        m,
		Health:         health,
		AlertThreshold: alertThreshold,
		Now:            time.Now,
		Ctx:            ctx,
		alerted:        make(map[string]string),
	}
}

// RegisterAll registers the refresh and market status tasks.
func (s *Scheduler) RegisterAll(refreshCron, marketCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(marketCron, s.marketStatusTask); err != nil {
		return fmt.Errorf("register market status task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one refresh immediately regardless of market hours.
func (s *Scheduler) RunNow() (*Cycle, error) {
	return s.RunCycle(s.Ctx, false)
}

// RetryLive forces a live data attempt even when the collector has fallen
// back to mock data.
func (s *Scheduler) RetryLive(ctx context.Context) (*Cycle, error) {
	log.Println("[INFO] retrying live data source")
	return s.RunCycle(ctx, true)
}

// Latest returns the most recent cycle, or nil before the first refresh.
func (s *Scheduler) Latest() *Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Scheduler) refreshTask() {
	now := s.Now()
	open := calendar.IsMarketOpen(now)
	s.setMarketOpen(open)
	if !open {
		return
	}
	if _, err := s.RunCycle(s.Ctx, false); err != nil {
		log.Printf("[ERROR] refresh: %v", err)
	}
}

func (s *Scheduler) marketStatusTask() {
	open := calendar.IsMarketOpen(s.Now())
	s.setMarketOpen(open)
	state := "closed"
	if open {
		state = "open"
	}
	log.Printf("[INFO] market %s, data status %s", state, s.Collector.Status())
}

func (s *Scheduler) setMarketOpen(open bool) {
	s.mu.Lock()
	changed := s.marketOpen != open
	s.marketOpen = open
	s.mu.Unlock()
	s.Metrics.SetMarketOpen(open)
	if changed {
		if open {
			log.Println("[INFO] market opened, refresh resumed")
		} else {
			log.Println("[INFO] market closed, refresh paused")
		}
	}
}

// RunCycle fetches the watchlist, scores it, records live signals while the
// market is open and alerts on signals at or above the threshold. Cycles are
// serialized.
func (s *Scheduler) RunCycle(ctx context.Context, forceLive bool) (*Cycle, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	c := &Cycle{ID: uuid.NewString(), At: s.Now()}

	start := time.Now()
	data, status, err := s.Collector.Collect(ctx, forceLive)
	s.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	s.Metrics.SetDataStatus(s.Collector.Status())
	if err != nil {
		s.Metrics.CyclesTotal.WithLabelValues("error").Inc()
		s.Health.RecordCycle(s.Collector.Status(), err)
		return nil, fmt.Errorf("collect: %w", err)
	}
	c.Status = status

	start = time.Now()
	signals, scoreErr := s.Engine.ScoreAll(ctx, data, c.At)
	s.Metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	if signals == nil && scoreErr != nil && ctx.Err() != nil {
		s.Metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("score: %w", scoreErr)
	}
	if scoreErr != nil {
		c.Invalid = countErrors(scoreErr)
		s.Metrics.InvalidInputs.Add(float64(c.Invalid))
		log.Printf("[WARN] cycle %s: %d ticker(s) skipped: %v", c.ID, c.Invalid, scoreErr)
	}
	c.Signals = strategy.Rank(signals)

	s.alert(ctx, c)

	open := calendar.IsMarketOpen(c.At)
	s.setMarketOpen(open)
	if status == model.StatusLive && open && len(c.Signals) > 0 {
		if err := s.Recorder.Append(c.ID, c.Signals); err != nil {
			log.Printf("[ERROR] record cycle %s: %v", c.ID, err)
			s.Health.SetRecorderOK(false)
		} else {
			c.Recorded = true
			s.Health.SetRecorderOK(true)
		}
	}

	s.Metrics.ObserveSignals(c.Signals)
	s.Metrics.CyclesTotal.WithLabelValues(string(status)).Inc()
	s.Health.RecordCycle(status, scoreErr)

	s.mu.Lock()
	s.latest = c
	s.mu.Unlock()

	log.Printf("[INFO] cycle %s: %d signals from %s data (recorded=%v)", c.ID, len(c.Signals), status, c.Recorded)
	return c, nil
}

// alert notifies each signal whose strongest side reaches the threshold,
// once per run of consecutive live cycles above it. Mock cycles never alert
// and leave no alert state behind.
func (s *Scheduler) alert(ctx context.Context, c *Cycle) {
	next := make(map[string]string)
	for _, sig := range c.Signals {
		if sig.Strongest() < s.AlertThreshold || sig.Bias() == "neutral" {
			continue
		}
		side := sig.Bias()
		if c.Status == model.StatusMock {
			log.Printf("[INFO] %s %s signal at %d from mock data, not alerting", sig.Ticker, side, sig.Strongest())
			continue
		}
		next[sig.Ticker] = side
		if s.alerted[sig.Ticker] == side || s.Notifier == nil {
			continue
		}
		avg, err := s.Recorder.Averages(sig.Ticker)
		if err != nil {
			log.Printf("[WARN] averages for %s: %v", sig.Ticker, err)
		}
		if err := s.Notifier.SendWithRetry(ctx, notifier.FormatSignalAlert(sig, avg), 3); err != nil {
			log.Printf("[ERROR] send alert for %s: %v", sig.Ticker, err)
			delete(next, sig.Ticker)
			continue
		}
		s.Metrics.AlertsSent.Inc()
	}
	s.alerted = next
}

// HandleCommand processes a parsed bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, cmd notifier.Command) string {
	switch cmd.Name {
	case "/signals":
		c := s.Latest()
		if c == nil {
			var err error
			if c, err = s.RunCycle(ctx, false); err != nil {
				return fmt.Sprintf("❌ refresh failed: %v", err)
			}
		}
		return notifier.FormatBoard(c.Signals, c.Status, c.At)
	case "/history":
		ticker := strings.ToUpper(cmd.Arg(0))
		if ticker == "" {
			return "Usage: /history TICKER"
		}
		hist, err := s.Recorder.LoadTicker(ticker, 10)
		if err != nil {
			return fmt.Sprintf("❌ load history: %v", err)
		}
		avg, err := s.Recorder.Averages(ticker)
		if err != nil {
			return fmt.Sprintf("❌ load averages: %v", err)
		}
		return notifier.FormatHistory(ticker, hist, avg)
	case "/retry":
		c, err := s.RetryLive(ctx)
		if err != nil {
			return fmt.Sprintf("❌ retry failed: %v", err)
		}
		return notifier.FormatBoard(c.Signals, c.Status, c.At)
	case "/clear":
		if err := s.Recorder.Clear(); err != nil {
			return fmt.Sprintf("❌ clear history: %v", err)
		}
		return "🗑 Signal history cleared."
	default:
		return notifier.FormatHelp()
	}
}

func countErrors(err error) int {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap())
	}
	return 1
}
