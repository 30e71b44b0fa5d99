package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"OptionSentinel/internal/collector"
	"OptionSentinel/internal/config"
	"OptionSentinel/internal/metrics"
	"OptionSentinel/internal/notifier"
	"OptionSentinel/internal/recorder"
	"OptionSentinel/internal/scheduler"
	"OptionSentinel/internal/strategy"
)

var cfgFile string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:   "optionsentinel",
		Short: "Call/put signal scanner for a stock watchlist",
		Long: `OptionSentinel scores a watchlist for call and put opportunities from
price indicators (MA50, RSI, MACD) and option-chain context (unusual volume,
implied volatility, upcoming earnings).

Examples:
  optionsentinel run
  optionsentinel scan --symbols AAPL,TSLA
  optionsentinel history list AAPL`,
		SilenceUsage: true,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultCfg, "config file path")

	rootCmd.AddCommand(newRunCmd(), newScanCmd(), newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// newCollector wires the live source (backend, then Yahoo) with the mock fallback.
func newCollector(cfg *config.Config) *collector.Collector {
	ds := cfg.DataSource
	var live collector.Fetcher
	switch {
	case ds.BackendURL != "":
		live = collector.NewBackendFetcher(ds.BackendURL, cfg.Proxy)
	case ds.UseYahoo:
		live = collector.NewYahooFetcher(cfg.Proxy, ds.RequestsPerMinute, ds.Lookback, ds.TopN, ds.UnusualVolumeMultiplier)
	}

	seed := ds.MockSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mock := collector.NewMockFetcher(seed, ds.UnusualVolumeMultiplier, cfg.Scoring.EarningsProximityDays)

	if live != nil {
		log.Printf("[INFO] data source: %s (fallback %s)", live.Name(), mock.Name())
	} else {
		log.Printf("[INFO] data source: %s only", mock.Name())
	}
	return collector.NewCollector(live, mock, cfg.Watchlist)
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, cfg.Database.HistoryLimit)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the refresh scheduler, metrics server and Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("[INFO] OptionSentinel starting...")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			col := newCollector(cfg)
			eng := strategy.NewEngine(cfg.Scoring)

			rec := openRecorder(cfg)
			defer rec.Close()

			m := metrics.NewMetrics()
			health := metrics.NewHealthStatus()
			srv := metrics.NewServer(cfg.Metrics.Addr, m, health)
			srv.Start()

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var tn *notifier.TelegramNotifier
			var sender scheduler.Sender
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				sender = tn
			} else {
				log.Println("[WARN] telegram not configured, alerts and commands disabled")
			}

			sched := scheduler.NewScheduler(ctx, col, eng, sender, rec, m, health, cfg.Telegram.AlertThreshold)
			if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.MarketStatusCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Println("[INFO] Telegram polling started")
			}

			if cfg.Schedule.RunOnStart {
				log.Println("[INFO] running initial refresh")
				go func() {
					if _, err := sched.RunNow(); err != nil {
						log.Printf("[ERROR] initial refresh: %v", err)
					}
				}()
			}

			log.Println("[INFO] OptionSentinel is running. Press Ctrl+C to stop.")

			// Wait for shutdown signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Println("[INFO] shutdown signal received, stopping...")
			cancel()
			sched.Stop()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			srv.Stop(shutdownCtx)
			log.Println("[INFO] OptionSentinel stopped")
			return nil
		},
	}
}
