package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"OptionSentinel/internal/config"
	"OptionSentinel/internal/model"
	"OptionSentinel/internal/recorder"
	"OptionSentinel/internal/strategy"
)

func newScanCmd() *cobra.Command {
	var (
		symbolList string
		format     string
		details    int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch and score the watchlist once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if symbolList != "" {
				cfg.Watchlist = nil
				for _, s := range strings.Split(symbolList, ",") {
					if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
						cfg.Watchlist = append(cfg.Watchlist, s)
					}
				}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			fmt.Printf("Fetching %d symbols...\n", len(cfg.Watchlist))
			data, status, err := newCollector(cfg).Collect(ctx, false)
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}

			eng := strategy.NewEngine(cfg.Scoring)
			now := time.Now()
			bar := progressbar.NewOptions(len(data),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Scoring"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]█[reset]",
					SaucerHead:    "[green]█[reset]",
					SaucerPadding: "░",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)

			var signals []model.Signal
			var errs []error
			for i := range data {
				sig, err := eng.Evaluate(&data[i], now)
				if err != nil {
					errs = append(errs, err)
				} else {
					signals = append(signals, sig)
				}
				bar.Add(1)
			}
			bar.Finish()
			fmt.Println()

			if err := errors.Join(errs...); err != nil {
				fmt.Fprintf(os.Stderr, "Skipped invalid tickers: %v\n", err)
			}

			ranked := strategy.Rank(signals)
			if format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ranked)
			}
			fmt.Printf("Data source: %s\n\n", status)
			outputSignalsTable(ranked)
			outputDetails(ranked, details)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated symbols (default: configured watchlist)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	cmd.Flags().IntVar(&details, "details", 3, "number of top signals to explain factor by factor")
	return cmd
}

func outputSignalsTable(signals []model.Signal) {
	if len(signals) == 0 {
		fmt.Println("No signals.")
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Rank", "Ticker", "Price", "Call", "Put", "Bias", "IV", "Unusual", "Earnings"}),
	)
	for i, s := range signals {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			s.Ticker,
			fmt.Sprintf("%.2f", s.Price),
			fmt.Sprintf("%d (%s)", s.CallScore, model.ScoreBand(s.CallScore)),
			fmt.Sprintf("%d (%s)", s.PutScore, model.ScoreBand(s.PutScore)),
			s.Bias(),
			string(s.IVLevel),
			yesNo(s.UnusualVolume),
			yesNo(s.EarningsSoon),
		})
	}
	table.Render()
}

func outputDetails(signals []model.Signal, n int) {
	if n <= 0 || len(signals) == 0 {
		return
	}
	fmt.Println("\n--- Factor Details ---")
	for i, s := range signals {
		if i >= n {
			break
		}
		fmt.Printf("\n%s  call %d / put %d\n", s.Ticker, s.CallScore, s.PutScore)
		for _, f := range s.Factors {
			fmt.Printf("  %-24s w%-3.0f call %+5.1f  put %+5.1f  %s\n", f.Name, f.Weight, f.Call, f.Put, f.Commentary)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the recorded signal history",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list [TICKER]",
		Short: "List recorded signals, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rec, err := openHistory()
			if err != nil {
				return err
			}
			defer rec.Close()

			var signals []model.Signal
			if len(args) == 1 {
				signals, err = rec.LoadTicker(args[0], limit)
			} else {
				signals, err = rec.LoadAll()
				if limit > 0 && len(signals) > limit {
					signals = signals[:limit]
				}
			}
			if err != nil {
				return err
			}
			if len(signals) == 0 {
				fmt.Println("No recorded signals.")
				return nil
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Time", "Ticker", "Price", "Call", "Put", "IV"}),
			)
			for _, s := range signals {
				table.Append([]string{
					s.Timestamp.Local().Format("2006-01-02 15:04"),
					s.Ticker,
					fmt.Sprintf("%.2f", s.Price),
					fmt.Sprintf("%d", s.CallScore),
					fmt.Sprintf("%d", s.PutScore),
					string(s.IVLevel),
				})
			}
			table.Render()
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")

	averages := &cobra.Command{
		Use:   "averages [TICKER...]",
		Short: "Show average call/put scores per ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, rec, err := openHistory()
			if err != nil {
				return err
			}
			defer rec.Close()

			tickers := args
			if len(tickers) == 0 {
				tickers = cfg.Watchlist
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Ticker", "Samples", "Avg Call", "Avg Put"}),
			)
			for _, t := range tickers {
				avg, err := rec.Averages(t)
				if err != nil {
					return err
				}
				table.Append([]string{
					avg.Ticker,
					fmt.Sprintf("%d", avg.Count),
					fmt.Sprintf("%.1f", avg.Call),
					fmt.Sprintf("%.1f", avg.Put),
				})
			}
			table.Render()
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rec, err := openHistory()
			if err != nil {
				return err
			}
			defer rec.Close()
			if err := rec.Clear(); err != nil {
				return err
			}
			fmt.Println("Signal history cleared.")
			return nil
		},
	}

	cmd.AddCommand(list, averages, clearCmd)
	return cmd
}

// openHistory opens the configured SQLite store; unlike the daemon it does
// not fall back to a no-op recorder.
func openHistory() (*config.Config, *recorder.SQLiteRecorder, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, cfg.Database.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rec, nil
}
