package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"OptionSentinel/internal/recorder"
	"OptionSentinel/internal/strategy"
)

// DefaultWatchlist is scanned when no watchlist is configured.
var DefaultWatchlist = []string{"AAPL", "TSLA", "SPY", "NFLX", "AMZN", "GOOGL", "IWM"}

// Config holds all application configuration.
type Config struct {
	Watchlist []string `yaml:"watchlist"`
	Telegram  struct {
		BotToken       string `yaml:"bot_token"`
		ChatID         string `yaml:"chat_id"`
		AlertThreshold int    `yaml:"alert_threshold"`
	} `yaml:"telegram"`
	DataSource struct {
		BackendURL              string  `yaml:"backend_url"`
		UseYahoo                bool    `yaml:"use_yahoo"`
		RequestsPerMinute       int     `yaml:"requests_per_minute"`
		Lookback                int     `yaml:"lookback"`
		TopN                    int     `yaml:"top_n"`
		UnusualVolumeMultiplier float64 `yaml:"unusual_volume_multiplier"`
		MockSeed                int64   `yaml:"mock_seed"`
	} `yaml:"data_source"`
	Schedule struct {
		RefreshCron      string `yaml:"refresh_cron"`
		MarketStatusCron string `yaml:"market_status_cron"`
		RunOnStart       bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Scoring  strategy.Config `yaml:"scoring"`
	Database struct {
		SQLitePath   string `yaml:"sqlite_path"`
		HistoryLimit int    `yaml:"history_limit"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Scoring: strategy.DefaultConfig()}
	cfg.DataSource.UseYahoo = true
	cfg.Schedule.RunOnStart = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.DataSource.BackendURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist = strings.Split(v, ",")
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Telegram.AlertThreshold = n
		}
	}

	// Defaults
	cfg.Watchlist = normalizeSymbols(cfg.Watchlist)
	if len(cfg.Watchlist) == 0 {
		cfg.Watchlist = append([]string(nil), DefaultWatchlist...)
	}
	if cfg.Telegram.AlertThreshold == 0 {
		cfg.Telegram.AlertThreshold = 80
	}
	if cfg.DataSource.RequestsPerMinute == 0 {
		cfg.DataSource.RequestsPerMinute = 60
	}
	if cfg.DataSource.Lookback == 0 {
		cfg.DataSource.Lookback = 60
	}
	if cfg.DataSource.TopN == 0 {
		cfg.DataSource.TopN = 5
	}
	if cfg.DataSource.UnusualVolumeMultiplier == 0 {
		cfg.DataSource.UnusualVolumeMultiplier = 3
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 * * * * *"
	}
	if cfg.Schedule.MarketStatusCron == "" {
		cfg.Schedule.MarketStatusCron = "0 0,30 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/option_sentinel.db"
	}
	if cfg.Database.HistoryLimit == 0 {
		cfg.Database.HistoryLimit = recorder.DefaultHistoryLimit
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}

	return cfg, nil
}

func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// TelegramEnabled reports whether alerts and bot commands are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return errors.New("watchlist must not be empty")
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Telegram.AlertThreshold < 0 || c.Telegram.AlertThreshold > 100 {
		return fmt.Errorf("telegram.alert_threshold %d must be within 0-100", c.Telegram.AlertThreshold)
	}
	if c.DataSource.RequestsPerMinute < 0 || c.DataSource.TopN < 0 || c.DataSource.Lookback < 0 {
		return errors.New("data_source limits must not be negative")
	}
	if c.DataSource.UnusualVolumeMultiplier < 0 {
		return errors.New("data_source.unusual_volume_multiplier must not be negative")
	}
	if c.Database.HistoryLimit < 0 {
		return errors.New("database.history_limit must not be negative")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.refresh_cron":       c.Schedule.RefreshCron,
		"schedule.market_status_cron": c.Schedule.MarketStatusCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
