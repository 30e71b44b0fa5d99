package recorder

import "OptionSentinel/internal/model"

// DefaultHistoryLimit bounds the stored history to the most recent signals.
const DefaultHistoryLimit = 1000

// Averages summarizes a ticker's stored scores.
type Averages struct {
	Ticker string
	Call   float64
	Put    float64
	Count  int
}

// Recorder persists scored signals for historical comparison.
type Recorder interface {
	// Append stores one refresh cycle's signals and trims the history.
	Append(cycleID string, signals []model.Signal) error
	// LoadAll returns the stored history, newest first.
	LoadAll() ([]model.Signal, error)
	// LoadTicker returns up to limit signals for one ticker, newest first.
	LoadTicker(ticker string, limit int) ([]model.Signal, error)
	Averages(ticker string) (Averages, error)
	Clear() error
	Close() error
}
