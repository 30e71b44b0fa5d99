package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidCandle is returned when a candle violates the OHLCV invariants.
	ErrInvalidCandle = errors.New("invalid candle")
	// ErrUnorderedCandles is returned when a price history is not strictly chronological.
	ErrUnorderedCandles = errors.New("candles not in chronological order")
)

// Candle represents a single OHLCV price bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the bar against the OHLCV invariants.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: non-finite or negative field", ErrInvalidCandle)
		}
	}
	if c.High < math.Max(c.Open, c.Close) {
		return fmt.Errorf("%w: high %.4f below max(open, close)", ErrInvalidCandle, c.High)
	}
	if c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("%w: low %.4f above min(open, close)", ErrInvalidCandle, c.Low)
	}
	return nil
}

// ValidateCandles checks every bar and that timestamps strictly increase.
// An empty history is valid.
func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if i > 0 && !c.Time.After(candles[i-1].Time) {
			return fmt.Errorf("candle %d at %s: %w", i, c.Time.Format(time.RFC3339), ErrUnorderedCandles)
		}
	}
	return nil
}

// Closes extracts the close prices in order.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// TickerData is one ticker's snapshot as delivered by a data source.
type TickerData struct {
	Ticker       string      `json:"ticker"`
	Price        float64     `json:"price"`
	Candles      []Candle    `json:"candles"`
	Options      OptionsData `json:"options"`
	EarningsDate *time.Time  `json:"earningsDate"`
}

// Validate checks the candle history and the options summary.
func (d *TickerData) Validate() error {
	if err := ValidateCandles(d.Candles); err != nil {
		return fmt.Errorf("%s: %w", d.Ticker, err)
	}
	if err := d.Options.Validate(); err != nil {
		return fmt.Errorf("%s: %w", d.Ticker, err)
	}
	return nil
}

// DataStatus is the provenance state of the current data set.
type DataStatus string

const (
	StatusLoading DataStatus = "loading"
	StatusLive    DataStatus = "live"
	StatusMock    DataStatus = "mock"
)
