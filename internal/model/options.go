package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOption is returned for contracts with negative or non-finite fields.
var ErrInvalidOption = errors.New("invalid option contract")

// OptionContract is a single listed option.
type OptionContract struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Volume            float64 `json:"volume"`
	OpenInterest      float64 `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"` // fraction, 0.35 = 35%
	IsUnusual         bool    `json:"isUnusual"`
}

// OptionsData summarizes the top-N calls and puts by volume.
type OptionsData struct {
	TopCalls  []OptionContract `json:"topCalls"`
	TopPuts   []OptionContract `json:"topPuts"`
	AverageIV float64          `json:"averageIV"`
}

// UnusualCalls reports whether any listed call is flagged unusual.
func (o OptionsData) UnusualCalls() bool { return anyUnusual(o.TopCalls) }

// UnusualPuts reports whether any listed put is flagged unusual.
func (o OptionsData) UnusualPuts() bool { return anyUnusual(o.TopPuts) }

func anyUnusual(contracts []OptionContract) bool {
	for _, c := range contracts {
		if c.IsUnusual {
			return true
		}
	}
	return false
}

// Validate rejects negative or non-finite numeric fields.
func (o OptionsData) Validate() error {
	if bad(o.AverageIV) {
		return fmt.Errorf("%w: averageIV %v", ErrInvalidOption, o.AverageIV)
	}
	check := func(side string, list []OptionContract) error {
		for i, c := range list {
			for _, v := range []float64{c.Strike, c.LastPrice, c.Volume, c.OpenInterest, c.ImpliedVolatility} {
				if bad(v) {
					return fmt.Errorf("%w: %s[%d] %s", ErrInvalidOption, side, i, c.ContractSymbol)
				}
			}
		}
		return nil
	}
	if err := check("topCalls", o.TopCalls); err != nil {
		return err
	}
	return check("topPuts", o.TopPuts)
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}

// MeanIV returns the mean implied volatility across both lists, 0 when empty.
func MeanIV(calls, puts []OptionContract) float64 {
	n := len(calls) + len(puts)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range calls {
		sum += c.ImpliedVolatility
	}
	for _, p := range puts {
		sum += p.ImpliedVolatility
	}
	return sum / float64(n)
}
