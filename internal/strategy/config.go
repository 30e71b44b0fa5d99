package strategy

import (
	"errors"
	"fmt"
)

// Weights are the per-factor point values. They need not sum to 100.
type Weights struct {
	PriceVsMA     float64 `yaml:"price_vs_ma"`
	RSI           float64 `yaml:"rsi"`
	MACD          float64 `yaml:"macd"`
	OptionsVolume float64 `yaml:"options_volume"`
	IV            float64 `yaml:"iv"`
}

// Total returns the normalization denominator.
func (w Weights) Total() float64 {
	return w.PriceVsMA + w.RSI + w.MACD + w.OptionsVolume + w.IV
}

// Config controls the scoring policy.
type Config struct {
	Weights               Weights `yaml:"weights"`
	IVHighThreshold       float64 `yaml:"iv_high_threshold"`
	IVLowThreshold        float64 `yaml:"iv_low_threshold"`
	EarningsProximityDays int     `yaml:"earnings_proximity_days"`
	RSICallLow            float64 `yaml:"rsi_call_low"`
	RSICallHigh           float64 `yaml:"rsi_call_high"`
	RSIPutLow             float64 `yaml:"rsi_put_low"`
	RSIPutHigh            float64 `yaml:"rsi_put_high"`
}

// DefaultConfig returns the stock scoring policy.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			PriceVsMA:     25,
			RSI:           25,
			MACD:          20,
			OptionsVolume: 20,
			IV:            10,
		},
		IVHighThreshold:       0.80,
		IVLowThreshold:        0.20,
		EarningsProximityDays: 3,
		RSICallLow:            40,
		RSICallHigh:           65,
		RSIPutLow:             35,
		RSIPutHigh:            60,
	}
}

// Validate rejects configurations an operator almost certainly did not mean.
// The engine itself still produces in-range scores for any Config.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"price_vs_ma": w.PriceVsMA, "rsi": w.RSI, "macd": w.MACD,
		"options_volume": w.OptionsVolume, "iv": w.IV,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.weights.%s must not be negative", name)
		}
	}
	if w.Total() <= 0 {
		return errors.New("scoring.weights must sum to a positive total")
	}
	if c.IVLowThreshold > c.IVHighThreshold {
		return fmt.Errorf("scoring.iv_low_threshold %.2f exceeds iv_high_threshold %.2f", c.IVLowThreshold, c.IVHighThreshold)
	}
	if c.EarningsProximityDays < 0 {
		return errors.New("scoring.earnings_proximity_days must not be negative")
	}
	if c.RSICallLow > c.RSICallHigh || c.RSIPutLow > c.RSIPutHigh {
		return errors.New("scoring RSI bands must have low <= high")
	}
	return nil
}
