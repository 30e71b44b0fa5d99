package strategy

import (
	"fmt"

	"OptionSentinel/internal/model"
)

// scorePriceVsMA awards the full weight to calls when the last close is
// above MA50 and to puts otherwise. Skipped while MA50 is still warming up.
func scorePriceVsMA(in *Input, w float64) model.FactorScore {
	f := model.FactorScore{Name: "Price vs MA50", Weight: w}
	ma := in.Indicators.MA50.Last()
	if len(in.Candles) == 0 || !ma.Valid {
		f.Commentary = "MA50 unavailable"
		return f
	}
	price := in.Candles[len(in.Candles)-1].Close
	if price > ma.Value {
		f.Call = w
		f.Commentary = fmt.Sprintf("%.2f above MA50 %.2f", price, ma.Value)
	} else {
		f.Put = w
		f.Commentary = fmt.Sprintf("%.2f at/below MA50 %.2f", price, ma.Value)
	}
	return f
}

// scoreRSI rewards rising RSI inside the call band and falling RSI inside
// the put band. Both checks run independently.
func scoreRSI(in *Input, cfg *Config) model.FactorScore {
	w := cfg.Weights.RSI
	f := model.FactorScore{Name: "RSI momentum", Weight: w}
	prev, last, ok := in.Indicators.RSI.LastTwo()
	if !ok {
		f.Commentary = "RSI unavailable"
		return f
	}
	if last > prev && last >= cfg.RSICallLow && last <= cfg.RSICallHigh {
		f.Call = w
	}
	if last < prev && last >= cfg.RSIPutLow && last <= cfg.RSIPutHigh {
		f.Put = w
	}
	f.Commentary = fmt.Sprintf("RSI %.1f -> %.1f", prev, last)
	return f
}

// scoreMACD rewards a histogram zero-line crossover on the latest bar.
func scoreMACD(in *Input, w float64) model.FactorScore {
	f := model.FactorScore{Name: "MACD crossover", Weight: w}
	prev, last, ok := in.Indicators.MACD.Histogram.LastTwo()
	if !ok {
		f.Commentary = "MACD unavailable"
		return f
	}
	switch {
	case prev <= 0 && last > 0:
		f.Call = w
		f.Commentary = "bullish crossover"
	case prev >= 0 && last < 0:
		f.Put = w
		f.Commentary = "bearish crossover"
	default:
		f.Commentary = "no crossover"
	}
	return f
}

// scoreOptionsVolume rewards each side whose top contracts carry an
// unusual-volume flag.
func scoreOptionsVolume(in *Input, w float64) model.FactorScore {
	f := model.FactorScore{Name: "Unusual options volume", Weight: w}
	calls, puts := in.Options.UnusualCalls(), in.Options.UnusualPuts()
	if calls {
		f.Call = w
	}
	if puts {
		f.Put = w
	}
	f.Commentary = fmt.Sprintf("calls=%v puts=%v", calls, puts)
	return f
}

// scoreIV adds the full weight to both sides when premium is cheap and
// subtracts half of it from both when premium is expensive.
func scoreIV(in *Input, cfg *Config) model.FactorScore {
	w := cfg.Weights.IV
	f := model.FactorScore{Name: "IV context", Weight: w}
	iv := in.Options.AverageIV
	switch {
	case iv < cfg.IVLowThreshold:
		f.Call, f.Put = w, w
	case iv > cfg.IVHighThreshold:
		f.Call, f.Put = -w/2, -w/2
	}
	f.Commentary = fmt.Sprintf("avg IV %.0f%%", iv*100)
	return f
}

// ClassifyIV buckets the average IV with the same thresholds used for
// scoring.
func ClassifyIV(avgIV float64, cfg Config) model.IVLevel {
	switch {
	case avgIV > cfg.IVHighThreshold:
		return model.IVHigh
	case avgIV < cfg.IVLowThreshold:
		return model.IVLow
	default:
		return model.IVNormal
	}
}
