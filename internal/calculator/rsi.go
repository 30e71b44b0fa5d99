package calculator

import "OptionSentinel/internal/model"

// RSI computes the Wilder-smoothed relative strength index. The first value
// is emitted at position period; earlier positions are undefined.
func RSI(values []float64, period int) model.Series {
	out := model.Undefined(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	// Seed with simple averages over the first `period` changes.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = model.Some(rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = model.Some(rsiValue(avgGain, avgLoss))
	}
	return out
}

// rsiValue saturates at 100 when there are no losses and sits at 50 when
// the window has neither gains nor losses.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
