package calculator

import "OptionSentinel/internal/model"

// SMA computes the simple moving average of values over each trailing window
// of the given period. Positions before period-1 are undefined.
func SMA(values []float64, period int) model.Series {
	out := model.Undefined(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = model.Some(sum / float64(period))
	}
	return out
}

// EMA computes the exponential moving average seeded with the SMA of the
// first period values, emitted at position period-1. With fewer than period
// samples the whole series is undefined.
func EMA(values []float64, period int) model.Series {
	out := model.Undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[period-1] = model.Some(prev)

	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = model.Some(prev)
	}
	return out
}
