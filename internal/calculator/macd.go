package calculator

import "OptionSentinel/internal/model"

// MACD computes EMA(fast) - EMA(slow), the EMA(signal) of that line and
// their difference. The signal EMA runs over the defined tail of the MACD
// line only and is shifted back into place afterwards.
func MACD(values []float64, fast, slow, signal int) model.MACD {
	n := len(values)
	res := model.MACD{
		MACD:      model.Undefined(n),
		Signal:    model.Undefined(n),
		Histogram: model.Undefined(n),
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	start := -1
	for i := 0; i < n; i++ {
		if emaFast[i].Valid && emaSlow[i].Valid {
			res.MACD[i] = model.Some(emaFast[i].Value - emaSlow[i].Value)
			if start < 0 {
				start = i
			}
		}
	}
	if start < 0 {
		return res
	}

	line := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		if res.MACD[i].Valid {
			line = append(line, res.MACD[i].Value)
		}
	}
	sig := EMA(line, signal)
	pad := n - len(sig)
	for j, p := range sig {
		res.Signal[pad+j] = p
	}

	for i := 0; i < n; i++ {
		if res.MACD[i].Valid && res.Signal[i].Valid {
			res.Histogram[i] = model.Some(res.MACD[i].Value - res.Signal[i].Value)
		}
	}
	return res
}
