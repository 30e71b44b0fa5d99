package calculator

import (
	"math"

	"OptionSentinel/internal/model"
)

// Bollinger computes bands at k population standard deviations around the
// trailing mean of each window.
func Bollinger(values []float64, period int, k float64) model.BollingerBands {
	bands := model.BollingerBands{
		Upper:  model.Undefined(len(values)),
		Middle: model.Undefined(len(values)),
		Lower:  model.Undefined(len(values)),
	}
	if period <= 0 {
		return bands
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(variance / float64(period))

		bands.Middle[i] = model.Some(mean)
		bands.Upper[i] = model.Some(mean + k*sd)
		bands.Lower[i] = model.Some(mean - k*sd)
	}
	return bands
}
