package collector

import (
	"context"
	"sort"

	"OptionSentinel/internal/model"
)

// Fetcher supplies ticker snapshots for a watchlist.
type Fetcher interface {
	FetchAll(ctx context.Context, symbols []string) ([]model.TickerData, error)
	Name() string
}

// FlagUnusual marks contracts whose volume exceeds multiplier times the mean
// volume of the list.
func FlagUnusual(contracts []model.OptionContract, multiplier float64) {
	if len(contracts) == 0 {
		return
	}
	sum := 0.0
	for _, c := range contracts {
		sum += c.Volume
	}
	avg := sum / float64(len(contracts))
	for i := range contracts {
		contracts[i].IsUnusual = contracts[i].Volume > avg*multiplier
	}
}

// TopByVolume returns the n most traded contracts, highest volume first.
func TopByVolume(contracts []model.OptionContract, n int) []model.OptionContract {
	sorted := make([]model.OptionContract, len(contracts))
	copy(sorted, contracts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Volume > sorted[j].Volume })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func sortCandles(candles []model.Candle) {
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
}
