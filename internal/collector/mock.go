package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"OptionSentinel/internal/model"
)

type tickerProfile struct {
	base       float64
	spread     float64
	volatility float64
}

var tickerProfiles = map[string]tickerProfile{
	"AAPL":  {base: 190, spread: 40, volatility: 1.2},
	"TSLA":  {base: 180, spread: 60, volatility: 2.5},
	"SPY":   {base: 500, spread: 50, volatility: 0.8},
	"NFLX":  {base: 650, spread: 80, volatility: 2.0},
	"AMZN":  {base: 180, spread: 30, volatility: 1.5},
	"GOOGL": {base: 170, spread: 30, volatility: 1.3},
	"IWM":   {base: 200, spread: 40, volatility: 1.1},
}

var defaultProfile = tickerProfile{base: 150, spread: 50, volatility: 1.0}

// MockFetcher synthesizes trending price paths and option chains. It is the
// fallback source when live data is unavailable.
type MockFetcher struct {
	Candles           int
	Contracts         int
	UnusualMultiplier float64
	EarningsWindow    int
	Now               func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockFetcher creates a generator. A zero seed uses the current time.
func NewMockFetcher(seed int64, unusualMultiplier float64, earningsWindow int) *MockFetcher {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockFetcher{
		Candles:           200,
		Contracts:         5,
		UnusualMultiplier: unusualMultiplier,
		EarningsWindow:    earningsWindow,
		Now:               time.Now,
		rng:               rand.New(rand.NewSource(seed)),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchAll(ctx context.Context, symbols []string) ([]model.TickerData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.TickerData, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sym == "" {
			return nil, fmt.Errorf("mock: empty symbol")
		}
		candles := m.generateCandles(sym)
		price := candles[len(candles)-1].Close
		out = append(out, model.TickerData{
			Ticker:       sym,
			Price:        price,
			Candles:      candles,
			Options:      m.generateOptions(sym, price),
			EarningsDate: m.earningsDate(sym),
		})
	}
	return out, nil
}

func (m *MockFetcher) generateCandles(ticker string) []model.Candle {
	p, ok := tickerProfiles[ticker]
	if !ok {
		p = defaultProfile
	}
	n := m.Candles
	if n < 1 {
		n = 1
	}
	now := m.Now().Truncate(time.Minute)
	candles := make([]model.Candle, n)

	price := p.base - p.spread/2 + m.rng.Float64()*p.spread
	trend := 1.0
	if m.rng.Float64() < 0.5 {
		trend = -1
	}

	for i := 0; i < n; i++ {
		if m.rng.Float64() < 0.05 {
			trend = -trend
		}
		open := price
		vf := price * 0.005 * p.volatility
		change := (trend*m.rng.Float64()*0.3 + (m.rng.Float64()-0.5)*1.5) * vf
		closePrice := math.Max(0.01, price+change)

		candles[i] = model.Candle{
			Time:   now.Add(-time.Duration(n-i) * time.Minute),
			Open:   open,
			High:   math.Max(open, closePrice) + m.rng.Float64()*vf*0.5,
			Low:    math.Max(0, math.Min(open, closePrice)-m.rng.Float64()*vf*0.5),
			Close:  closePrice,
			Volume: 100000 + m.rng.Float64()*500000,
		}
		price = closePrice
	}
	return candles
}

func (m *MockFetcher) generateOptions(ticker string, price float64) model.OptionsData {
	calls := make([]model.OptionContract, m.Contracts)
	puts := make([]model.OptionContract, m.Contracts)
	for i := 0; i < m.Contracts; i++ {
		strike := math.Ceil(price/5)*5 + float64(i*5)
		vol := 500 + m.rng.Float64()*5000
		calls[i] = model.OptionContract{
			ContractSymbol:    fmt.Sprintf("%sC%.0f", ticker, strike),
			Strike:            strike,
			LastPrice:         math.Max(0.1, price-strike+m.rng.Float64()*5),
			Volume:            vol,
			OpenInterest:      vol * (2 + m.rng.Float64()*5),
			ImpliedVolatility: 0.2 + m.rng.Float64()*0.6,
		}

		strike = math.Max(0, math.Floor(price/5)*5-float64(i*5))
		vol = 500 + m.rng.Float64()*5000
		puts[i] = model.OptionContract{
			ContractSymbol:    fmt.Sprintf("%sP%.0f", ticker, strike),
			Strike:            strike,
			LastPrice:         math.Max(0.1, strike-price+m.rng.Float64()*5),
			Volume:            vol,
			OpenInterest:      vol * (2 + m.rng.Float64()*5),
			ImpliedVolatility: 0.2 + m.rng.Float64()*0.6,
		}
	}
	FlagUnusual(calls, m.UnusualMultiplier)
	FlagUnusual(puts, m.UnusualMultiplier)
	return model.OptionsData{TopCalls: calls, TopPuts: puts, AverageIV: model.MeanIV(calls, puts)}
}

// earningsDate gives roughly a third of tickers an upcoming report.
func (m *MockFetcher) earningsDate(ticker string) *time.Time {
	if int(ticker[0])%3 != 0 {
		return nil
	}
	d := m.Now().AddDate(0, 0, m.rng.Intn(max(m.EarningsWindow+2, 1)))
	return &d
}
