package strategy

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"OptionSentinel/internal/calculator"
	"OptionSentinel/internal/calendar"
	"OptionSentinel/internal/model"
)

// Input is everything the engine needs to score one ticker.
type Input struct {
	Timestamp    time.Time
	Ticker       string
	Price        float64
	Candles      []model.Candle
	Indicators   model.IndicatorBundle
	Options      model.OptionsData
	EarningsSoon bool
}

// Engine scores tickers with a fixed Config. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the scoring policy in use.
func (e *Engine) Config() Config { return e.cfg }

// Score computes the call/put signal from precomputed indicators.
func (e *Engine) Score(in Input) model.Signal {
	cfg := &e.cfg
	factors := []model.FactorScore{
		scorePriceVsMA(&in, cfg.Weights.PriceVsMA),
		scoreRSI(&in, cfg),
		scoreMACD(&in, cfg.Weights.MACD),
		scoreOptionsVolume(&in, cfg.Weights.OptionsVolume),
		scoreIV(&in, cfg),
	}

	var callRaw, putRaw float64
	for _, f := range factors {
		callRaw += f.Call
		putRaw += f.Put
	}

	total := cfg.Weights.Total()
	callScore := normalize(callRaw, total)
	putScore := normalize(putRaw, total)

	if in.EarningsSoon {
		callScore = earningsPenalty(callScore)
		putScore = earningsPenalty(putScore)
	}

	price := in.Price
	if len(in.Candles) > 0 {
		price = in.Candles[len(in.Candles)-1].Close
	}

	return model.Signal{
		Timestamp:     in.Timestamp,
		Ticker:        in.Ticker,
		Price:         price,
		CallScore:     callScore,
		PutScore:      putScore,
		IVLevel:       ClassifyIV(in.Options.AverageIV, *cfg),
		UnusualVolume: in.Options.UnusualCalls() || in.Options.UnusualPuts(),
		EarningsSoon:  in.EarningsSoon,
		Factors:       factors,
	}
}

// Evaluate validates a ticker snapshot, computes its indicators and
// earnings proximity as of now, and scores it.
func (e *Engine) Evaluate(td *model.TickerData, now time.Time) (model.Signal, error) {
	if err := td.Validate(); err != nil {
		return model.Signal{}, err
	}
	soon := td.EarningsDate != nil &&
		calendar.IsWithinTradingDays(now, *td.EarningsDate, e.cfg.EarningsProximityDays)

	return e.Score(Input{
		Timestamp:    now,
		Ticker:       td.Ticker,
		Price:        td.Price,
		Candles:      td.Candles,
		Indicators:   calculator.Compute(td.Candles),
		Options:      td.Options,
		EarningsSoon: soon,
	}), nil
}

// ScoreAll evaluates every ticker in parallel. Tickers that fail validation
// are left out of the result and reported together in the returned error;
// the remaining signals are still returned, in input order.
func (e *Engine) ScoreAll(ctx context.Context, data []model.TickerData, now time.Time) ([]model.Signal, error) {
	signals := make([]model.Signal, len(data))
	errs := make([]error, len(data))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range data {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			signals[i], errs[i] = e.Evaluate(&data[i], now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Signal, 0, len(data))
	for i := range data {
		if errs[i] == nil {
			out = append(out, signals[i])
		}
	}
	return out, errors.Join(errs...)
}

// Rank orders signals by their strongest side, highest first, breaking ties
// by ticker. The input slice is not modified.
func Rank(signals []model.Signal) []model.Signal {
	ranked := make([]model.Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Strongest(), ranked[j].Strongest()
		if a != b {
			return a > b
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})
	return ranked
}

// normalize maps a raw score onto 0-100: divide by the weight total, clamp,
// then round half away from zero. A non-positive total scores 0.
func normalize(raw, total float64) int {
	if total <= 0 {
		return 0
	}
	v := raw / total * 100
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(100, v))
	return int(math.Round(v))
}

func earningsPenalty(score int) int {
	return int(math.Round(float64(score) * 0.5))
}
