package strategy

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"OptionSentinel/internal/model"
)

var testNow = time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC) // Friday

func makeCandles(closes []float64) []model.Candle {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Time: start.AddDate(0, 0, i), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1e5,
		}
	}
	return candles
}

func neutralOptions() model.OptionsData {
	return model.OptionsData{
		TopCalls:  []model.OptionContract{{ContractSymbol: "C1", Strike: 100, Volume: 10, ImpliedVolatility: 0.5}},
		TopPuts:   []model.OptionContract{{ContractSymbol: "P1", Strike: 95, Volume: 10, ImpliedVolatility: 0.5}},
		AverageIV: 0.5,
	}
}

func series(vals ...float64) model.Series {
	s := make(model.Series, len(vals))
	for i, v := range vals {
		s[i] = model.Some(v)
	}
	return s
}

func factor(sig model.Signal, name string) model.FactorScore {
	for _, f := range sig.Factors {
		if f.Name == name {
			return f
		}
	}
	return model.FactorScore{}
}

func TestEvaluate_RisingPriceFavorsCalls(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	td := &model.TickerData{Ticker: "AAPL", Candles: makeCandles(closes), Options: neutralOptions()}

	sig, err := NewEngine(DefaultConfig()).Evaluate(td, testNow)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	f := factor(sig, "Price vs MA50")
	if f.Call != 25 || f.Put != 0 {
		t.Errorf("price vs MA: call=%v put=%v, want 25/0", f.Call, f.Put)
	}
	if sig.Price != 159 {
		t.Errorf("price: got %v, want last close 159", sig.Price)
	}
	if sig.CallScore < 25 {
		t.Errorf("call score %d should include the MA weight", sig.CallScore)
	}
}

func TestEvaluate_FlatPriceFavorsPuts(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	td := &model.TickerData{Ticker: "SPY", Candles: makeCandles(closes), Options: neutralOptions()}
	sig, err := NewEngine(DefaultConfig()).Evaluate(td, testNow)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if f := factor(sig, "Price vs MA50"); f.Put != 25 || f.Call != 0 {
		t.Errorf("close equal to MA50 should go to puts, got call=%v put=%v", f.Call, f.Put)
	}
	if f := factor(sig, "MACD crossover"); f.Call != 0 || f.Put != 0 {
		t.Errorf("flat MACD should not cross, got %+v", f)
	}
	if sig.CallScore != 0 || sig.PutScore != 25 {
		t.Errorf("scores: call=%d put=%d, want 0/25", sig.CallScore, sig.PutScore)
	}
}

func TestScore_ShortHistorySkipsMA(t *testing.T) {
	in := Input{Ticker: "IWM", Candles: makeCandles([]float64{1, 2, 3}), Options: neutralOptions()}
	in.Indicators.MA50 = model.Undefined(3)
	sig := NewEngine(DefaultConfig()).Score(in)
	if sig.CallScore != 0 || sig.PutScore != 0 {
		t.Errorf("expected no contribution without MA50, got call=%d put=%d", sig.CallScore, sig.PutScore)
	}
}

func TestScore_HighIVClampsToZero(t *testing.T) {
	in := Input{Ticker: "TSLA", Options: model.OptionsData{AverageIV: 0.85}}
	sig := NewEngine(DefaultConfig()).Score(in)

	f := factor(sig, "IV context")
	if f.Call != -5 || f.Put != -5 {
		t.Errorf("iv factor: call=%v put=%v, want -5/-5", f.Call, f.Put)
	}
	if sig.CallScore != 0 || sig.PutScore != 0 {
		t.Errorf("scores should clamp to 0, got call=%d put=%d", sig.CallScore, sig.PutScore)
	}
	if sig.IVLevel != model.IVHigh {
		t.Errorf("iv level: got %s, want High", sig.IVLevel)
	}
}

func TestScore_RSIBands(t *testing.T) {
	tests := []struct {
		name      string
		rsi       model.Series
		call, put float64
	}{
		{"rising in call band", series(50, 55), 25, 0},
		{"falling in put band", series(55, 50), 0, 25},
		{"rising below call band", series(30, 38), 0, 0},
		{"falling above put band", series(70, 62), 0, 0},
		{"flat", series(50, 50), 0, 0},
		{"single point", series(50), 0, 0},
		{"undefined prev", model.Series{{}, model.Some(50)}, 0, 0},
	}
	e := NewEngine(DefaultConfig())
	for _, tt := range tests {
		in := Input{Options: neutralOptions()}
		in.Indicators.RSI = tt.rsi
		f := factor(e.Score(in), "RSI momentum")
		if f.Call != tt.call || f.Put != tt.put {
			t.Errorf("%s: call=%v put=%v, want %v/%v", tt.name, f.Call, f.Put, tt.call, tt.put)
		}
	}
}

func TestScore_MACDCrossover(t *testing.T) {
	tests := []struct {
		name      string
		hist      model.Series
		call, put float64
	}{
		{"bullish", series(-1, 1), 20, 0},
		{"bullish from zero", series(0, 0.1), 20, 0},
		{"bearish", series(1, -1), 0, 20},
		{"bearish from zero", series(0, -0.1), 0, 20},
		{"still positive", series(1, 2), 0, 0},
		{"zero to zero", series(0, 0), 0, 0},
		{"too short", series(1), 0, 0},
	}
	e := NewEngine(DefaultConfig())
	for _, tt := range tests {
		in := Input{Options: neutralOptions()}
		in.Indicators.MACD.Histogram = tt.hist
		f := factor(e.Score(in), "MACD crossover")
		if f.Call != tt.call || f.Put != tt.put {
			t.Errorf("%s: call=%v put=%v, want %v/%v", tt.name, f.Call, f.Put, tt.call, tt.put)
		}
	}
}

func TestScore_UnusualVolumeBothSides(t *testing.T) {
	opts := neutralOptions()
	opts.TopCalls[0].IsUnusual = true
	opts.TopPuts[0].IsUnusual = true
	sig := NewEngine(DefaultConfig()).Score(Input{Options: opts})
	if sig.CallScore != 20 || sig.PutScore != 20 || !sig.UnusualVolume {
		t.Errorf("got call=%d put=%d unusual=%v, want 20/20/true", sig.CallScore, sig.PutScore, sig.UnusualVolume)
	}
}

func TestEvaluate_EarningsTodayHalvesScores(t *testing.T) {
	opts := neutralOptions()
	opts.TopCalls[0].IsUnusual = true
	opts.AverageIV = 0.1
	for i := range opts.TopCalls {
		opts.TopCalls[i].ImpliedVolatility = 0.1
	}

	e := NewEngine(DefaultConfig())
	base, err := e.Evaluate(&model.TickerData{Ticker: "NFLX", Price: 650, Options: opts}, testNow)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if base.CallScore != 30 || base.PutScore != 10 || base.EarningsSoon {
		t.Fatalf("baseline: call=%d put=%d soon=%v, want 30/10/false", base.CallScore, base.PutScore, base.EarningsSoon)
	}
	if base.IVLevel != model.IVLow {
		t.Errorf("iv level: got %s, want Low", base.IVLevel)
	}

	today := testNow
	sig, err := e.Evaluate(&model.TickerData{Ticker: "NFLX", Price: 650, Options: opts, EarningsDate: &today}, testNow)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !sig.EarningsSoon {
		t.Fatal("expected earningsSoon for an earnings date of today")
	}
	if sig.CallScore != 15 || sig.PutScore != 5 {
		t.Errorf("penalized: call=%d put=%d, want 15/5", sig.CallScore, sig.PutScore)
	}
	if sig.Price != 650 {
		t.Errorf("price fallback without candles: got %v", sig.Price)
	}

	past := testNow.AddDate(0, 0, -2)
	sig, _ = e.Evaluate(&model.TickerData{Ticker: "NFLX", Options: opts, EarningsDate: &past}, testNow)
	if sig.EarningsSoon {
		t.Error("past earnings date should not count as soon")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw, total float64
		want       int
	}{
		{25, 100, 25},
		{125, 100, 100},
		{-5, 100, 0},
		{12.5, 100, 13},
		{10, 40, 25},
		{50, 0, 0},
		{50, -10, 0},
		{math.Inf(1), math.Inf(1), 0},
	}
	for _, tt := range tests {
		if got := normalize(tt.raw, tt.total); got != tt.want {
			t.Errorf("normalize(%v, %v) = %d, want %d", tt.raw, tt.total, got, tt.want)
		}
	}
}

func TestEarningsPenalty_NeverIncreases(t *testing.T) {
	for s := 0; s <= 100; s++ {
		p := earningsPenalty(s)
		if p > s || p < 0 || p > 100 {
			t.Errorf("penalty(%d) = %d", s, p)
		}
	}
	if earningsPenalty(25) != 13 {
		t.Errorf("penalty(25) = %d, want 13 (half rounds up)", earningsPenalty(25))
	}
}

func TestScore_PathologicalWeightsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := func() float64 { return (rng.Float64() - 0.5) * 1000 }
	for run := 0; run < 500; run++ {
		cfg := DefaultConfig()
		cfg.Weights = Weights{PriceVsMA: w(), RSI: w(), MACD: w(), OptionsVolume: w(), IV: w()}
		opts := neutralOptions()
		opts.TopCalls[0].IsUnusual = rng.Intn(2) == 0
		opts.TopPuts[0].IsUnusual = rng.Intn(2) == 0
		opts.AverageIV = rng.Float64()
		in := Input{Options: opts, EarningsSoon: rng.Intn(2) == 0}
		in.Indicators.MACD.Histogram = series(rng.NormFloat64(), rng.NormFloat64())
		in.Indicators.RSI = series(30+rng.Float64()*40, 30+rng.Float64()*40)

		sig := NewEngine(cfg).Score(in)
		if sig.CallScore < 0 || sig.CallScore > 100 || sig.PutScore < 0 || sig.PutScore > 100 {
			t.Fatalf("run %d: out of range call=%d put=%d weights=%+v", run, sig.CallScore, sig.PutScore, cfg.Weights)
		}
	}
}

func TestScoreAll_SkipsInvalidTickers(t *testing.T) {
	bad := makeCandles([]float64{10, 11})
	bad[1].High = 5 // below close
	data := []model.TickerData{
		{Ticker: "AAPL", Candles: makeCandles([]float64{1, 2, 3}), Options: neutralOptions()},
		{Ticker: "BAD", Candles: bad, Options: neutralOptions()},
		{Ticker: "SPY", Candles: makeCandles([]float64{4, 5, 6}), Options: neutralOptions()},
	}
	signals, err := NewEngine(DefaultConfig()).ScoreAll(context.Background(), data, testNow)
	if !errors.Is(err, model.ErrInvalidCandle) {
		t.Fatalf("expected ErrInvalidCandle, got %v", err)
	}
	if len(signals) != 2 || signals[0].Ticker != "AAPL" || signals[1].Ticker != "SPY" {
		t.Errorf("expected AAPL and SPY in order, got %+v", signals)
	}
}

func TestScoreAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := []model.TickerData{{Ticker: "AAPL"}}
	if _, err := NewEngine(DefaultConfig()).ScoreAll(ctx, data, testNow); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRank(t *testing.T) {
	in := []model.Signal{
		{Ticker: "TSLA", CallScore: 40, PutScore: 10},
		{Ticker: "AAPL", CallScore: 10, PutScore: 70},
		{Ticker: "AMZN", CallScore: 40, PutScore: 0},
		{Ticker: "SPY", CallScore: 0, PutScore: 0},
	}
	got := Rank(in)
	want := []string{"AAPL", "AMZN", "TSLA", "SPY"}
	for i, w := range want {
		if got[i].Ticker != w {
			t.Errorf("rank %d: got %s, want %s", i, got[i].Ticker, w)
		}
	}
	if in[0].Ticker != "TSLA" {
		t.Error("Rank must not reorder its input")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"total not 100", func(c *Config) { c.Weights.IV = 50 }, true},
		{"negative weight", func(c *Config) { c.Weights.MACD = -1 }, false},
		{"zero total", func(c *Config) { c.Weights = Weights{} }, false},
		{"inverted thresholds", func(c *Config) { c.IVLowThreshold = 0.9 }, false},
		{"negative window", func(c *Config) { c.EarningsProximityDays = -1 }, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: err=%v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
