package calculator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"OptionSentinel/internal/model"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func makeCandles(closes []float64) []model.Candle {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    math.Max(0, c-1),
			Close:  c,
			Volume: 1000,
		}
	}
	return candles
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func expectSeries(t *testing.T, name string, got model.Series, want []*float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i, w := range want {
		switch {
		case w == nil && got[i].Valid:
			t.Errorf("%s[%d]: expected undefined, got %v", name, i, got[i].Value)
		case w != nil && !got[i].Valid:
			t.Errorf("%s[%d]: expected %v, got undefined", name, i, *w)
		case w != nil && !near(got[i].Value, *w):
			t.Errorf("%s[%d]: expected %v, got %v", name, i, *w, got[i].Value)
		}
	}
}

func f(v float64) *float64 { return &v }

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	expectSeries(t, "sma", got, []*float64{nil, nil, f(2), f(3), f(4)})
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3, 4, 5}, 3)
	expectSeries(t, "ema", got, []*float64{nil, nil, f(2), f(3), f(4)})

	short := EMA([]float64{1, 2}, 3)
	expectSeries(t, "ema short", short, []*float64{nil, nil})
}

func TestBollinger_PopulationStdDev(t *testing.T) {
	bb := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	if !bb.Middle[7].Valid || !near(bb.Middle[7].Value, 5) {
		t.Fatalf("middle: got %+v, want 5", bb.Middle[7])
	}
	if !near(bb.Upper[7].Value, 9) || !near(bb.Lower[7].Value, 1) {
		t.Errorf("bands: upper=%v lower=%v, want 9 and 1", bb.Upper[7].Value, bb.Lower[7].Value)
	}
	for i := 0; i < 7; i++ {
		if bb.Upper[i].Valid || bb.Middle[i].Valid || bb.Lower[i].Valid {
			t.Errorf("position %d should be undefined", i)
		}
	}
}

func TestRSI_WilderRecurrence(t *testing.T) {
	got := RSI([]float64{1, 2, 3, 2}, 2)
	expectSeries(t, "rsi", got, []*float64{nil, nil, f(100), f(50)})
}

func TestRSI_TooShort(t *testing.T) {
	got := RSI(rising(14), 14)
	if got.Defined() != 0 {
		t.Errorf("expected no defined RSI values for 14 closes, got %d", got.Defined())
	}
}

func TestRSI_AlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		closes := make([]float64, 120)
		price := 100.0
		for i := range closes {
			price = math.Max(0.01, price+rng.NormFloat64()*3)
			closes[i] = price
		}
		for i, p := range RSI(closes, 14) {
			if p.Valid && (p.Value < 0 || p.Value > 100) {
				t.Fatalf("run %d: rsi[%d]=%v out of range", run, i, p.Value)
			}
		}
	}

	for i, p := range RSI(rising(40), 14) {
		if p.Valid && p.Value != 100 {
			t.Errorf("monotonic rise: rsi[%d]=%v, want 100", i, p.Value)
		}
	}
}

func TestMACD_SignalAlignment(t *testing.T) {
	m := MACD([]float64{1, 2, 3, 4, 5, 6}, 2, 3, 2)
	expectSeries(t, "macd", m.MACD, []*float64{nil, nil, f(0.5), f(0.5), f(0.5), f(0.5)})
	expectSeries(t, "signal", m.Signal, []*float64{nil, nil, nil, f(0.5), f(0.5), f(0.5)})
	expectSeries(t, "histogram", m.Histogram, []*float64{nil, nil, nil, f(0), f(0), f(0)})
}

func TestMACD_NoDefinedLine(t *testing.T) {
	m := MACD(rising(10), 12, 26, 9)
	if len(m.MACD) != 10 || m.MACD.Defined() != 0 || m.Signal.Defined() != 0 || m.Histogram.Defined() != 0 {
		t.Errorf("expected 10 undefined samples per series, got %+v", m)
	}
}

func TestCompute_FlatSeries(t *testing.T) {
	b := Compute(makeCandles(flat(60, 100)))

	for i, p := range b.MA50 {
		if i < 49 && p.Valid {
			t.Errorf("ma50[%d] should be undefined", i)
		}
		if i >= 49 && (!p.Valid || p.Value != 100) {
			t.Errorf("ma50[%d]=%+v, want 100", i, p)
		}
	}
	for i, p := range b.RSI {
		if i < 14 && p.Valid {
			t.Errorf("rsi[%d] should be undefined", i)
		}
		if i >= 14 && (!p.Valid || p.Value != 50) {
			t.Errorf("rsi[%d]=%+v, want 50", i, p)
		}
	}
	for i, p := range b.MACD.Histogram {
		if p.Valid && math.Abs(p.Value) > eps {
			t.Errorf("histogram[%d]=%v, want ~0", i, p.Value)
		}
	}
	if b.MACD.Histogram.Defined() != 60-(MACDSlow-1)-(MACDSignal-1) {
		t.Errorf("histogram defined count %d", b.MACD.Histogram.Defined())
	}
}

func TestCompute_ShortHistory(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"one bar", 1},
		{"below bollinger", 19},
		{"below ma50", 49},
	}
	for _, tt := range tests {
		b := Compute(makeCandles(rising(tt.n)))
		if len(b.MA50) != tt.n || len(b.RSI) != tt.n || len(b.MACD.Histogram) != tt.n {
			t.Errorf("%s: series not aligned with %d candles", tt.name, tt.n)
		}
		if b.MA50.Defined() != 0 {
			t.Errorf("%s: ma50 should be entirely undefined", tt.name)
		}
		if tt.n < BollingerPeriod && b.BollingerBands.Middle.Defined() != 0 {
			t.Errorf("%s: bollinger should be entirely undefined", tt.name)
		}
		if tt.n <= RSIPeriod && b.RSI.Defined() != 0 {
			t.Errorf("%s: rsi should be entirely undefined", tt.name)
		}
		if tt.n < MACDSlow && b.MACD.MACD.Defined() != 0 {
			t.Errorf("%s: macd should be entirely undefined", tt.name)
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 50 + rng.Float64()*50
	}
	candles := makeCandles(closes)
	a, b := Compute(candles), Compute(candles)

	pairs := []struct {
		name string
		x, y model.Series
	}{
		{"ma50", a.MA50, b.MA50},
		{"upper", a.BollingerBands.Upper, b.BollingerBands.Upper},
		{"rsi", a.RSI, b.RSI},
		{"macd", a.MACD.MACD, b.MACD.MACD},
		{"signal", a.MACD.Signal, b.MACD.Signal},
		{"histogram", a.MACD.Histogram, b.MACD.Histogram},
	}
	for _, p := range pairs {
		for i := range p.x {
			if p.x[i] != p.y[i] {
				t.Fatalf("%s[%d] differs between runs: %+v vs %+v", p.name, i, p.x[i], p.y[i])
			}
		}
	}
}
