package model

import (
	"encoding/json"
)

// Point is one indicator sample. Valid is false for positions that are
// not yet computable (warm-up), which is distinct from a zero value.
type Point struct {
	Value float64
	Valid bool
}

// Some returns a defined sample.
func Some(v float64) Point { return Point{Value: v, Valid: true} }

// MarshalJSON encodes undefined samples as null.
func (p Point) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON accepts a number or null.
func (p *Point) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Point{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Some(v)
	return nil
}

// Series is an indicator sequence aligned index-for-index with the candles.
type Series []Point

// Undefined returns a series of n undefined samples.
func Undefined(n int) Series {
	return make(Series, n)
}

// Last returns the final sample.
func (s Series) Last() Point {
	if len(s) == 0 {
		return Point{}
	}
	return s[len(s)-1]
}

// LastTwo returns the previous and final samples; ok is false unless both
// exist and are defined.
func (s Series) LastTwo() (prev, last float64, ok bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	p, l := s[len(s)-2], s[len(s)-1]
	if !p.Valid || !l.Valid {
		return 0, 0, false
	}
	return p.Value, l.Value, true
}

// Defined counts the defined samples.
func (s Series) Defined() int {
	n := 0
	for _, p := range s {
		if p.Valid {
			n++
		}
	}
	return n
}

// BollingerBands holds the three band series.
type BollingerBands struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// MACD holds the MACD line, its signal line and the histogram.
type MACD struct {
	MACD      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// IndicatorBundle holds all computed technical indicators for one ticker.
type IndicatorBundle struct {
	MA50           Series         `json:"ma50"`
	BollingerBands BollingerBands `json:"bollingerBands"`
	RSI            Series         `json:"rsi"`
	MACD           MACD           `json:"macd"`
}
