package model

import "time"

// IVLevel categorizes the average implied volatility.
type IVLevel string

const (
	IVHigh   IVLevel = "High"
	IVNormal IVLevel = "Normal"
	IVLow    IVLevel = "Low"
)

// FactorScore is one weighted factor's contribution to each side.
type FactorScore struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Call       float64 `json:"call"`
	Put        float64 `json:"put"`
	Commentary string  `json:"commentary"`
}

// Signal is the scored output for one ticker at one point in time.
type Signal struct {
	Timestamp     time.Time     `json:"timestamp"`
	Ticker        string        `json:"ticker"`
	Price         float64       `json:"price"`
	CallScore     int           `json:"callScore"`
	PutScore      int           `json:"putScore"`
	IVLevel       IVLevel       `json:"ivLevel"`
	UnusualVolume bool          `json:"unusualVolume"`
	EarningsSoon  bool          `json:"earningsSoon"`
	Factors       []FactorScore `json:"factors,omitempty"`
}

// Strongest returns the larger of the two side scores.
func (s Signal) Strongest() int {
	if s.CallScore > s.PutScore {
		return s.CallScore
	}
	return s.PutScore
}

// Bias names the side with the higher score, or "neutral" on a tie.
func (s Signal) Bias() string {
	switch {
	case s.CallScore > s.PutScore:
		return "call"
	case s.PutScore > s.CallScore:
		return "put"
	default:
		return "neutral"
	}
}

// ScoreBand labels a 0-100 score for display.
func ScoreBand(score int) string {
	switch {
	case score >= 80:
		return "strong"
	case score >= 60:
		return "moderate"
	default:
		return "weak"
	}
}
