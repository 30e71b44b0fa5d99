package calculator

import "OptionSentinel/internal/model"

const (
	MAPeriod        = 50
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
)

// Compute derives the full indicator bundle from a chronological candle
// history. Every series has the same length as candles.
func Compute(candles []model.Candle) model.IndicatorBundle {
	closes := model.Closes(candles)
	return model.IndicatorBundle{
		MA50:           SMA(closes, MAPeriod),
		BollingerBands: Bollinger(closes, BollingerPeriod, BollingerStdDev),
		RSI:            RSI(closes, RSIPeriod),
		MACD:           MACD(closes, MACDFast, MACDSlow, MACDSignal),
	}
}
