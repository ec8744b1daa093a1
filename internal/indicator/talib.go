// Package indicator implements the rolling technical-indicator engine (C1).
// Computations are thin wrappers over github.com/markcheno/go-talib,
// following the same one-function-per-indicator shape as the teacher's
// pkg/indicator/talib.go.
package indicator

import "github.com/markcheno/go-talib"

// EMA calculates the Exponential Moving Average.
func EMA(input []float64, period int) []float64 { return talib.Ema(input, period) }

// SMA calculates the Simple Moving Average.
func SMA(input []float64, period int) []float64 { return talib.Sma(input, period) }

// RSI calculates the Relative Strength Index (Wilder smoothing).
func RSI(input []float64, period int) []float64 { return talib.Rsi(input, period) }

// MACD calculates MACD, signal and histogram.
func MACD(input []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	return talib.Macd(input, fast, slow, signal)
}

// BBands calculates Bollinger upper/middle/lower bands.
func BBands(input []float64, period int, dev float64) ([]float64, []float64, []float64) {
	return talib.BBands(input, period, dev, dev, talib.SMA)
}

// ATR calculates the Average True Range (Wilder smoothing of true range).
func ATR(high, low, close []float64, period int) []float64 {
	return talib.Atr(high, low, close, period)
}

// ADX calculates the Average Directional Movement Index.
func ADX(high, low, close []float64, period int) []float64 {
	return talib.Adx(high, low, close, period)
}

// PlusDI calculates the Plus Directional Indicator.
func PlusDI(high, low, close []float64, period int) []float64 {
	return talib.PlusDI(high, low, close, period)
}

// MinusDI calculates the Minus Directional Indicator.
func MinusDI(high, low, close []float64, period int) []float64 {
	return talib.MinusDI(high, low, close, period)
}

// StochRaw calculates the fast stochastic %K (raw KDJ RSV), unsmoothed.
func StochRaw(high, low, close []float64, period int) []float64 {
	fastK, _ := talib.StochF(high, low, close, period, 1, talib.SMA)
	return fastK
}

// WillR calculates Williams %R.
func WillR(high, low, close []float64, period int) []float64 {
	return talib.WillR(high, low, close, period)
}

// OBV calculates On Balance Volume.
func OBV(close, volume []float64) []float64 { return talib.Obv(close, volume) }
