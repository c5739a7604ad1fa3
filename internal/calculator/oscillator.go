package calculator

import "TradePilot/internal/model"

// epsilon keeps the gain/loss ratio finite when there are no losses in
// the lookback window.
const epsilon = 1e-9

// RSI computes a simple-average RSI over the most recent `period`
// bar-to-bar changes. Bars are ordered most-recent-first. The second
// return value is false when there are fewer than period+1 bars.
func RSI(bars []model.PriceBar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	// bars[i] is newer than bars[i+1]; walk the most recent `period` deltas.
	for i := 0; i < period; i++ {
		change := bars[i].Last - bars[i+1].Last
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	rsi := 100.0 - 100.0/(1.0+avgGain/(avgLoss+epsilon))
	return rsi, true
}

// Oscillator maps the RSI value to a mean-reversion signal: below 30 is
// oversold (+1, bullish), above 70 is overbought (-1, bearish).
// Insufficient data contributes 0, never an error.
func Oscillator(bars []model.PriceBar, period int) int {
	rsi, ok := RSI(bars, period)
	if !ok {
		return 0
	}
	switch {
	case rsi < 30:
		return +1
	case rsi > 70:
		return -1
	default:
		return 0
	}
}
