package calculator

import "TradePilot/internal/model"

// Momentum compares the mean last price of the most recent `window` bars
// against the mean of the preceding `window` bars. Bars are ordered
// most-recent-first. Returns +1 if the recent mean is strictly higher,
// -1 if strictly lower, 0 on equal means or insufficient data.
func Momentum(bars []model.PriceBar, window int) int {
	if window <= 0 || len(bars) < window*2 {
		return 0
	}
	recent := mean(bars[:window])
	prev := mean(bars[window : window*2])
	switch {
	case recent > prev:
		return +1
	case recent < prev:
		return -1
	default:
		return 0
	}
}

func mean(bars []model.PriceBar) float64 {
	sum := 0.0
	for _, b := range bars {
		sum += b.Last
	}
	return sum / float64(len(bars))
}
