package strategy

import "TradePilot/internal/model"

// AggregateSentiment condenses per-headline classes into one symbol
// signal. Neutral headlines are dropped; the remainder must reach a
// two-thirds supermajority in either direction to move the signal off 0.
func AggregateSentiment(classes []int) int {
	var pos, neg int
	for _, c := range classes {
		switch c {
		case model.SentimentPositive:
			pos++
		case model.SentimentNegative:
			neg++
		case model.SentimentNeutral:
			// Neutral headlines carry no signal and stay out of the
			// supermajority denominator.
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	if float64(pos) >= 2.0/3.0*float64(total) {
		return +1
	}
	if float64(neg) >= 2.0/3.0*float64(total) {
		return -1
	}
	return 0
}
