package strategy

import (
	"TradePilot/internal/calculator"
	"TradePilot/internal/model"
)

// Params holds the scoring configuration for one engine instance.
type Params struct {
	MomentumWindow   int
	OscillatorPeriod int
	Weights          model.Weights
}

// ComputeScore combines the externally supplied sentiment signal with
// the price-derived momentum and oscillator factors into a weighted
// total. A factor with insufficient bar data contributes 0.
func ComputeScore(sentiment int, bars []model.PriceBar, p Params) model.ScoreBreakdown {
	sb := model.ScoreBreakdown{
		Sentiment:  sentiment,
		Momentum:   calculator.Momentum(bars, p.MomentumWindow),
		Oscillator: calculator.Oscillator(bars, p.OscillatorPeriod),
	}
	sb.Total = float64(sb.Sentiment)*p.Weights.Sentiment +
		float64(sb.Momentum)*p.Weights.Momentum +
		float64(sb.Oscillator)*p.Weights.Oscillator
	return sb
}
