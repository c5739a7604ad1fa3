package model

// Weights is the factor weight vector applied when combining the three
// signals into a total score. The decision thresholds stay at ±1.0
// regardless of the weights, so tuning weights changes sensitivity
// without moving the decision boundary.
type Weights struct {
	Sentiment  float64
	Momentum   float64
	Oscillator float64
}

// EqualWeights is the weight scheme used by the default configuration.
var EqualWeights = Weights{Sentiment: 1.0, Momentum: 1.0, Oscillator: 1.0}

// MomentumWeights emphasizes price momentum and discounts news sentiment.
var MomentumWeights = Weights{Sentiment: 0.2, Momentum: 1.2, Oscillator: 0.6}

// ScoreBreakdown holds the per-factor components and the weighted total
// for one symbol in one cycle. Each component is in {-1, 0, +1}.
type ScoreBreakdown struct {
	Sentiment  int
	Momentum   int
	Oscillator int
	Total      float64
}
