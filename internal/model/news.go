package model

import "time"

// Headline is one news item fetched for a symbol.
type Headline struct {
	Source string
	Title  string
	Time   time.Time
}

// Sentiment classes for a single headline.
const (
	SentimentNegative = -1
	SentimentNeutral  = 0
	SentimentPositive = 1
)
