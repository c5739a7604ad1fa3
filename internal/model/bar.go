package model

import "time"

// PriceBar represents a single minute candlestick bar as returned by the
// brokerage chart endpoint. Bar slices are ordered most-recent-first:
// bars[0] is the newest bar.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Last   float64
	Volume int64
}
