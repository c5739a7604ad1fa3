package model

import "time"

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Action is the decision produced for a symbol in one cycle.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// OrderRequest describes a limit order to submit to the brokerage.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Quantity   int
	LimitPrice float64
}

// OrderResult is the brokerage's answer to an order submission.
type OrderResult struct {
	Accepted bool
	Message  string
}

// TradeRecord is one confirmed order, as appended to the ledger.
// Amount is signed: positive for buys, negative for sells.
type TradeRecord struct {
	Time     time.Time
	Symbol   string
	Side     Side
	Quantity int
	Price    float64
	Amount   float64
}

// EquitySnapshot is one end-of-cycle equity observation. Snapshots are
// append-only; RealizedPnL is a running accumulator updated only on
// confirmed sells.
type EquitySnapshot struct {
	Time        time.Time
	Cash        float64
	StockValue  float64
	TotalEquity float64
	RealizedPnL float64
}
