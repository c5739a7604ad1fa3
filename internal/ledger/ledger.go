package ledger

import "TradePilot/internal/model"

// Ledger is the append-only sink for confirmed trades and end-of-cycle
// equity snapshots. The engine never reads back through this interface.
type Ledger interface {
	RecordTrade(symbol string, side model.Side, qty int, price float64) error
	RecordSnapshot(cash, stockValue float64) error
	Close() error
}

// signedAmount is the trade's cash-flow convention: buys are positive,
// sells negative. Realized P&L accumulates the negated amount of sells.
func signedAmount(side model.Side, qty int, price float64) float64 {
	amount := float64(qty) * price
	if side == model.SideSell {
		return -amount
	}
	return amount
}
