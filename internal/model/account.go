package model

// AccountState is the per-cycle snapshot of the brokerage account.
// Decisions are made in USD; the account settles in KRW, so the
// exchange rate is carried alongside the cash figure.
type AccountState struct {
	CashUSD float64
	FxRate  float64 // KRW per USD
}

// Holdings maps symbol to the share quantity held, as reported by the
// brokerage. Refreshed once per cycle; the brokerage is authoritative.
type Holdings map[string]int

// Quantity returns the held share count for the symbol, 0 if not held.
func (h Holdings) Quantity(symbol string) int {
	return h[symbol]
}
