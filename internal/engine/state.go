package engine

import (
	"context"

	"TradePilot/internal/model"
)

// Broker is the brokerage surface the engine drives. Satisfied by
// broker.Client; tests substitute a stub.
type Broker interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	ChartBars(ctx context.Context, symbol string, count int) ([]model.PriceBar, error)
	OrderableCashUSD(ctx context.Context) (float64, error)
	CashBalanceKRW(ctx context.Context) (float64, error)
	ExchangeRate(ctx context.Context) (float64, error)
	Positions(ctx context.Context) (model.Holdings, error)
	Buy(ctx context.Context, symbol string, qty int, price float64) (model.OrderResult, error)
	Sell(ctx context.Context, symbol string, qty int, price float64) (model.OrderResult, error)
}

// Notifier delivers operator-facing messages. Delivery is best-effort;
// the engine never fails a cycle over a lost notification.
type Notifier interface {
	Send(text string) error
}

// RetryNotifier extends Notifier with a must-deliver path for the few
// messages that should survive transient outages, such as crash
// notices. Regular cycle traffic stays on fire-and-forget Send.
type RetryNotifier interface {
	Notifier
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// CycleState is the working state of one trading cycle: one consistent
// snapshot of account and market data gathered before any decision is
// made. Cash and holdings start from the brokerage's answers and are
// adjusted optimistically as orders are accepted, so later symbols in
// the same cycle see the effects of earlier ones.
type CycleState struct {
	Account  model.AccountState
	Holdings model.Holdings

	Price     map[string]float64
	Bars      map[string][]model.PriceBar
	Sentiment map[string]int

	// FetchNote carries the per-symbol diagnostic for symbols whose
	// market data could not be gathered; those symbols are skipped.
	FetchNote map[string]string
}

// SymbolResult is the outcome of one symbol's pass through the cycle.
type SymbolResult struct {
	Symbol   string
	Score    model.ScoreBreakdown
	Action   model.Action
	Quantity int
	Price    float64
	Executed bool
	Note     string
}
