package broker

import "fmt"

// AuthError means credential issuance or refresh failed. It is not
// retried locally; the current cycle aborts and the next scheduled
// cycle starts over with a fresh attempt.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth %s: %v", e.Op, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// MarketDataError means bars or account data for a symbol could not be
// fetched or parsed. It degrades that symbol's factors to neutral and
// never aborts a cycle.
type MarketDataError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data %s %s: %v", e.Op, e.Symbol, e.Err)
}
func (e *MarketDataError) Unwrap() error { return e.Err }

// OrderError means the brokerage rejected an order. The rejection
// message is user-visible; there is no retry within the cycle.
type OrderError struct {
	Symbol  string
	Message string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order rejected for %s: %s", e.Symbol, e.Message)
}
