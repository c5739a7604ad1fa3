package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"TradePilot/internal/broker"
	"TradePilot/internal/ledger"
	"TradePilot/internal/model"
)

// Executor submits orders and records the confirmed ones. In simulation
// mode nothing reaches the brokerage: orders are logged, treated as
// accepted and recorded, so the ledger tracks what the strategy would
// have done with real money.
type Executor struct {
	Broker   Broker
	Ledger   ledger.Ledger
	Notifier Notifier
	Simulate bool
}

// Execute submits one limit order. A brokerage rejection is not an
// error: the order is dropped without retry, the operator is told, and
// the cycle moves on. Transport and auth failures propagate.
func (e *Executor) Execute(ctx context.Context, symbol string, side model.Side, qty int, price float64) (model.OrderResult, error) {
	if e.Simulate {
		log.Printf("[INFO] [SIM] %s %d x %s @ %.2f", side, qty, symbol, price)
		if err := e.Ledger.RecordTrade(symbol, side, qty, price); err != nil {
			log.Printf("[WARN] Failed to record simulated trade: %v", err)
		}
		return model.OrderResult{Accepted: true, Message: "simulated"}, nil
	}

	var result model.OrderResult
	var err error
	switch side {
	case model.SideBuy:
		result, err = e.Broker.Buy(ctx, symbol, qty, price)
	case model.SideSell:
		result, err = e.Broker.Sell(ctx, symbol, qty, price)
	default:
		return model.OrderResult{}, fmt.Errorf("unknown order side %q", side)
	}
	if err != nil {
		var orderErr *broker.OrderError
		if errors.As(err, &orderErr) {
			msg := fmt.Sprintf("Order rejected: %s %d x %s @ %.2f: %s", side, qty, symbol, price, orderErr.Message)
			log.Printf("[WARN] %s", msg)
			e.notify(msg)
			return result, nil
		}
		return model.OrderResult{}, err
	}

	log.Printf("[INFO] Order accepted: %s %d x %s @ %.2f", side, qty, symbol, price)
	e.notify(fmt.Sprintf("%s %d x %s @ %.2f", side, qty, symbol, price))
	if err := e.Ledger.RecordTrade(symbol, side, qty, price); err != nil {
		log.Printf("[WARN] Failed to record trade: %v", err)
	}
	return result, nil
}

func (e *Executor) notify(msg string) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Send(msg); err != nil {
		log.Printf("[WARN] Failed to send notification: %v", err)
	}
}
