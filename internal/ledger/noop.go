package ledger

import "TradePilot/internal/model"

// NoopLedger discards everything, used when no ledger backend is
// configured.
type NoopLedger struct{}

func NewNoopLedger() *NoopLedger { return &NoopLedger{} }

func (n *NoopLedger) RecordTrade(_ string, _ model.Side, _ int, _ float64) error { return nil }
func (n *NoopLedger) RecordSnapshot(_, _ float64) error                          { return nil }
func (n *NoopLedger) Close() error                                               { return nil }
