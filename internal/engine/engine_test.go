package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/broker"
	"TradePilot/internal/model"
	"TradePilot/internal/news"
	"TradePilot/internal/strategy"
)

// A Tuesday 10:00 ET (15:00 UTC) and a Sunday, for gating.
var (
	openTime   = time.Date(2026, 1, 6, 15, 0, 0, 0, time.UTC)
	closedTime = time.Date(2026, 1, 4, 15, 0, 0, 0, time.UTC)
)

type stubBroker struct {
	prices   map[string]float64
	bars     map[string][]model.PriceBar
	cashUSD  float64
	fx       float64
	holdings model.Holdings
	orders   []model.OrderRequest
	reject   bool
}

func (b *stubBroker) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	return b.prices[symbol], nil
}

func (b *stubBroker) ChartBars(_ context.Context, symbol string, _ int) ([]model.PriceBar, error) {
	return b.bars[symbol], nil
}

func (b *stubBroker) OrderableCashUSD(_ context.Context) (float64, error) { return b.cashUSD, nil }
func (b *stubBroker) CashBalanceKRW(_ context.Context) (float64, error)  { return 0, nil }
func (b *stubBroker) ExchangeRate(_ context.Context) (float64, error)    { return b.fx, nil }

func (b *stubBroker) Positions(_ context.Context) (model.Holdings, error) {
	out := model.Holdings{}
	for k, v := range b.holdings {
		out[k] = v
	}
	return out, nil
}

func (b *stubBroker) Buy(_ context.Context, symbol string, qty int, price float64) (model.OrderResult, error) {
	return b.submit(symbol, model.SideBuy, qty, price)
}

func (b *stubBroker) Sell(_ context.Context, symbol string, qty int, price float64) (model.OrderResult, error) {
	return b.submit(symbol, model.SideSell, qty, price)
}

func (b *stubBroker) submit(symbol string, side model.Side, qty int, price float64) (model.OrderResult, error) {
	if b.reject {
		return model.OrderResult{Accepted: false, Message: "insufficient balance"},
			&broker.OrderError{Symbol: symbol, Message: "insufficient balance"}
	}
	b.orders = append(b.orders, model.OrderRequest{Symbol: symbol, Side: side, Quantity: qty, LimitPrice: price})
	return model.OrderResult{Accepted: true}, nil
}

type memLedger struct {
	trades    []model.TradeRecord
	snapshots []model.EquitySnapshot
}

func (l *memLedger) RecordTrade(symbol string, side model.Side, qty int, price float64) error {
	l.trades = append(l.trades, model.TradeRecord{Symbol: symbol, Side: side, Quantity: qty, Price: price})
	return nil
}

func (l *memLedger) RecordSnapshot(cash, stockValue float64) error {
	l.snapshots = append(l.snapshots, model.EquitySnapshot{Cash: cash, StockValue: stockValue})
	return nil
}

func (l *memLedger) Close() error { return nil }

type memNotifier struct {
	msgs    []string
	retried int
}

func (n *memNotifier) Send(text string) error {
	n.msgs = append(n.msgs, text)
	return nil
}

func (n *memNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.retried++
	return n.Send(text)
}

func flatBars(price float64, n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		bars[i] = model.PriceBar{Last: price}
	}
	return bars
}

// Sentiment carries the whole weight so the static scorer's signal maps
// directly onto the decision.
func sentimentOnlyParams() strategy.Params {
	return strategy.Params{
		MomentumWindow:   2,
		OscillatorPeriod: 3,
		Weights:          model.Weights{Sentiment: 1},
	}
}

func newTestOrchestrator(b *stubBroker, signal int, symbols []string, buyUnit float64, enforceCash bool) (*Orchestrator, *memLedger, *memNotifier) {
	l := &memLedger{}
	n := &memNotifier{}
	opts := Options{
		Symbols:          symbols,
		BuyUnitUSD:       buyUnit,
		Params:           sentimentOnlyParams(),
		CycleInterval:    time.Minute,
		SymbolSpacing:    time.Millisecond,
		IdleNotifyEvery:  30 * time.Minute,
		EnforceCashCheck: enforceCash,
	}
	exec := &Executor{Broker: b, Ledger: l, Notifier: n}
	o := New(opts, b, &news.StaticFetcher{}, &news.StaticScorer{Signal: signal}, exec, l, n)
	o.now = func() time.Time { return openTime }
	return o, l, n
}

func TestRunCycle_BuysAndSkipsUnpriced(t *testing.T) {
	b := &stubBroker{
		prices:   map[string]float64{"AAPL": 150, "ZZZZ": 0},
		bars:     map[string][]model.PriceBar{"AAPL": flatBars(150, 4)},
		cashUSD:  1000,
		fx:       1300,
		holdings: model.Holdings{},
	}
	o, l, _ := newTestOrchestrator(b, 1, []string{"AAPL", "ZZZZ"}, 1000, true)

	require.NoError(t, o.runCycle(context.Background()))

	require.Len(t, b.orders, 1)
	assert.Equal(t, "AAPL", b.orders[0].Symbol)
	assert.Equal(t, model.SideBuy, b.orders[0].Side)
	assert.Equal(t, 6, b.orders[0].Quantity, "floor(1000/150)")

	require.Len(t, l.trades, 1)
	require.Len(t, l.snapshots, 1)
	assert.InDelta(t, 100, l.snapshots[0].Cash, 1e-9, "cash reduced by the buy")
	assert.InDelta(t, 900, l.snapshots[0].StockValue, 1e-9)
}

func TestRunCycle_SellLiquidatesFullPosition(t *testing.T) {
	b := &stubBroker{
		prices:   map[string]float64{"AAPL": 150},
		bars:     map[string][]model.PriceBar{"AAPL": flatBars(150, 4)},
		cashUSD:  1000,
		fx:       1300,
		holdings: model.Holdings{"AAPL": 7},
	}
	o, l, _ := newTestOrchestrator(b, -1, []string{"AAPL"}, 1000, true)

	require.NoError(t, o.runCycle(context.Background()))

	require.Len(t, b.orders, 1)
	assert.Equal(t, model.SideSell, b.orders[0].Side)
	assert.Equal(t, 7, b.orders[0].Quantity, "sells are full liquidation")

	require.Len(t, l.snapshots, 1)
	assert.InDelta(t, 2050, l.snapshots[0].Cash, 1e-9)
	assert.InDelta(t, 0, l.snapshots[0].StockValue, 1e-9)
}

func TestRunCycle_NoAveragingIntoHeldPosition(t *testing.T) {
	b := &stubBroker{
		prices:   map[string]float64{"AAPL": 150},
		bars:     map[string][]model.PriceBar{"AAPL": flatBars(150, 4)},
		cashUSD:  10000,
		fx:       1300,
		holdings: model.Holdings{"AAPL": 3},
	}
	o, _, _ := newTestOrchestrator(b, 1, []string{"AAPL"}, 1000, true)

	require.NoError(t, o.runCycle(context.Background()))
	assert.Empty(t, b.orders, "buy signal on a held symbol must not average in")
}

func TestRunCycle_CashGuard(t *testing.T) {
	newBroker := func() *stubBroker {
		return &stubBroker{
			prices:   map[string]float64{"AAPL": 150},
			bars:     map[string][]model.PriceBar{"AAPL": flatBars(150, 4)},
			cashUSD:  100,
			fx:       1300,
			holdings: model.Holdings{},
		}
	}

	b := newBroker()
	o, _, _ := newTestOrchestrator(b, 1, []string{"AAPL"}, 1000, true)
	require.NoError(t, o.runCycle(context.Background()))
	assert.Empty(t, b.orders, "enforced cash check blocks an unaffordable buy")

	b = newBroker()
	o, _, _ = newTestOrchestrator(b, 1, []string{"AAPL"}, 1000, false)
	require.NoError(t, o.runCycle(context.Background()))
	assert.Len(t, b.orders, 1, "disabled cash check defers to the brokerage")
}

func TestRunCycle_OptimisticCashCarriesAcrossSymbols(t *testing.T) {
	b := &stubBroker{
		prices: map[string]float64{"AAPL": 150, "MSFT": 150},
		bars: map[string][]model.PriceBar{
			"AAPL": flatBars(150, 4),
			"MSFT": flatBars(150, 4),
		},
		cashUSD:  1000,
		fx:       1300,
		holdings: model.Holdings{},
	}
	o, _, _ := newTestOrchestrator(b, 1, []string{"AAPL", "MSFT"}, 900, true)

	require.NoError(t, o.runCycle(context.Background()))

	require.Len(t, b.orders, 1, "first buy spends the cash the second needed")
	assert.Equal(t, "AAPL", b.orders[0].Symbol)
}

type failingFetcher struct{}

func (failingFetcher) Name() string { return "failing" }

func (failingFetcher) FetchHeadlines(_ context.Context, _ string) ([]model.Headline, error) {
	return nil, assert.AnError
}

type authFailBroker struct {
	stubBroker
	failChart bool
}

func (b *authFailBroker) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if b.failChart {
		return b.stubBroker.CurrentPrice(ctx, symbol)
	}
	return 0, &broker.AuthError{Op: "request token", Err: errors.New("status 401")}
}

func (b *authFailBroker) ChartBars(_ context.Context, _ string, _ int) ([]model.PriceBar, error) {
	return nil, &broker.AuthError{Op: "request token", Err: errors.New("status 401")}
}

func TestRunCycle_CredentialFailureAbortsCycle(t *testing.T) {
	for _, failChart := range []bool{false, true} {
		b := &authFailBroker{
			stubBroker: stubBroker{
				prices:   map[string]float64{"AAPL": 150},
				cashUSD:  1000,
				fx:       1300,
				holdings: model.Holdings{},
			},
			failChart: failChart,
		}
		o, l, _ := newTestOrchestrator(&b.stubBroker, 1, []string{"AAPL"}, 1000, true)
		o.broker = b

		err := o.runCycle(context.Background())
		require.Error(t, err, "a dead credential fails the cycle, not one symbol")
		var authErr *broker.AuthError
		assert.ErrorAs(t, err, &authErr)
		assert.Empty(t, b.orders)
		assert.Empty(t, l.snapshots, "an aborted cycle records no equity snapshot")
	}
}

func TestRunCycle_NewsFailureDegradesToNeutral(t *testing.T) {
	b := &stubBroker{
		prices:   map[string]float64{"AAPL": 150},
		bars:     map[string][]model.PriceBar{"AAPL": flatBars(150, 4)},
		cashUSD:  1000,
		fx:       1300,
		holdings: model.Holdings{},
	}
	o, l, _ := newTestOrchestrator(b, 1, []string{"AAPL"}, 1000, true)
	o.fetcher = failingFetcher{}

	require.NoError(t, o.runCycle(context.Background()))
	assert.Empty(t, b.orders, "lost headlines zero the sentiment factor, no buy")
	assert.Len(t, l.snapshots, 1, "the cycle still completes")
}

func TestExecutor_RejectionIsNotAnError(t *testing.T) {
	b := &stubBroker{reject: true}
	l := &memLedger{}
	n := &memNotifier{}
	exec := &Executor{Broker: b, Ledger: l, Notifier: n}

	result, err := exec.Execute(context.Background(), "AAPL", model.SideBuy, 5, 150)
	require.NoError(t, err, "a rejection is reported, not retried or escalated")
	assert.False(t, result.Accepted)
	assert.Empty(t, l.trades, "rejected orders stay out of the ledger")
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "rejected")
}

func TestExecutor_SimulationRecordsWithoutSubmitting(t *testing.T) {
	b := &stubBroker{}
	l := &memLedger{}
	exec := &Executor{Broker: b, Ledger: l, Simulate: true}

	result, err := exec.Execute(context.Background(), "AAPL", model.SideBuy, 5, 150)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Empty(t, b.orders, "simulation must not reach the brokerage")
	require.Len(t, l.trades, 1)
	assert.Equal(t, 5, l.trades[0].Quantity)
}

func TestRun_GatesWhenMarketClosed(t *testing.T) {
	b := &stubBroker{holdings: model.Holdings{}}
	o, l, n := newTestOrchestrator(b, 1, []string{"AAPL"}, 1000, true)
	o.now = func() time.Time { return closedTime }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop promptly after cancellation")
	}

	assert.Empty(t, l.snapshots, "no cycle may run while the market is closed")
	assert.Len(t, n.msgs, 1, "idle notice is sent once, not per poll")
}

type panickyBroker struct {
	stubBroker
}

func (b *panickyBroker) ExchangeRate(_ context.Context) (float64, error) {
	panic("connection state corrupted")
}

func TestSupervisor_RestartsAfterPanic(t *testing.T) {
	var builds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := &memNotifier{}
	s := &Supervisor{
		Backoff:  time.Millisecond,
		Notifier: n,
		Build: func() *Orchestrator {
			if builds.Add(1) == 3 {
				cancel()
			}
			b := &panickyBroker{stubBroker{holdings: model.Holdings{}}}
			o, _, _ := newTestOrchestrator(&b.stubBroker, 1, []string{"AAPL"}, 1000, true)
			o.broker = b
			return o
		},
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, builds.Load(), int32(3), "each restart builds a fresh engine")
	require.NotEmpty(t, n.msgs)
	assert.Contains(t, n.msgs[0], "panic")
	assert.GreaterOrEqual(t, n.retried, 1, "crash notices go through the must-deliver path")
}
