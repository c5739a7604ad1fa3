package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"TradePilot/internal/broker"
	"TradePilot/internal/ledger"
	"TradePilot/internal/market"
	"TradePilot/internal/model"
	"TradePilot/internal/news"
	"TradePilot/internal/strategy"
)

// Options configures one orchestrator instance.
type Options struct {
	Symbols          []string
	BuyUnitUSD       float64
	Params           strategy.Params
	CycleInterval    time.Duration
	SymbolSpacing    time.Duration
	IdleNotifyEvery  time.Duration
	EnforceCashCheck bool
	Simulate         bool
}

const gatePollInterval = 5 * time.Second

// Orchestrator runs the trading loop: gate on market hours, refresh
// account and market state, score and act on each symbol in turn,
// snapshot equity, sleep out the remainder of the interval.
type Orchestrator struct {
	opts     Options
	broker   Broker
	fetcher  news.Fetcher
	scorer   news.Scorer
	executor *Executor
	ledger   ledger.Ledger
	notifier Notifier
	idle     *market.IdleGate
	limiter  *rate.Limiter

	now func() time.Time // test hook
}

// New creates an orchestrator. A fresh instance carries no state from a
// previous run; the supervisor relies on this when it restarts after a
// crash.
func New(opts Options, b Broker, f news.Fetcher, s news.Scorer, exec *Executor, l ledger.Ledger, n Notifier) *Orchestrator {
	return &Orchestrator{
		opts:     opts,
		broker:   b,
		fetcher:  f,
		scorer:   s,
		executor: exec,
		ledger:   l,
		notifier: n,
		idle:     market.NewIdleGate(opts.IdleNotifyEvery),
		limiter:  rate.NewLimiter(rate.Every(opts.SymbolSpacing), 1),
		now:      time.Now,
	}
}

// Run loops until the context is cancelled. A failed cycle is reported
// and absorbed; the next cycle starts from brokerage truth, so no state
// from the failure carries over. Simulation runs ignore the market
// gate so dry runs can exercise the full cycle at any hour.
func (o *Orchestrator) Run(ctx context.Context) {
	log.Printf("[INFO] Engine started: %d symbols, cycle %s, buy unit $%.2f",
		len(o.opts.Symbols), o.opts.CycleInterval, o.opts.BuyUnitUSD)
	for {
		if ctx.Err() != nil {
			return
		}
		if !o.opts.Simulate && !market.SessionOpen(o.now()) {
			if o.idle.ShouldNotify(o.now()) {
				log.Printf("[INFO] Market closed, engine idle")
				o.notify("market closed, engine idle")
			}
			if !wait(ctx, gatePollInterval) {
				return
			}
			continue
		}

		started := o.now()
		if err := o.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[ERROR] Cycle failed: %v", err)
			o.notify(fmt.Sprintf("cycle failed: %v", err))
		}
		if !wait(ctx, o.opts.CycleInterval-o.now().Sub(started)) {
			return
		}
	}
}

// runCycle performs one full pass: fetch everything, then score and act
// on each symbol against that one consistent snapshot, then record the
// equity observation.
func (o *Orchestrator) runCycle(ctx context.Context) error {
	state, err := o.fetchState(ctx)
	if err != nil {
		return fmt.Errorf("fetch cycle state: %w", err)
	}
	log.Printf("[INFO] Cycle start: cash $%.2f, %d positions", state.Account.CashUSD, len(state.Holdings))

	for _, symbol := range o.opts.Symbols {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		res := o.processSymbol(ctx, symbol, state)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logResult(res)
	}

	return o.snapshot(state)
}

// fetchState refreshes account truth and per-symbol market data before
// any decision is made. USD orderable cash is preferred; when that
// lookup fails, the KRW balance converted at the current rate stands
// in. Per-symbol fetch failures become diagnostics on the state, not
// cycle errors.
func (o *Orchestrator) fetchState(ctx context.Context) (*CycleState, error) {
	fx, err := o.broker.ExchangeRate(ctx)
	if err != nil {
		log.Printf("[WARN] Exchange rate unavailable: %v", err)
	}

	cash, err := o.broker.OrderableCashUSD(ctx)
	if err != nil {
		log.Printf("[WARN] USD cash lookup failed, falling back to KRW balance: %v", err)
		krw, krwErr := o.broker.CashBalanceKRW(ctx)
		if krwErr != nil {
			return nil, fmt.Errorf("cash balance: %w", krwErr)
		}
		if fx <= 0 {
			return nil, fmt.Errorf("cannot convert KRW balance: no exchange rate")
		}
		cash = krw / fx
	}

	holdings, err := o.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	state := &CycleState{
		Account:   model.AccountState{CashUSD: cash, FxRate: fx},
		Holdings:  holdings,
		Price:     make(map[string]float64),
		Bars:      make(map[string][]model.PriceBar),
		Sentiment: make(map[string]int),
		FetchNote: make(map[string]string),
	}

	for _, symbol := range o.opts.Symbols {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		price, err := o.broker.CurrentPrice(ctx, symbol)
		if err != nil {
			if isAuthFailure(err) {
				return nil, fmt.Errorf("price for %s: %w", symbol, err)
			}
			state.FetchNote[symbol] = fmt.Sprintf("price fetch failed: %v", err)
			continue
		}
		if price <= 0 {
			state.FetchNote[symbol] = "no usable price"
			continue
		}
		state.Price[symbol] = price

		bars, err := o.broker.ChartBars(ctx, symbol, o.barCount())
		if err != nil {
			if isAuthFailure(err) {
				return nil, fmt.Errorf("bars for %s: %w", symbol, err)
			}
			state.FetchNote[symbol] = fmt.Sprintf("chart fetch failed: %v", err)
			continue
		}
		state.Bars[symbol] = bars
		state.Sentiment[symbol] = o.sentiment(ctx, symbol)
	}
	return state, nil
}

// isAuthFailure reports whether the error is a credential failure,
// which aborts the whole cycle: a dead token fails every symbol the
// same way, so degrading symbol by symbol would only produce noise.
func isAuthFailure(err error) bool {
	var authErr *broker.AuthError
	return errors.As(err, &authErr)
}

// processSymbol scores one symbol against the cycle snapshot and acts
// on the decision. A symbol whose fetch failed is skipped with its
// diagnostic; the loop moves on.
func (o *Orchestrator) processSymbol(ctx context.Context, symbol string, state *CycleState) SymbolResult {
	res := SymbolResult{Symbol: symbol, Action: model.ActionHold}
	if note, bad := state.FetchNote[symbol]; bad {
		res.Note = note
		return res
	}
	res.Price = state.Price[symbol]
	res.Score = strategy.ComputeScore(state.Sentiment[symbol], state.Bars[symbol], o.opts.Params)

	held := state.Holdings.Quantity(symbol)
	res.Action = strategy.Decide(res.Score.Total, held)

	switch res.Action {
	case model.ActionBuy:
		o.executeBuy(ctx, &res, state, held)
	case model.ActionSell:
		o.executeSell(ctx, &res, state, held)
	}
	return res
}

func (o *Orchestrator) executeBuy(ctx context.Context, res *SymbolResult, state *CycleState, held int) {
	if held > 0 {
		res.Note = fmt.Sprintf("already holding %d shares, not averaging in", held)
		return
	}
	qty := strategy.SizeBuy(o.opts.BuyUnitUSD, res.Price)
	if qty == 0 {
		res.Note = fmt.Sprintf("buy unit $%.2f affords no shares at %.2f", o.opts.BuyUnitUSD, res.Price)
		return
	}
	cost := float64(qty) * res.Price
	if o.opts.EnforceCashCheck && cost > state.Account.CashUSD {
		res.Note = fmt.Sprintf("insufficient cash: need $%.2f, have $%.2f", cost, state.Account.CashUSD)
		return
	}

	res.Quantity = qty
	result, err := o.executor.Execute(ctx, res.Symbol, model.SideBuy, qty, res.Price)
	if err != nil {
		res.Note = fmt.Sprintf("buy failed: %v", err)
		return
	}
	if !result.Accepted {
		res.Note = result.Message
		return
	}
	res.Executed = true
	state.Account.CashUSD -= cost
	state.Holdings[res.Symbol] = held + qty
}

// executeSell liquidates the full position. Partial exits are not a
// thing this strategy does.
func (o *Orchestrator) executeSell(ctx context.Context, res *SymbolResult, state *CycleState, held int) {
	res.Quantity = held
	result, err := o.executor.Execute(ctx, res.Symbol, model.SideSell, held, res.Price)
	if err != nil {
		res.Note = fmt.Sprintf("sell failed: %v", err)
		return
	}
	if !result.Accepted {
		res.Note = result.Message
		return
	}
	res.Executed = true
	state.Account.CashUSD += float64(held) * res.Price
	state.Holdings[res.Symbol] = 0
}

// sentiment fetches and classifies headlines for the symbol. News is a
// soft input: any failure degrades to neutral with a warning.
func (o *Orchestrator) sentiment(ctx context.Context, symbol string) int {
	headlines, err := o.fetcher.FetchHeadlines(ctx, symbol)
	if err != nil {
		log.Printf("[WARN] %s: headline fetch failed: %v", symbol, err)
		return 0
	}
	signal, err := o.scorer.Score(ctx, headlines)
	if err != nil {
		log.Printf("[WARN] %s: sentiment scoring failed: %v", symbol, err)
		return 0
	}
	return signal
}

// snapshot records end-of-cycle equity from the cycle's own price data.
// A held symbol the cycle could not price contributes zero rather than
// sinking the snapshot.
func (o *Orchestrator) snapshot(state *CycleState) error {
	var stockValue float64
	for symbol, qty := range state.Holdings {
		if qty <= 0 {
			continue
		}
		price, ok := state.Price[symbol]
		if !ok {
			log.Printf("[WARN] %s: no price for equity snapshot", symbol)
			continue
		}
		stockValue += float64(qty) * price
	}
	if err := o.ledger.RecordSnapshot(state.Account.CashUSD, stockValue); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	log.Printf("[INFO] Cycle done: cash $%.2f, stock $%.2f", state.Account.CashUSD, stockValue)
	return nil
}

// barCount returns how much chart history the configured factors need.
func (o *Orchestrator) barCount() int {
	n := 2 * o.opts.Params.MomentumWindow
	if p := o.opts.Params.OscillatorPeriod + 1; p > n {
		n = p
	}
	return n
}

func (o *Orchestrator) logResult(res SymbolResult) {
	if res.Note != "" {
		log.Printf("[INFO] %s: score %.2f, %s (%s)", res.Symbol, res.Score.Total, res.Action, res.Note)
		return
	}
	log.Printf("[INFO] %s: score %.2f (sent %d, mom %d, osc %d), %s", res.Symbol,
		res.Score.Total, res.Score.Sentiment, res.Score.Momentum, res.Score.Oscillator, res.Action)
}

func (o *Orchestrator) notify(msg string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Send(msg); err != nil {
		log.Printf("[WARN] Failed to send notification: %v", err)
	}
}

// wait sleeps for d or until the context is cancelled. Returns false on
// cancellation.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
