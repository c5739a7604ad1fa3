package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TradePilot/internal/model"
)

const (
	tradesFile = "trades.csv"
	equityFile = "equity.csv"
	timeLayout = "2006-01-02 15:04:05"
)

// CSVLedger appends trades and equity snapshots to two flat files in a
// log directory, the format downstream chart tooling reads.
type CSVLedger struct {
	mu          sync.Mutex
	tradesPath  string
	equityPath  string
	realizedPnL float64
}

// NewCSVLedger creates (or reuses) the log directory and its files.
// A fresh equity file starts with a starting-cash comment, a header,
// and one initial snapshot row.
func NewCSVLedger(dir string, initialCash float64) (*CSVLedger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	l := &CSVLedger{
		tradesPath: filepath.Join(dir, tradesFile),
		equityPath: filepath.Join(dir, equityFile),
	}

	if _, err := os.Stat(l.tradesPath); os.IsNotExist(err) {
		if err := os.WriteFile(l.tradesPath, []byte("time,symbol,side,qty,price,amount\n"), 0644); err != nil {
			return nil, fmt.Errorf("init trades file: %w", err)
		}
	}

	if _, err := os.Stat(l.equityPath); os.IsNotExist(err) {
		header := fmt.Sprintf("# starting_cash,%.2f\ntime,cash,stock_value,total_equity,realized_pnl\n", initialCash)
		if err := os.WriteFile(l.equityPath, []byte(header), 0644); err != nil {
			return nil, fmt.Errorf("init equity file: %w", err)
		}
	}

	// Initial snapshot marks the session start on the equity curve.
	if err := l.RecordSnapshot(initialCash, 0); err != nil {
		return nil, err
	}
	return l, nil
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	w.Flush()
	return w.Error()
}

// RecordTrade appends one confirmed trade and, for sells, accumulates
// the realized P&L carried on every later snapshot.
func (l *CSVLedger) RecordTrade(symbol string, side model.Side, qty int, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount := signedAmount(side, qty, price)
	if side == model.SideSell {
		l.realizedPnL += -amount
	}
	return appendRow(l.tradesPath, []string{
		time.Now().Format(timeLayout),
		symbol,
		string(side),
		fmt.Sprintf("%d", qty),
		fmt.Sprintf("%.2f", price),
		fmt.Sprintf("%.2f", amount),
	})
}

// RecordSnapshot appends one equity observation.
func (l *CSVLedger) RecordSnapshot(cash, stockValue float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return appendRow(l.equityPath, []string{
		time.Now().Format(timeLayout),
		fmt.Sprintf("%.2f", cash),
		fmt.Sprintf("%.2f", stockValue),
		fmt.Sprintf("%.2f", cash+stockValue),
		fmt.Sprintf("%.2f", l.realizedPnL),
	})
}

func (l *CSVLedger) Close() error { return nil }
