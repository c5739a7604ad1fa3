package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TradePilot/internal/model"
)

// SQLiteLedger persists trades and equity snapshots to SQLite; the
// daily report task reads summaries back out of it.
type SQLiteLedger struct {
	db          *sql.DB
	mu          sync.Mutex
	realizedPnL float64
}

// NewSQLiteLedger opens (or creates) the database and runs migrations.
// The realized P&L accumulator resumes from the last stored snapshot so
// restarts do not reset the equity curve.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so report reads do not block engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var last sql.NullFloat64
	if err := db.QueryRow(`SELECT realized_pnl FROM equity_snapshots ORDER BY id DESC LIMIT 1`).Scan(&last); err == nil && last.Valid {
		l.realizedPnL = last.Float64
	}

	log.Printf("[INFO] sqlite ledger opened: %s", dbPath)
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			side      TEXT NOT NULL,
			qty       INTEGER NOT NULL,
			price     REAL NOT NULL,
			amount    REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,

		`CREATE TABLE IF NOT EXISTS equity_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			cash         REAL,
			stock_value  REAL,
			total_equity REAL,
			realized_pnl REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_ts ON equity_snapshots(timestamp)`,
	}
	for _, s := range stmts {
		if _, err := l.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordTrade appends one confirmed trade.
func (l *SQLiteLedger) RecordTrade(symbol string, side model.Side, qty int, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount := signedAmount(side, qty, price)
	if side == model.SideSell {
		l.realizedPnL += -amount
	}
	_, err := l.db.Exec(`INSERT INTO trades (timestamp, symbol, side, qty, price, amount) VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), symbol, string(side), qty, price, amount)
	return err
}

// RecordSnapshot appends one equity observation.
func (l *SQLiteLedger) RecordSnapshot(cash, stockValue float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`INSERT INTO equity_snapshots (timestamp, cash, stock_value, total_equity, realized_pnl) VALUES (?,?,?,?,?)`,
		time.Now().Unix(), cash, stockValue, cash+stockValue, l.realizedPnL)
	return err
}

// Summary aggregates one day of ledger activity for the daily report.
type Summary struct {
	Trades      int
	Buys        int
	Sells       int
	Turnover    float64 // gross traded amount, unsigned
	TotalEquity float64 // latest snapshot of the day
	RealizedPnL float64
}

// DailySummary reads the activity between the local midnight containing
// `day` and the following midnight.
func (l *SQLiteLedger) DailySummary(day time.Time) (*Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	s := &Summary{}
	rows, err := l.db.Query(`SELECT side, amount FROM trades WHERE timestamp >= ? AND timestamp < ?`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var side string
		var amount float64
		if err := rows.Scan(&side, &amount); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		s.Trades++
		if side == string(model.SideBuy) {
			s.Buys++
		} else {
			s.Sells++
		}
		if amount < 0 {
			amount = -amount
		}
		s.Turnover += amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = l.db.QueryRow(`SELECT total_equity, realized_pnl FROM equity_snapshots
		WHERE timestamp >= ? AND timestamp < ? ORDER BY id DESC LIMIT 1`,
		start.Unix(), end.Unix()).Scan(&s.TotalEquity, &s.RealizedPnL)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return s, nil
}

func (l *SQLiteLedger) Close() error {
	log.Println("[INFO] closing sqlite ledger")
	return l.db.Close()
}
