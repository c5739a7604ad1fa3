package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"TradePilot/internal/engine"
	"TradePilot/internal/ledger"
)

// Scheduler runs the end-of-day report task. The trading loop itself is
// interval-driven; cron only carries the calendar-shaped work.
type Scheduler struct {
	Cron     *cron.Cron
	Ledger   *ledger.SQLiteLedger
	Notifier engine.RetryNotifier
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, l *ledger.SQLiteLedger, n engine.RetryNotifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Ledger:   l,
		Notifier: n,
		Ctx:      ctx,
	}
}

// Register registers the daily report task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyReport); err != nil {
		return fmt.Errorf("register daily report: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] report scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] report scheduler stopped")
}

// RunDailyNow executes the daily report immediately (manual trigger).
func (s *Scheduler) RunDailyNow() {
	s.dailyReport()
}

func (s *Scheduler) dailyReport() {
	log.Println("[INFO] running daily report")
	summary, err := s.Ledger.DailySummary(time.Now())
	if err != nil {
		log.Printf("[ERROR] daily summary: %v", err)
		s.trySend(fmt.Sprintf("daily report failed: %v", err))
		return
	}
	s.trySend(FormatDailySummary(summary))
}

// FormatDailySummary renders the day's ledger summary for the operator
// channel.
func FormatDailySummary(s *ledger.Summary) string {
	if s.Trades == 0 {
		return "Daily report: no trades today"
	}
	return fmt.Sprintf(
		"Daily report\ntrades: %d (%d buys, %d sells)\nturnover: $%.2f\nequity: $%.2f\nrealized P&L: $%.2f",
		s.Trades, s.Buys, s.Sells, s.Turnover, s.TotalEquity, s.RealizedPnL)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
