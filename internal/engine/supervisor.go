package engine

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"
)

// Supervisor keeps the engine alive unattended: when a run dies to a
// panic it reports the crash, waits out the backoff and starts a fresh
// orchestrator. Only context cancellation ends the loop.
type Supervisor struct {
	Backoff  time.Duration
	Notifier RetryNotifier

	// Build constructs a fresh orchestrator for each run, so a restart
	// never inherits state from the crashed one.
	Build func() *Orchestrator
}

// Run supervises until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			log.Printf("[INFO] Supervisor shutting down")
			return
		}
		msg := fmt.Sprintf("engine crashed: %v, restarting in %s", err, s.Backoff)
		log.Printf("[ERROR] %s", msg)
		if s.Notifier != nil {
			// Crash notices must land even through a transient outage.
			if nerr := s.Notifier.SendWithRetry(ctx, msg, 3); nerr != nil {
				log.Printf("[WARN] Failed to send crash notification: %v", nerr)
			}
		}
		if !wait(ctx, s.Backoff) {
			return
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	s.Build().Run(ctx)
	return nil
}
