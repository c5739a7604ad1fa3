package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func et(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestSessionOpen(t *testing.T) {
	loc := et(t)
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"midday Tuesday", time.Date(2025, 6, 3, 12, 0, 0, 0, loc), true},
		{"open boundary", time.Date(2025, 6, 3, 9, 30, 0, 0, loc), true},
		{"close boundary", time.Date(2025, 6, 3, 16, 0, 0, 0, loc), true},
		{"just before open", time.Date(2025, 6, 3, 9, 29, 0, 0, loc), false},
		{"just after close", time.Date(2025, 6, 3, 16, 1, 0, 0, loc), false},
		{"Saturday midday", time.Date(2025, 6, 7, 12, 0, 0, 0, loc), false},
		{"Sunday midday", time.Date(2025, 6, 8, 12, 0, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionOpen(tt.now))
		})
	}
}

func TestSessionOpen_ConvertsToEastern(t *testing.T) {
	// 02:00 UTC Wednesday is 22:00 ET Tuesday: closed.
	assert.False(t, SessionOpen(time.Date(2025, 6, 4, 2, 0, 0, 0, time.UTC)))
	// 15:00 UTC Tuesday is 11:00 ET Tuesday: open.
	assert.True(t, SessionOpen(time.Date(2025, 6, 3, 15, 0, 0, 0, time.UTC)))
}

func TestIdleGate_RateLimits(t *testing.T) {
	gate := NewIdleGate(30 * time.Minute)
	start := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	assert.True(t, gate.ShouldNotify(start), "first check notifies")

	// Polling every 5 seconds for the next hour fires exactly once more,
	// at the 30-minute mark.
	notified := 0
	for i := 1; i < 720; i++ {
		if gate.ShouldNotify(start.Add(time.Duration(i) * 5 * time.Second)) {
			notified++
		}
	}
	assert.Equal(t, 1, notified, "at most one notification per interval")
}
