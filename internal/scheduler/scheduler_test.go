package scheduler

import (
	"testing"
	"time"
)

func TestNextRunAfter_LaterToday(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 30, 0, 0, time.UTC)
	next := nextRunAfter(now, "08:00")
	want := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("got %v, want %v", next, want)
	}
}

func TestNextRunAfter_RollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	next := nextRunAfter(now, "08:00")
	want := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("got %v, want %v", next, want)
	}
}

func TestNextRunAfter_ExactTickRollsOver(t *testing.T) {
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	next := nextRunAfter(now, "08:00")
	if !next.After(now) {
		t.Errorf("next run must be strictly after now, got %v", next)
	}
	if next.Day() != 16 {
		t.Errorf("got %v, want tomorrow", next)
	}
}

func TestNextRunAfter_BadSpecFallsBack(t *testing.T) {
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	next := nextRunAfter(now, "not-a-time")
	if got := next.Sub(now); got != time.Hour {
		t.Errorf("got %v ahead, want 1h fallback", got)
	}
}

func TestNextRunAfter_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, loc)
	next := nextRunAfter(now, "08:00")
	if next.Location() != loc {
		t.Errorf("location = %v, want %v", next.Location(), loc)
	}
	if next.Hour() != 8 {
		t.Errorf("hour = %d, want 8 in local time", next.Hour())
	}
}
