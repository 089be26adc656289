package storage

import (
	"testing"
	"time"
)

func TestSweepEligibility(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	cutoff := sweepCutoff(now, 7)

	eightDaysAgo := now.AddDate(0, 0, -8)
	sixDaysAgo := now.AddDate(0, 0, -6)

	if !expired(&eightDaysAgo, cutoff) {
		t.Error("event that started 8 days ago must be swept")
	}
	if expired(&sixDaysAgo, cutoff) {
		t.Error("event that started 6 days ago must be retained")
	}
	if expired(nil, cutoff) {
		t.Error("undated events must never be swept")
	}
}
