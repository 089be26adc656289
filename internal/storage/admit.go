package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/metrics"
	"github.com/activat/b2b-monitor/internal/textutil"
)

// Verdict says what the gatekeeper did with a candidate event.
type Verdict int

const (
	VerdictSaved Verdict = iota
	VerdictUpdated
	VerdictDuplicateHash
	VerdictDuplicateSimilar
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictSaved:
		return "saved"
	case VerdictUpdated:
		return "updated"
	case VerdictDuplicateHash:
		return "duplicate_hash"
	case VerdictDuplicateSimilar:
		return "duplicate_similar"
	case VerdictRejected:
		return "rejected"
	}
	return "unknown"
}

// eventTable is the slice of Store the gatekeeper reads and writes through.
// Tests substitute a fake so the check order is verifiable without a
// database.
type eventTable interface {
	hashExists(ctx context.Context, hash string) (bool, error)
	urlExists(ctx context.Context, url string) (bool, error)
	updateByURL(ctx context.Context, e *event.Event) error
	insert(ctx context.Context, e *event.Event) error
	descriptions(ctx context.Context) ([]string, error)
}

// Admit is the single write path for events. Checks run cheapest first:
// stop words, exact content hash, URL match (update in place), then the
// similarity scan over stored descriptions. Only candidates that survive
// all four become new rows.
func (s *Store) Admit(ctx context.Context, e *event.Event) (Verdict, error) {
	return admit(ctx, s, e, s.similarityThreshold, s.minSimilarDescLen)
}

func admit(ctx context.Context, db eventTable, e *event.Event, threshold float64, minLen int) (Verdict, error) {
	if textutil.ContainsStopWord(e.Title + " " + e.Description) {
		metrics.Global.IncrementStopWordRejected()
		return VerdictRejected, nil
	}

	if e.EventHash == "" {
		e.EventHash = event.ComputeHash(e.Title, e.Description, e.StartDate)
	}

	exists, err := db.hashExists(ctx, e.EventHash)
	if err != nil {
		return VerdictRejected, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		metrics.Global.IncrementDuplicatesRejected()
		return VerdictDuplicateHash, nil
	}

	// Same URL with changed content: the page was edited, refresh the row.
	hasURL, err := db.urlExists(ctx, e.URL)
	if err != nil {
		return VerdictRejected, fmt.Errorf("check url: %w", err)
	}
	if hasURL {
		if err := db.updateByURL(ctx, e); err != nil {
			return VerdictRejected, fmt.Errorf("update event: %w", err)
		}
		metrics.Global.IncrementEventsUpdated()
		slog.Debug("event updated in place", "url", e.URL)
		return VerdictUpdated, nil
	}

	similar, err := isSimilarToStored(ctx, db, e.Description, threshold, minLen)
	if err != nil {
		return VerdictRejected, fmt.Errorf("similarity scan: %w", err)
	}
	if similar {
		metrics.Global.IncrementDuplicatesBySimilar()
		return VerdictDuplicateSimilar, nil
	}

	if err := db.insert(ctx, e); err != nil {
		return VerdictRejected, fmt.Errorf("insert event: %w", err)
	}
	metrics.Global.IncrementEventsSaved()
	return VerdictSaved, nil
}

func isSimilarToStored(ctx context.Context, db eventTable, desc string, threshold float64, minLen int) (bool, error) {
	if len([]rune(desc)) < minLen {
		return false, nil
	}
	stored, err := db.descriptions(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range stored {
		if textutil.Similarity(desc, d) >= threshold {
			return true, nil
		}
	}
	return false, nil
}
