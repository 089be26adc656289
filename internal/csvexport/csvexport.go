// Package csvexport regenerates the full events.csv snapshot after each
// cycle. The file is always rewritten from scratch so it reflects retention
// sweeps and in-place updates, not just inserts.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/textutil"
)

// header is the fixed column set downstream consumers import; order is part
// of the contract.
var header = []string{
	"name", "title", "short_description", "place", "date",
	"category", "url", "source", "country", "city", "image_url",
}

type eventLister interface {
	AllEvents(ctx context.Context) ([]event.Event, error)
}

// Export writes the full snapshot to path atomically: a temp file in the
// same directory, then rename.
func Export(ctx context.Context, store eventLister, path string) error {
	events, err := store.AllEvents(ctx)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	rows := buildRows(events)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".events-*.csv")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp csv: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace csv: %w", err)
	}

	slog.Info("csv snapshot written", "path", path, "rows", len(rows))
	return nil
}

// buildRows converts events to CSV rows. Stop-word filtering runs again at
// export time so rows stored before a word joined the list still disappear
// from the snapshot.
func buildRows(events []event.Event) [][]string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		if textutil.ContainsStopWord(e.Title + " " + e.Description) {
			continue
		}
		rows = append(rows, []string{
			capField(e.Name, 255),
			e.Title,
			e.Description,
			capField(e.Place, 255),
			formatDate(e),
			capField(e.Industry, 100),
			e.URL,
			capField(e.Source, 100),
			capField(e.Country, 100),
			capField(e.City, 100),
			e.ImageURL,
		})
	}
	return rows
}

// formatDate renders "2026-03-15" or "2026-03-15 - 2026-03-17" for ranges.
func formatDate(e event.Event) string {
	if e.StartDate == nil {
		return ""
	}
	s := e.StartDate.Format("2006-01-02")
	if e.EndDate != nil && !e.EndDate.Equal(*e.StartDate) {
		s += " - " + e.EndDate.Format("2006-01-02")
	}
	return s
}

func capField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
