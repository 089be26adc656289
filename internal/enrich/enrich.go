// Package enrich turns raw scraped candidates into presentable records:
// a short display name, a compact description, and a tidied venue. The
// local strategy is deterministic truncation; the Gemini strategy asks the
// model and falls back to local output per record.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/activat/b2b-monitor/internal/event"
)

// Result carries the enriched presentation fields. Empty fields mean the
// strategy had nothing better than what the candidate already holds.
type Result struct {
	Name             string `json:"name"`
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	Place            string `json:"place"`
	Date             string `json:"date"`
}

// ParsedDate returns the strategy-reported date when it is a valid
// YYYY-MM-DD value, nil otherwise. Used to backfill candidates whose pages
// carried no parseable date text.
func (r Result) ParsedDate() *time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
	if err != nil {
		return nil
	}
	return &t
}

// Enricher produces presentation fields for one candidate. Implementations
// must not fail the pipeline: on any internal error they degrade to local
// output.
type Enricher interface {
	Enrich(ctx context.Context, c event.Candidate) Result
}

const maxDescChars = 500

// Local is the no-dependency strategy: truncate, budget words, and reuse
// the scraped fields as-is.
type Local struct {
	MaxWords int
}

func NewLocal(maxWords int) *Local {
	return &Local{MaxWords: maxWords}
}

func (l *Local) Enrich(_ context.Context, c event.Candidate) Result {
	return Result{
		Name:             shortName(c.Title),
		Title:            c.Title,
		ShortDescription: TruncateDescription(c.Description, l.MaxWords),
		Place:            c.Place,
	}
}

// TruncateDescription cuts the text to a character cap, then to a word
// budget, appending an ellipsis when something was dropped.
func TruncateDescription(desc string, maxWords int) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return ""
	}

	truncated := false
	if runes := []rune(desc); len(runes) > maxDescChars {
		desc = string(runes[:maxDescChars])
		truncated = true
	}

	words := strings.Fields(desc)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
		truncated = true
	}

	out := strings.Join(words, " ")
	if truncated {
		out = strings.TrimRight(out, ".,;:— ") + "..."
	}
	return out
}

// shortName strips the year and everything after a separating dash, giving
// "KazBuild" from "KazBuild 2026 — международная строительная выставка".
func shortName(title string) string {
	for _, sep := range []string{" — ", " – ", " - ", ": "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
			break
		}
	}
	words := strings.Fields(title)
	out := words[:0]
	for _, w := range words {
		if len(w) == 4 && strings.HasPrefix(w, "20") && isDigits(w) {
			continue
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return strings.TrimSpace(title)
	}
	return strings.Join(out, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
