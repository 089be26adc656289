// Package aggregator fans out over all configured sources and funnels the
// raw candidates through the in-run duplicate filter.
package aggregator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/location"
	"github.com/activat/b2b-monitor/internal/metrics"
	"github.com/activat/b2b-monitor/internal/sources"
	"github.com/activat/b2b-monitor/internal/textutil"
)

type Aggregator struct {
	srcs             []sources.Source
	allowedCountries map[string]bool
	simThreshold     float64
	minSimilarLen    int
}

func New(cfg *config.Config, srcs []sources.Source) *Aggregator {
	allowed := make(map[string]bool, len(cfg.AllowedCountries))
	for _, c := range cfg.AllowedCountries {
		allowed[c] = true
	}
	return &Aggregator{
		srcs:             srcs,
		allowedCountries: allowed,
		simThreshold:     cfg.SimilarityThreshold,
		minSimilarLen:    cfg.MinSimilarDescLen,
	}
}

// Run fetches every source concurrently and returns the deduplicated
// candidates. A failing source is logged and contributes nothing; the run
// itself never fails.
func (a *Aggregator) Run(ctx context.Context) []event.Candidate {
	results := make([][]event.Candidate, len(a.srcs))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.srcs {
		i, src := i, src
		g.Go(func() error {
			cands, err := src.Fetch(gctx)
			if err != nil {
				slog.Error("source failed", "source", src.Name(), "error", err)
				metrics.Global.IncrementSourceFailures()
				return nil
			}
			slog.Info("source fetched", "source", src.Name(), "candidates", len(cands))
			results[i] = cands
			return nil
		})
	}
	g.Wait()

	var all []event.Candidate
	for _, cands := range results {
		all = append(all, cands...)
	}
	metrics.Global.IncrementCandidatesParsed(len(all))

	// Filters run ahead of the funnel so a junk or out-of-region candidate
	// never occupies a URL or title-key slot and shadows a real one.
	filtered := a.filter(all)
	deduped := a.dedup(filtered)
	slog.Info("aggregation complete",
		"raw", len(all), "filtered", len(filtered), "deduped", len(deduped))
	return deduped
}

// filter drops junk and out-of-region candidates and normalizes the
// remainder: full-text country inference overrides whatever the adapter
// guessed, and missing images get the placeholder sentinel.
func (a *Aggregator) filter(cands []event.Candidate) []event.Candidate {
	out := make([]event.Candidate, 0, len(cands))
	for _, c := range cands {
		if junkTitle(c.Title) {
			continue
		}
		if textutil.ContainsStopWord(c.Title + " " + c.Description) {
			metrics.Global.IncrementStopWordRejected()
			continue
		}

		fullText := c.Title + " " + c.Description + " " + c.Place + " " + c.City
		if inferred := location.InferCountryFromText(fullText); inferred != "" {
			c.Country = inferred
		}
		if c.Country != "" && !a.allowedCountries[c.Country] {
			slog.Debug("candidate outside target region", "title", c.Title, "country", c.Country)
			continue
		}

		if c.ImageURL == "" {
			c.ImageURL = event.PlaceholderImage
		}
		out = append(out, c)
	}
	return out
}

// dedup applies the three-stage in-run funnel: exact URL, normalized
// title+month, then description similarity. The exact passes complete
// first, including their merges, so the similarity pass always compares
// the final merged descriptions.
func (a *Aggregator) dedup(cands []event.Candidate) []event.Candidate {
	return a.dropSimilar(a.mergeExact(cands))
}

// mergeExact runs the two cheap passes: the first candidate per exact URL
// wins, and candidates sharing a normalized title and month merge into one
// record.
func (a *Aggregator) mergeExact(cands []event.Candidate) []event.Candidate {
	seenURL := make(map[string]bool, len(cands))
	byTitleKey := make(map[string]int, len(cands))
	var out []event.Candidate

	for _, c := range cands {
		if seenURL[c.URL] {
			metrics.Global.IncrementDuplicatesByURL()
			continue
		}
		seenURL[c.URL] = true

		key := titleMonthKey(c)
		if idx, ok := byTitleKey[key]; ok {
			metrics.Global.IncrementDuplicatesByTitle()
			// Same event from two sources: keep the richer description.
			if len(c.Description) > len(out[idx].Description) {
				out[idx].Description = c.Description
			}
			if out[idx].ImageURL == event.PlaceholderImage && c.ImageURL != event.PlaceholderImage {
				out[idx].ImageURL = c.ImageURL
			}
			continue
		}

		byTitleKey[key] = len(out)
		out = append(out, c)
	}
	return out
}

// dropSimilar is the quadratic pass over the post-merge survivors.
func (a *Aggregator) dropSimilar(cands []event.Candidate) []event.Candidate {
	var out []event.Candidate
	for _, c := range cands {
		if a.similarToAny(c, out) {
			metrics.Global.IncrementDuplicatesBySimilar()
			continue
		}
		out = append(out, c)
	}
	return out
}

func (a *Aggregator) similarToAny(c event.Candidate, kept []event.Candidate) bool {
	if len([]rune(c.Description)) < a.minSimilarLen {
		return false
	}
	for i := range kept {
		if len([]rune(kept[i].Description)) < a.minSimilarLen {
			continue
		}
		if textutil.Similarity(c.Description, kept[i].Description) >= a.simThreshold {
			return true
		}
	}
	return false
}

var yearToken = regexp.MustCompile(`\b20\d{2}\b`)

// titleMonthKey collapses "Expo Central Asia 2026" in March from two sites
// into one key: normalized title with year tokens removed, plus the event
// month.
func titleMonthKey(c event.Candidate) string {
	title := yearToken.ReplaceAllString(c.Title, " ")
	key := textutil.NormalizeForCompare(title)
	if c.StartDate != nil {
		key += "|" + c.StartDate.Format("2006-01")
	}
	return key
}

// junkTitle catches fragments the adapters let through: navigation labels,
// bare dates, titles with no letters.
func junkTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	switch t {
	case "подробнее", "читать далее", "все события", "главная", "контакты", "read more", "more":
		return true
	}
	hasLetter := false
	for _, r := range t {
		if ('a' <= r && r <= 'z') || ('а' <= r && r <= 'я') || r == 'ё' {
			hasLetter = true
			break
		}
	}
	return !hasLetter
}
