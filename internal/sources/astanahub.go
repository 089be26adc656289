package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
)

// embeddedSource handles SPA sites that ship their event list as a JSON
// payload embedded in a script tag (Astana Hub's Nuxt bootstrap is the
// motivating case). The payload arrives as an escaped string literal, so it
// goes through UnescapeEmbeddedJSON before decoding.
type embeddedSource struct {
	cfg    config.SourceConfig
	client *fetch.Client
	limit  int
}

// payloadMarkers are the keys the event array has been seen under, in order
// of preference.
var payloadMarkers = []string{`"results":`, `"events":`, `"items":`, `"data":`}

type embeddedRecord struct {
	Title       string `json:"title"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ShortDesc   string `json:"short_description"`
	StartAt     string `json:"start_at"`
	StartDate   string `json:"start_date"`
	EndAt       string `json:"end_at"`
	EndDate     string `json:"end_date"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Cover       string `json:"cover"`
	City        string `json:"city"`
	Location    string `json:"location"`
}

func (s *embeddedSource) Name() string { return s.cfg.Name }

func (s *embeddedSource) Fetch(ctx context.Context) ([]event.Candidate, error) {
	body, err := s.client.Get(ctx, s.cfg.URL, s.cfg.Referer)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.cfg.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.cfg.Name, err)
	}

	var cands []event.Candidate
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		recs := s.extractRecords(script.Text())
		for _, rec := range recs {
			if c, ok := s.candidate(rec); ok {
				cands = append(cands, c)
				if len(cands) >= s.limit {
					return false
				}
			}
		}
		// The bootstrap payload appears once; stop after the first script
		// that yields records.
		return len(recs) == 0
	})
	return dedupByURL(cands), nil
}

// extractRecords locates the event array inside a script body. The raw text
// is tried as-is first, then unescaped, because some deployments embed plain
// JSON and others an escaped string literal.
func (s *embeddedSource) extractRecords(script string) []embeddedRecord {
	for _, text := range []string{script, unescapeOrEmpty(script)} {
		if text == "" {
			continue
		}
		for _, marker := range payloadMarkers {
			arr, ok := ExtractJSONArray(text, marker)
			if !ok {
				continue
			}
			var recs []embeddedRecord
			if err := json.Unmarshal([]byte(arr), &recs); err != nil {
				slog.Debug("embedded payload decode failed", "source", s.cfg.Name, "marker", marker, "error", err)
				continue
			}
			if len(recs) > 0 {
				return recs
			}
		}
	}
	return nil
}

func unescapeOrEmpty(script string) string {
	if !strings.Contains(script, `\"`) {
		return ""
	}
	out, err := UnescapeEmbeddedJSON(script)
	if err != nil {
		return ""
	}
	return out
}

func (s *embeddedSource) candidate(rec embeddedRecord) (event.Candidate, bool) {
	title := rec.Title
	if title == "" {
		title = rec.Name
	}
	desc := rec.Description
	if desc == "" {
		desc = rec.ShortDesc
	}

	c := event.Candidate{
		Title:       title,
		Description: desc,
		Source:      s.cfg.Name,
		City:        rec.City,
		Place:       rec.Location,
		ImageURL:    firstNonEmpty(rec.Image, rec.Cover),
	}

	switch {
	case rec.URL != "":
		c.URL = absoluteURL(s.cfg.URL, rec.URL)
	case rec.Slug != "":
		c.URL = absoluteURL(s.cfg.URL, rec.Slug)
	}
	if c.ImageURL != "" {
		c.ImageURL = absoluteURL(s.cfg.URL, c.ImageURL)
	}

	c.StartDate = parseISODate(firstNonEmpty(rec.StartAt, rec.StartDate))
	c.EndDate = parseISODate(firstNonEmpty(rec.EndAt, rec.EndDate))

	dateText := firstNonEmpty(rec.StartAt, rec.StartDate)
	ok := finishCandidate(&c, dateText, title+" "+desc+" "+rec.City+" "+rec.Location)
	return c, ok
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
