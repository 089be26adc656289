package sources

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/dates"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/location"
	"github.com/activat/b2b-monitor/internal/textutil"
)

const minTitleLen = 5

// absoluteURL resolves href against the source's base URL and runs it
// through the URL cleaner. Returns "" for junk links.
func absoluteURL(baseURL, href string) string {
	href = textutil.CleanURL(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// dedupByURL keeps the first candidate per exact URL. Every adapter runs
// this before returning.
func dedupByURL(cands []event.Candidate) []event.Candidate {
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// finishCandidate fills the derived fields shared by all adapters: cleaned
// title/description, dates from the date text, city/country from the
// location text, industry. Returns false when the fragment is not worth
// emitting (short title, irrelevant, no URL).
func finishCandidate(c *event.Candidate, dateText, locText string) bool {
	c.Title = textutil.CleanTitle(c.Title)
	if len([]rune(c.Title)) < minTitleLen || c.URL == "" {
		return false
	}
	c.Description = textutil.CleanDescription(c.Description)

	if c.StartDate == nil {
		c.StartDate, c.EndDate = dates.Extract(dateText)
	}
	if c.City == "" {
		c.City = location.ExtractCity(locText)
	}
	if c.Country == "" && c.City != "" {
		c.Country = location.CountryForCity(c.City)
	}

	if !textutil.IsRelevant(c.Title, c.Description) {
		return false
	}
	c.Industry = textutil.InferIndustry(c.Title, c.Description)
	return true
}

// classContains reports whether the node's class attribute contains any of
// the given fragments (case-insensitive).
func classContains(s *goquery.Selection, fragments ...string) bool {
	class, _ := s.Attr("class")
	class = strings.ToLower(class)
	for _, f := range fragments {
		if strings.Contains(class, f) {
			return true
		}
	}
	return false
}

// parseISODate tolerates the date shapes JSON-LD publishers emit.
func parseISODate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
