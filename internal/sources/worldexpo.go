package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
	"github.com/activat/b2b-monitor/internal/location"
)

// jsonldSource reads schema.org Event records from ld+json script tags.
// Sites that publish structured data need no markup heuristics at all.
type jsonldSource struct {
	cfg    config.SourceConfig
	client *fetch.Client
	limit  int
}

// ldEvent mirrors the schema.org Event shape loosely: publishers disagree on
// whether nested objects are objects, strings, or arrays, so every nested
// field decodes through json.RawMessage.
type ldEvent struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	URL         string          `json:"url"`
	Image       json.RawMessage `json:"image"`
	Location    json.RawMessage `json:"location"`
}

type ldLocation struct {
	Name    string          `json:"name"`
	Address json.RawMessage `json:"address"`
}

type ldAddress struct {
	Locality string `json:"addressLocality"`
	Country  string `json:"addressCountry"`
}

func (s *jsonldSource) Name() string { return s.cfg.Name }

func (s *jsonldSource) Fetch(ctx context.Context) ([]event.Candidate, error) {
	body, err := s.client.Get(ctx, s.cfg.URL, s.cfg.Referer)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.cfg.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.cfg.Name, err)
	}

	return s.parse(doc), nil
}

func (s *jsonldSource) parse(doc *goquery.Document) []event.Candidate {
	var cands []event.Candidate
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		for _, le := range decodeLDEvents(script.Text()) {
			if c, ok := s.candidate(le); ok {
				cands = append(cands, c)
				if len(cands) >= s.limit {
					return false
				}
			}
		}
		return true
	})
	return dedupByURL(cands)
}

// decodeLDEvents accepts a single object, an array, or an @graph wrapper and
// returns whatever Event records it finds. Malformed scripts yield nothing.
func decodeLDEvents(raw string) []ldEvent {
	var single ldEvent
	if err := json.Unmarshal([]byte(raw), &single); err == nil && isEventType(single.Type) {
		return []ldEvent{single}
	}

	var list []ldEvent
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return filterEvents(list)
	}

	var graph struct {
		Graph []ldEvent `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(raw), &graph); err == nil {
		return filterEvents(graph.Graph)
	}

	slog.Debug("unrecognized ld+json payload shape")
	return nil
}

func filterEvents(list []ldEvent) []ldEvent {
	out := list[:0]
	for _, le := range list {
		if isEventType(le.Type) {
			out = append(out, le)
		}
	}
	return out
}

func isEventType(t string) bool {
	switch t {
	case "Event", "BusinessEvent", "ExhibitionEvent", "Festival":
		return true
	}
	return false
}

func (s *jsonldSource) candidate(le ldEvent) (event.Candidate, bool) {
	c := event.Candidate{
		Title:       le.Name,
		Description: le.Description,
		URL:         absoluteURL(s.cfg.URL, le.URL),
		Source:      s.cfg.Name,
		StartDate:   parseISODate(le.StartDate),
		EndDate:     parseISODate(le.EndDate),
		ImageURL:    firstImageURL(le.Image),
	}

	place, city, country := decodeLDLocation(le.Location)
	c.Place = place
	c.City = location.ExtractCity(city + " " + place)
	if c.City == "" {
		c.City = city
	}
	c.Country = countryName(country)
	if c.Country == "" && c.City != "" {
		c.Country = location.CountryForCity(c.City)
	}

	ok := finishCandidate(&c, le.StartDate, le.Name+" "+le.Description+" "+place)
	return c, ok
}

// firstImageURL handles image as a string, an array of strings, or an
// ImageObject.
func firstImageURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return firstImageURL(list[0])
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// countryName folds the ISO codes structured-data publishers use into the
// Russian names the rest of the pipeline works with. Unknown values pass
// through and get re-checked against the country gazetteer downstream.
func countryName(s string) string {
	switch s {
	case "KZ", "Kazakhstan":
		return "Казахстан"
	case "UZ", "Uzbekistan":
		return "Узбекистан"
	case "KG", "Kyrgyzstan":
		return "Кыргызстан"
	case "AM", "Armenia":
		return "Армения"
	case "AZ", "Azerbaijan":
		return "Азербайджан"
	case "GE", "Georgia":
		return "Грузия"
	}
	return s
}

func decodeLDLocation(raw json.RawMessage) (place, city, country string) {
	if len(raw) == 0 {
		return "", "", ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, "", ""
	}
	var loc ldLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return "", "", ""
	}
	place = loc.Name

	if len(loc.Address) > 0 {
		var addrStr string
		if err := json.Unmarshal(loc.Address, &addrStr); err == nil {
			return place, addrStr, ""
		}
		var addr ldAddress
		if err := json.Unmarshal(loc.Address, &addr); err == nil {
			return place, addr.Locality, addr.Country
		}
	}
	return place, "", ""
}
