package sources

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
	"github.com/activat/b2b-monitor/internal/images"
)

// kazexpoSource scrapes the KazExpo exhibition calendar. The calendar is a
// plain table, one exhibition per row; when no table is present it falls
// back to the card layout used on the mobile version.
type kazexpoSource struct {
	cfg    config.SourceConfig
	client *fetch.Client
	limit  int
}

func (s *kazexpoSource) Name() string { return s.cfg.Name }

func (s *kazexpoSource) Fetch(ctx context.Context) ([]event.Candidate, error) {
	body, err := s.client.Get(ctx, s.cfg.URL, s.cfg.Referer)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.cfg.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.cfg.Name, err)
	}

	cands := s.parseTable(doc)
	if len(cands) == 0 {
		cands = s.parseCards(doc)
	}
	return dedupByURL(cands), nil
}

func (s *kazexpoSource) parseTable(doc *goquery.Document) []event.Candidate {
	var cands []event.Candidate

	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true // header row or spacer
		}

		link := row.Find("a[href]").First()
		if link.Length() == 0 {
			return true
		}

		c := event.Candidate{
			Title:  link.Text(),
			URL:    absoluteURL(s.cfg.URL, link.AttrOr("href", "")),
			Source: s.cfg.Name,
		}

		// Column order varies between calendar years; the date and venue are
		// recognized by content, not position.
		rowText := row.Text()
		cells.Each(func(_ int, cell *goquery.Selection) {
			text := cell.Text()
			if text == c.Title {
				return
			}
			if c.Description == "" && len([]rune(text)) > 30 {
				c.Description = text
			}
		})

		if urls := images.CollectURLs(row, s.cfg.URL); len(urls) > 0 {
			c.ImageURL = urls[0]
		}

		if finishCandidate(&c, rowText, rowText) {
			cands = append(cands, c)
		}
		return len(cands) < s.limit
	})

	return cands
}

func (s *kazexpoSource) parseCards(doc *goquery.Document) []event.Candidate {
	var cands []event.Candidate

	doc.Find("div, article").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if !classContains(card, "exhibition", "vystavka", "event-item") {
			return true
		}

		link := card.Find("a[href]").First()
		title := card.Find("h2, h3, h4").First().Text()
		if title == "" {
			title = link.Text()
		}

		c := event.Candidate{
			Title:       title,
			Description: card.Find("p").First().Text(),
			URL:         absoluteURL(s.cfg.URL, link.AttrOr("href", "")),
			Source:      s.cfg.Name,
		}
		if urls := images.CollectURLs(card, s.cfg.URL); len(urls) > 0 {
			c.ImageURL = urls[0]
		}

		if finishCandidate(&c, card.Text(), card.Text()) {
			cands = append(cands, c)
		}
		return len(cands) < s.limit
	})

	return cands
}
