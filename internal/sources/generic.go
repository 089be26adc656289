package sources

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
	"github.com/activat/b2b-monitor/internal/images"
)

// genericSource is the fallback adapter for sites without a dedicated one.
// It walks headings and event-looking links, takes the surrounding block as
// context, and relies on the relevance filter to drop the noise. Recall over
// precision: downstream dedup and filtering clean up after it.
type genericSource struct {
	cfg    config.SourceConfig
	client *fetch.Client
	limit  int
}

// linkHints mark URLs that usually lead to an event page.
var linkHints = []string{"event", "exhibition", "vystavk", "forum", "expo", "conference", "meropriyati", "afisha"}

func (s *genericSource) Name() string { return s.cfg.Name }

func (s *genericSource) Fetch(ctx context.Context) ([]event.Candidate, error) {
	body, err := s.client.Get(ctx, s.cfg.URL, s.cfg.Referer)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.cfg.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.cfg.Name, err)
	}

	cands := s.fromHeadings(doc)
	if len(cands) < s.limit {
		cands = append(cands, s.fromLinks(doc, s.limit-len(cands))...)
	}
	return dedupByURL(cands), nil
}

// fromHeadings treats each linked heading as a potential event title, with
// the heading's parent block as description and date context.
func (s *genericSource) fromHeadings(doc *goquery.Document) []event.Candidate {
	var cands []event.Candidate

	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		link := h.Find("a[href]").First()
		if link.Length() == 0 {
			link = h.Closest("a[href]")
		}
		if link.Length() == 0 {
			// A heading inside a linked card: look for the nearest link in
			// the parent block.
			link = h.Parent().Find("a[href]").First()
		}
		if link.Length() == 0 {
			return true
		}

		block := h.Parent()
		c := event.Candidate{
			Title:  h.Text(),
			URL:    absoluteURL(s.cfg.URL, link.AttrOr("href", "")),
			Source: s.cfg.Name,
		}

		block.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if text := strings.TrimSpace(p.Text()); len([]rune(text)) > 20 {
				c.Description = text
				return false
			}
			return true
		})

		if urls := images.CollectURLs(block, s.cfg.URL); len(urls) > 0 {
			c.ImageURL = urls[0]
		}

		if finishCandidate(&c, block.Text(), block.Text()) {
			cands = append(cands, c)
		}
		return len(cands) < s.limit
	})

	return cands
}

// fromLinks picks up listings that use bare links instead of headings.
func (s *genericSource) fromLinks(doc *goquery.Document, budget int) []event.Candidate {
	var cands []event.Candidate

	doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href := link.AttrOr("href", "")
		if !hasLinkHint(href) {
			return true
		}
		// Skip links already covered by the heading pass.
		if link.Find("h1, h2, h3, h4").Length() > 0 || link.ParentsFiltered("h1, h2, h3, h4").Length() > 0 {
			return true
		}

		c := event.Candidate{
			Title:  link.Text(),
			URL:    absoluteURL(s.cfg.URL, href),
			Source: s.cfg.Name,
		}

		block := link.Parent()
		if urls := images.CollectURLs(block, s.cfg.URL); len(urls) > 0 {
			c.ImageURL = urls[0]
		}

		if finishCandidate(&c, block.Text(), block.Text()) {
			cands = append(cands, c)
		}
		return len(cands) < budget
	})

	return cands
}

func hasLinkHint(href string) bool {
	href = strings.ToLower(href)
	for _, hint := range linkHints {
		if strings.Contains(href, hint) {
			return true
		}
	}
	return false
}
