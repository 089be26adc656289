package sources

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
	"github.com/activat/b2b-monitor/internal/images"
)

// itecaSource scrapes the iteca.events exhibition listing. Event cards are
// located by class-name heuristics because the site ships no structured
// data.
type itecaSource struct {
	cfg    config.SourceConfig
	client *fetch.Client
	limit  int
}

var (
	itecaCardClass  = regexp.MustCompile(`(?i)event|exhibition|card`)
	itecaTitleClass = regexp.MustCompile(`(?i)title|name|heading`)
	itecaDescClass  = regexp.MustCompile(`(?i)description|text|content|excerpt`)
	itecaDateClass  = regexp.MustCompile(`(?i)date|time|period`)
)

func (s *itecaSource) Name() string { return s.cfg.Name }

func (s *itecaSource) Fetch(ctx context.Context) ([]event.Candidate, error) {
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

func (s *itecaSource) parse(doc *goquery.Document) []event.Candidate {
	var cands []event.Candidate

	doc.Find("article, div").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		class, _ := card.Attr("class")
		if !itecaCardClass.MatchString(class) {
			return true
		}
		// Skip wrappers that contain other linked cards: take the leaves.
		// A matching descendant without its own link (a description block)
		// does not make this node a wrapper.
		if card.Find("article, div").FilterFunction(func(_ int, inner *goquery.Selection) bool {
			c, _ := inner.Attr("class")
			return itecaCardClass.MatchString(c) && inner.Find("a[href]").Length() > 0
		}).Length() > 0 {
			return true
		}

		c, ok := s.parseCard(card)
		if ok {
			cands = append(cands, c)
		}
		return len(cands) < s.limit
	})

	return dedupByURL(cands)
}

func (s *itecaSource) parseCard(card *goquery.Selection) (event.Candidate, bool) {
	titleEl := card.Find("h1, h2, h3, a").FilterFunction(func(_ int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		return itecaTitleClass.MatchString(class) || goquery.NodeName(el) != "a"
	}).First()
	if titleEl.Length() == 0 {
		return event.Candidate{}, false
	}

	c := event.Candidate{
		Title:  titleEl.Text(),
		Source: s.cfg.Name,
	}

	if href, ok := titleEl.Attr("href"); ok {
		c.URL = absoluteURL(s.cfg.URL, href)
	}
	if c.URL == "" {
		if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			c.URL = absoluteURL(s.cfg.URL, href)
		}
	}

	card.Find("p, div").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		if itecaDescClass.MatchString(class) {
			c.Description = el.Text()
			return false
		}
		return true
	})

	dateText := card.Text()
	if dateEl := card.Find("span, div, time").FilterFunction(func(_ int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		return itecaDateClass.MatchString(class)
	}).First(); dateEl.Length() > 0 {
		dateText = dateEl.Text()
	}

	if urls := images.CollectURLs(card, s.cfg.URL); len(urls) > 0 {
		c.ImageURL = urls[0]
	}

	ok := finishCandidate(&c, dateText, card.Text()+" "+c.Description)
	return c, ok
}
