package sources

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
)

const genericFixture = `
<html><body>
<div class="news-item">
  <h2><a href="/news/expo-eurasia">Выставка Expo Eurasia 2026 пройдет в Ташкенте</a></h2>
  <p>Международная промышленная выставка Expo Eurasia соберет экспонентов из 20 стран. Даты проведения: 12-14 мая 2026.</p>
</div>
<div class="news-item">
  <h2><a href="/news/tax-changes">Изменения в налоговом кодексе</a></h2>
  <p>Краткий обзор поправок для бизнеса.</p>
</div>
<ul>
  <li><a href="/afisha/obuchenie-kurs">Курс по маркетингу</a></li>
  <li><a href="/event/forum-astana">Форум предпринимателей, 3 июня 2026, Астана</a></li>
</ul>
</body></html>`

func genericForTest() *genericSource {
	return &genericSource{
		cfg:   config.SourceConfig{Name: "profit", URL: "https://profit.kz/events"},
		limit: 30,
	}
}

func TestGenericFromHeadings(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(genericFixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	cands := genericForTest().fromHeadings(doc)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1 (tax news filtered): %+v", len(cands), cands)
	}

	c := cands[0]
	if !strings.Contains(c.Title, "Expo Eurasia") {
		t.Errorf("title = %q", c.Title)
	}
	if c.URL != "https://profit.kz/news/expo-eurasia" {
		t.Errorf("url = %q", c.URL)
	}
	if c.StartDate == nil || c.StartDate.Month() != time.May || c.StartDate.Day() != 12 {
		t.Errorf("start = %v", c.StartDate)
	}
	if c.City != "Ташкент" || c.Country != "Узбекистан" {
		t.Errorf("location = %q/%q", c.City, c.Country)
	}
}

func TestGenericFromLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(genericFixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	cands := genericForTest().fromLinks(doc, 30)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1 (stop-worded link filtered): %+v", len(cands), cands)
	}
	c := cands[0]
	if !strings.Contains(c.Title, "Форум") {
		t.Errorf("title = %q", c.Title)
	}
	if c.StartDate == nil || c.StartDate.Month() != time.June {
		t.Errorf("start = %v", c.StartDate)
	}
	if c.City != "Астана" {
		t.Errorf("city = %q", c.City)
	}
}

func TestHasLinkHint(t *testing.T) {
	cases := []struct {
		href string
		want bool
	}{
		{"/event/forum-astana", true},
		{"/vystavki/kazbuild", true},
		{"/news/tax-changes", false},
		{"/about", false},
	}
	for _, c := range cases {
		if got := hasLinkHint(c.href); got != c.want {
			t.Errorf("hasLinkHint(%q) = %v, want %v", c.href, got, c.want)
		}
	}
}
