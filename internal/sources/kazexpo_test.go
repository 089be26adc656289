package sources

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/activat/b2b-monitor/internal/config"
)

const kazexpoTableFixture = `
<html><body>
<table class="calendar">
  <tr><th>Выставка</th><th>Дата</th><th>Место</th></tr>
  <tr>
    <td><a href="/vystavki/kazbuild">KazBuild 2026</a></td>
    <td>02-04 сентября 2026</td>
    <td>Алматы, Атакент. Крупнейшая международная строительная выставка Казахстана и Центральной Азии.</td>
  </tr>
  <tr>
    <td><a href="/vystavki/powerexpo">PowerExpo Almaty</a></td>
    <td>15-17 октября 2026</td>
    <td>Алматы. Энергетическая выставка: электрооборудование и атомная энергетика.</td>
  </tr>
  <tr><td colspan="3">Календарь обновляется</td></tr>
</table>
</body></html>`

func kazexpoForTest() *kazexpoSource {
	return &kazexpoSource{
		cfg:   config.SourceConfig{Name: "kazexpo", URL: "https://kazexpo.kz/calendar"},
		limit: 30,
	}
}

func TestKazexpoParseTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(kazexpoTableFixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	cands := kazexpoForTest().parseTable(doc)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(cands), cands)
	}

	kb := cands[0]
	if kb.Title != "KazBuild 2026" {
		t.Errorf("title = %q", kb.Title)
	}
	if kb.URL != "https://kazexpo.kz/vystavki/kazbuild" {
		t.Errorf("url = %q", kb.URL)
	}
	if kb.StartDate == nil || kb.StartDate.Month() != time.September || kb.StartDate.Day() != 2 {
		t.Errorf("start = %v", kb.StartDate)
	}
	if kb.City != "Алматы" {
		t.Errorf("city = %q", kb.City)
	}
	if kb.Description == "" {
		t.Error("long venue cell should become the description")
	}

	pe := cands[1]
	if pe.Industry != "Энергетика" {
		t.Errorf("industry = %q", pe.Industry)
	}
}

func TestKazexpoParseCards_Fallback(t *testing.T) {
	html := `
<div class="vystavka-item">
  <h3>AgroWorld Kazakhstan 2026</h3>
  <p>Международная сельскохозяйственная выставка, 18-20 ноября 2026, Алматы.</p>
  <a href="/vystavki/agroworld">Подробнее</a>
</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	cands := kazexpoForTest().parseCards(doc)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	c := cands[0]
	if c.Title != "AgroWorld Kazakhstan 2026" {
		t.Errorf("title = %q", c.Title)
	}
	if c.StartDate == nil || c.StartDate.Month() != time.November {
		t.Errorf("start = %v", c.StartDate)
	}
	if c.Industry != "Агро" {
		t.Errorf("industry = %q", c.Industry)
	}
}
