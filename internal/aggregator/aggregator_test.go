package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/sources"
)

type fakeSource struct {
	name  string
	cands []event.Candidate
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context) ([]event.Candidate, error) {
	return f.cands, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		AllowedCountries:    []string{"Казахстан", "Узбекистан", "Кыргызстан", "Армения", "Азербайджан", "Грузия"},
		SimilarityThreshold: 0.75,
		MinSimilarDescLen:   20,
	}
}

func newTestAggregator(srcs ...sources.Source) *Aggregator {
	return New(testConfig(), srcs)
}

func march(day int) *time.Time {
	t := time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRun_FailingSourceIsIsolated(t *testing.T) {
	good := &fakeSource{name: "good", cands: []event.Candidate{{
		Title: "KazBuild 2026", Description: "строительная выставка", URL: "https://a.kz/1",
		Country: "Казахстан", StartDate: march(15),
	}}}
	bad := &fakeSource{name: "bad", err: errors.New("boom")}

	out := newTestAggregator(good, bad).Run(context.Background())
	if len(out) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(out), out)
	}
}

func TestDedup_ByURL(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{
		{Title: "KazBuild 2026", Description: "строительная выставка номер один", URL: "https://a.kz/1", StartDate: march(15)},
		{Title: "Совсем другое событие", Description: "выставка вооружений и военной техники", URL: "https://a.kz/1", StartDate: march(20)},
	}
	out := a.dedup(in)
	if len(out) != 1 || out[0].Title != "KazBuild 2026" {
		t.Errorf("got %+v", out)
	}
}

func TestDedup_TitleMonthKeyMergesAcrossSources(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{
		{Title: "KazBuild 2026", Description: "краткое описание", URL: "https://a.kz/1",
			StartDate: march(15), ImageURL: event.PlaceholderImage},
		{Title: "KAZBUILD", Description: "существенно более длинное описание той же выставки",
			URL: "https://b.kz/2", StartDate: march(15), ImageURL: "https://b.kz/img.jpg"},
	}
	out := a.dedup(in)
	if len(out) != 1 {
		t.Fatalf("got %d, want 1 merged candidate", len(out))
	}
	if out[0].URL != "https://a.kz/1" {
		t.Errorf("first-seen URL must survive, got %q", out[0].URL)
	}
	if out[0].Description != "существенно более длинное описание той же выставки" {
		t.Errorf("longer description must win, got %q", out[0].Description)
	}
	if out[0].ImageURL != "https://b.kz/img.jpg" {
		t.Errorf("real image must replace the placeholder, got %q", out[0].ImageURL)
	}
}

func TestDedup_DifferentMonthsAreDifferentEvents(t *testing.T) {
	a := newTestAggregator()
	april := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	in := []event.Candidate{
		{Title: "KazBuild 2026", Description: "весенняя сессия", URL: "https://a.kz/1", StartDate: march(15)},
		{Title: "KazBuild 2026", Description: "апрельская сессия", URL: "https://a.kz/2", StartDate: &april},
	}
	if out := a.dedup(in); len(out) != 2 {
		t.Errorf("got %d, want 2", len(out))
	}
}

func TestDedup_BySimilarDescription(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{
		{Title: "KazBuild 2026", URL: "https://a.kz/1", StartDate: march(15),
			Description: "Крупнейшая международная выставка строительства и интерьера в Центральной Азии"},
		{Title: "Казбилд: строительная неделя", URL: "https://b.kz/2", StartDate: march(16),
			Description: "Крупнейшая международная выставка строительства и дизайна в Центральной Азии"},
	}
	out := a.dedup(in)
	if len(out) != 1 {
		t.Errorf("near-duplicate descriptions must collapse, got %d", len(out))
	}
}

func TestDedup_ShortDescriptionsSkipSimilarity(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{
		{Title: "Выставка А", Description: "выставка в марте", URL: "https://a.kz/1", StartDate: march(1)},
		{Title: "Выставка Б", Description: "выставка в апреле", URL: "https://a.kz/2", StartDate: march(2)},
	}
	if out := a.dedup(in); len(out) != 2 {
		t.Errorf("short descriptions must not trigger similarity dedup, got %d", len(out))
	}
}

func TestDedup_MergedDescriptionJoinsSimilarityPass(t *testing.T) {
	a := newTestAggregator()
	long := "Крупнейшая международная выставка строительства и интерьера в Центральной Азии"
	similar := "Крупнейшая международная выставка строительства и дизайна в Центральной Азии"

	// The near-duplicate arrives before the title-key merge that brings the
	// long description; the similarity pass must still see the merged text.
	in := []event.Candidate{
		{Title: "KazBuild 2026", Description: "краткое описание", URL: "https://a.kz/1", StartDate: march(15)},
		{Title: "Неделя стройиндустрии", Description: similar, URL: "https://c.kz/3", StartDate: march(20)},
		{Title: "KAZBUILD", Description: long, URL: "https://b.kz/2", StartDate: march(15)},
	}
	out := a.dedup(in)
	if len(out) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(out), out)
	}
	if out[0].Description != long {
		t.Errorf("merged description must survive, got %q", out[0].Description)
	}
	if again := a.dedup(out); len(again) != len(out) {
		t.Errorf("second pass removed candidates: %d -> %d", len(out), len(again))
	}
}

func TestDedup_Idempotent(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{
		{Title: "KazBuild 2026", Description: "краткое описание", URL: "https://a.kz/1",
			StartDate: march(15), ImageURL: event.PlaceholderImage},
		{Title: "KAZBUILD", Description: "существенно более длинное описание той же выставки",
			URL: "https://b.kz/2", StartDate: march(15), ImageURL: "https://b.kz/img.jpg"},
		{Title: "Выставка упаковки", Description: "международная выставка упаковочных решений",
			URL: "https://a.kz/3", StartDate: march(20)},
	}
	once := a.dedup(in)
	twice := a.dedup(once)
	if len(twice) != len(once) {
		t.Fatalf("second pass removed candidates: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("candidate %d changed: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestFilter_CountryInferenceOverridesAdapter(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{{
		Title: "Металлообработка 2026", Description: "выставка пройдет в Москве",
		URL: "https://a.kz/1", Country: "Казахстан",
	}}
	if out := a.filter(in); len(out) != 0 {
		t.Errorf("text mentioning a non-target city must override the adapter country: %+v", out)
	}
}

func TestFilter_UnknownCountryKept(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{{
		Title: "Выставка упаковки", Description: "международная выставка упаковочных решений",
		URL: "https://a.kz/1",
	}}
	out := a.filter(in)
	if len(out) != 1 {
		t.Fatalf("candidate without a resolvable country must be kept, got %d", len(out))
	}
	if out[0].ImageURL != event.PlaceholderImage {
		t.Errorf("missing image must get the placeholder, got %q", out[0].ImageURL)
	}
}

func TestFilter_StopWordAndJunk(t *testing.T) {
	a := newTestAggregator()
	in := []event.Candidate{
		{Title: "Семинар по ВЭД", Description: "", URL: "https://a.kz/1", Country: "Казахстан"},
		{Title: "12.03.2026", Description: "описание", URL: "https://a.kz/2", Country: "Казахстан"},
		{Title: "Подробнее", Description: "описание", URL: "https://a.kz/3", Country: "Казахстан"},
	}
	if out := a.filter(in); len(out) != 0 {
		t.Errorf("all three must be dropped: %+v", out)
	}
}
