package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/activat/b2b-monitor/internal/event"
)

type fakeEventTable struct {
	hash   bool
	url    bool
	stored []string

	calls []string
	saved *event.Event
}

func (f *fakeEventTable) hashExists(_ context.Context, _ string) (bool, error) {
	f.calls = append(f.calls, "hash")
	return f.hash, nil
}

func (f *fakeEventTable) urlExists(_ context.Context, _ string) (bool, error) {
	f.calls = append(f.calls, "url")
	return f.url, nil
}

func (f *fakeEventTable) updateByURL(_ context.Context, _ *event.Event) error {
	f.calls = append(f.calls, "update")
	return nil
}

func (f *fakeEventTable) insert(_ context.Context, e *event.Event) error {
	f.calls = append(f.calls, "insert")
	f.saved = e
	return nil
}

func (f *fakeEventTable) descriptions(_ context.Context) ([]string, error) {
	f.calls = append(f.calls, "descriptions")
	return f.stored, nil
}

func (f *fakeEventTable) callOrder() string { return strings.Join(f.calls, ",") }

func admitTestEvent() *event.Event {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	return &event.Event{
		Title:       "KazBuild 2026",
		Description: "Крупнейшая международная выставка строительства и интерьера в Центральной Азии",
		URL:         "https://a.kz/kazbuild",
		StartDate:   &start,
	}
}

func TestAdmit_StopWordRejectsBeforeAnyQuery(t *testing.T) {
	f := &fakeEventTable{hash: true, url: true}
	e := admitTestEvent()
	e.Title = "Вебинар по экспорту"

	v, err := admit(context.Background(), f, e, 0.75, 20)
	if err != nil || v != VerdictRejected {
		t.Fatalf("got %v, %v", v, err)
	}
	if len(f.calls) != 0 {
		t.Errorf("stop-word rejection must not touch the store, got calls %v", f.calls)
	}
}

func TestAdmit_HashDuplicateStopsBeforeURL(t *testing.T) {
	f := &fakeEventTable{hash: true, url: true}

	v, err := admit(context.Background(), f, admitTestEvent(), 0.75, 20)
	if err != nil || v != VerdictDuplicateHash {
		t.Fatalf("got %v, %v", v, err)
	}
	if got := f.callOrder(); got != "hash" {
		t.Errorf("call order = %q, want just the hash check", got)
	}
}

func TestAdmit_URLMatchUpdatesInPlace(t *testing.T) {
	f := &fakeEventTable{url: true}
	e := admitTestEvent()

	v, err := admit(context.Background(), f, e, 0.75, 20)
	if err != nil || v != VerdictUpdated {
		t.Fatalf("got %v, %v", v, err)
	}
	if got := f.callOrder(); got != "hash,url,update" {
		t.Errorf("call order = %q", got)
	}
	if e.EventHash == "" {
		t.Error("hash must be computed before the checks run")
	}
}

func TestAdmit_SimilarStoredDescription(t *testing.T) {
	f := &fakeEventTable{stored: []string{
		"Крупнейшая международная выставка строительства и дизайна в Центральной Азии",
	}}

	v, err := admit(context.Background(), f, admitTestEvent(), 0.75, 20)
	if err != nil || v != VerdictDuplicateSimilar {
		t.Fatalf("got %v, %v", v, err)
	}
	if got := f.callOrder(); got != "hash,url,descriptions" {
		t.Errorf("call order = %q", got)
	}
}

func TestAdmit_CleanEventSaved(t *testing.T) {
	f := &fakeEventTable{stored: []string{"Выставка вооружений и военной техники региона"}}
	e := admitTestEvent()

	v, err := admit(context.Background(), f, e, 0.75, 20)
	if err != nil || v != VerdictSaved {
		t.Fatalf("got %v, %v", v, err)
	}
	if got := f.callOrder(); got != "hash,url,descriptions,insert" {
		t.Errorf("call order = %q", got)
	}
	if f.saved != e {
		t.Error("insert must receive the admitted event")
	}
}

func TestVerdictString(t *testing.T) {
	cases := []struct {
		v    Verdict
		want string
	}{
		{VerdictSaved, "saved"},
		{VerdictUpdated, "updated"},
		{VerdictDuplicateHash, "duplicate_hash"},
		{VerdictDuplicateSimilar, "duplicate_similar"},
		{VerdictRejected, "rejected"},
		{Verdict(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("Verdict(%d).String() = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	if nt := nullTime(nil); nt.Valid {
		t.Error("nil pointer must map to invalid NullTime")
	}
	d := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	nt := nullTime(&d)
	if !nt.Valid || !nt.Time.Equal(d) {
		t.Errorf("got %+v", nt)
	}
	if p := timePtr(nt); p == nil || !p.Equal(d) {
		t.Errorf("got %v", p)
	}
	if p := timePtr(nullTime(nil)); p != nil {
		t.Errorf("got %v, want nil", p)
	}
}

func TestRemoveLocalImages_SkipsRemoteAndPlaceholder(t *testing.T) {
	// None of these exist on disk; the point is that nothing panics and
	// remote URLs are never treated as paths.
	removeLocalImages([]string{
		"",
		"no_image",
		"https://a.kz/img.jpg",
		"parsed_images/definitely-missing.png",
	})
}
