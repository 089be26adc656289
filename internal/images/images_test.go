package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const cardFixture = `
<html><body>
<div class="card">
  <img src="/img/a.jpg" data-src="/img/a-lazy.jpg">
  <picture><source srcset="/img/a.webp 640w, /img/a-big.webp 1280w"></picture>
  <div style="background-image: url('/img/bg.png')"></div>
  <img src="data:image/gif;base64,R0lGOD">
  <img src="/img/a.jpg">
</div>
</body></html>`

func TestCollectURLs(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardFixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	urls := CollectURLs(doc.Find("div.card"), "https://a.kz/events")
	want := []string{
		"https://a.kz/img/a.jpg",
		"https://a.kz/img/a-lazy.jpg",
		"https://a.kz/img/a.webp",
		"https://a.kz/img/a-big.webp",
		"https://a.kz/img/bg.png",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls %v, want %d", len(urls), urls, len(want))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestCollectURLs_SiblingImage(t *testing.T) {
	html := `<div><div class="photo"><img src="/img/s.jpg"></div><div class="text" id="target">текст</div></div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	urls := CollectURLs(doc.Find("#target"), "https://a.kz/")
	if len(urls) != 1 || urls[0] != "https://a.kz/img/s.jpg" {
		t.Errorf("got %v", urls)
	}
}

func TestOGImage(t *testing.T) {
	html := `<html><head><meta property="og:image" content="/img/og.jpg"></head><body></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if got := OGImage(doc, "https://a.kz/e"); got != "https://a.kz/img/og.jpg" {
		t.Errorf("got %q", got)
	}
}

// pngHeader is a minimal PNG signature http.DetectContentType recognizes.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type fakeGetter struct {
	body        []byte
	contentType string
	err         error
	calls       int
}

func (f *fakeGetter) GetRaw(_ context.Context, _ string) ([]byte, string, error) {
	f.calls++
	return f.body, f.contentType, f.err
}

func TestDownloadAndStore_SniffsExtension(t *testing.T) {
	dir := t.TempDir()
	// Header lies about the type; the bytes win.
	g := &fakeGetter{body: pngHeader, contentType: "image/jpeg"}
	d := NewDownloader(g, dir)

	path := d.DownloadAndStore(context.Background(), "https://a.kz/img.jpg", "event-key")
	if path == "" {
		t.Fatal("got empty path")
	}
	if filepath.Ext(path) != ".png" {
		t.Errorf("extension = %q, want .png from sniffed bytes", filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestDownloadAndStore_CachesPerRun(t *testing.T) {
	dir := t.TempDir()
	g := &fakeGetter{body: pngHeader, contentType: "image/png"}
	d := NewDownloader(g, dir)

	p1 := d.DownloadAndStore(context.Background(), "https://a.kz/img.png", "k")
	p2 := d.DownloadAndStore(context.Background(), "https://a.kz/img.png", "k")
	if p1 == "" || p1 != p2 {
		t.Fatalf("got %q and %q", p1, p2)
	}
	if g.calls != 1 {
		t.Errorf("got %d fetches, want 1", g.calls)
	}
}

func TestDownloadAndStore_FailureReturnsEmpty(t *testing.T) {
	g := &fakeGetter{err: fmt.Errorf("connection refused")}
	d := NewDownloader(g, t.TempDir())
	if path := d.DownloadAndStore(context.Background(), "https://a.kz/img.png", "k"); path != "" {
		t.Errorf("got %q, want empty on failure", path)
	}
}

func TestDownloadAndStore_RejectsNonImage(t *testing.T) {
	g := &fakeGetter{body: []byte("<html>not an image</html>"), contentType: "text/html"}
	d := NewDownloader(g, t.TempDir())
	if path := d.DownloadAndStore(context.Background(), "https://a.kz/img.png", "k"); path != "" {
		t.Errorf("got %q, want empty for non-image body", path)
	}
}
