// Package images extracts a representative image URL from an event fragment
// and persists it locally under a content-derived filename.
package images

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

var bgImageRe = regexp.MustCompile(`background(?:-image)?\s*:\s*url\(['"]?([^'")]+)['"]?\)`)

var extByType = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
}

// CollectURLs gathers candidate image URLs from a fragment: img attributes
// (src, data-src, data-lazy-src, srcset), <picture><source>, inline
// background-image styles, and adjacent sibling images. Returns absolute
// HTTP(S) URLs, deduplicated, in discovery order.
func CollectURLs(sel *goquery.Selection, baseURL string) []string {
	var urls []string
	seen := map[string]bool{}

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		abs := absolutize(baseURL, raw)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		urls = append(urls, abs)
	}

	addSrcset := func(srcset string) {
		// "url1 640w, url2 1280w": take each URL part.
		for _, part := range strings.Split(srcset, ",") {
			fields := strings.Fields(strings.TrimSpace(part))
			if len(fields) > 0 {
				add(fields[0])
			}
		}
	}

	collectFrom := func(s *goquery.Selection) {
		s.Find("img").Each(func(_ int, img *goquery.Selection) {
			for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
				if v, ok := img.Attr(attr); ok {
					add(v)
				}
			}
			if v, ok := img.Attr("srcset"); ok {
				addSrcset(v)
			}
		})
		s.Find("picture source").Each(func(_ int, src *goquery.Selection) {
			if v, ok := src.Attr("srcset"); ok {
				addSrcset(v)
			}
		})
		s.Find("[style]").Each(func(_ int, styled *goquery.Selection) {
			style, _ := styled.Attr("style")
			if m := bgImageRe.FindStringSubmatch(style); m != nil {
				add(m[1])
			}
		})
		if style, ok := s.Attr("style"); ok {
			if m := bgImageRe.FindStringSubmatch(style); m != nil {
				add(m[1])
			}
		}
	}

	collectFrom(sel)

	// Listing layouts often keep the image in a sibling of the text card.
	sel.Siblings().Each(func(_ int, sib *goquery.Selection) {
		if sib.Is("img") || sib.Find("img").Length() > 0 {
			collectFrom(sib)
		}
	})

	return urls
}

// OGImage pulls the og:image meta URL from a full document.
func OGImage(doc *goquery.Document, baseURL string) string {
	if v, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		return absolutize(baseURL, v)
	}
	return ""
}

func absolutize(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "data:") {
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

// Downloader fetches and stores event images. A per-run seen set keyed by
// imageURL+eventKey avoids redundant downloads within one cycle.
type Downloader struct {
	client httpGetter
	dir    string

	mu   sync.Mutex
	seen map[string]string
}

type httpGetter interface {
	GetRaw(ctx context.Context, url string) (body []byte, contentType string, err error)
}

func NewDownloader(client httpGetter, dir string) *Downloader {
	return &Downloader{
		client: client,
		dir:    dir,
		seen:   make(map[string]string),
	}
}

// DownloadAndStore fetches imageURL and writes it under a filename derived
// from eventKey, so re-crawls of one event converge on a single file even
// when the upstream image URL changes. Returns "" on any failure; image
// problems never block the event itself.
func (d *Downloader) DownloadAndStore(ctx context.Context, imageURL, eventKey string) string {
	if imageURL == "" || eventKey == "" {
		return ""
	}

	cacheKey := imageURL + "|" + eventKey
	d.mu.Lock()
	if path, ok := d.seen[cacheKey]; ok {
		d.mu.Unlock()
		return path
	}
	d.mu.Unlock()

	path, err := d.download(ctx, imageURL, eventKey)
	if err != nil {
		slog.Debug("image download failed", "url", imageURL, "error", err)
		return ""
	}

	d.mu.Lock()
	d.seen[cacheKey] = path
	d.mu.Unlock()
	return path
}

func (d *Downloader) download(ctx context.Context, imageURL, eventKey string) (string, error) {
	sum := sha1.Sum([]byte(eventKey))
	stem := hex.EncodeToString(sum[:])[:20]

	// Skip the download when a previous run already stored this event's image.
	if existing := d.findExisting(stem); existing != "" {
		return existing, nil
	}

	body, contentType, err := d.client.GetRaw(ctx, imageURL)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty body")
	}

	// Trust the bytes over the header: sniff and correct the extension.
	sniffed := http.DetectContentType(body)
	ext, ok := extByType[sniffed]
	if !ok {
		ext, ok = extByType[mediaType(contentType)]
		if !ok {
			return "", fmt.Errorf("not an image: sniffed %q, header %q", sniffed, contentType)
		}
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	path := filepath.Join(d.dir, stem+ext)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

func (d *Downloader) findExisting(stem string) string {
	for _, ext := range extByType {
		path := filepath.Join(d.dir, stem+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func mediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
