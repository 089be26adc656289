// Package fetch is the shared outbound HTTP client: browser-like headers, a
// bounded connection pool, per-request timeout, politeness rate limiting and
// charset-aware decoding for legacy-encoded sources.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/activat/b2b-monitor/internal/retry"
)

const maxBodySize = 10 << 20 // 10 MB

type Options struct {
	Timeout           time.Duration
	MaxConnsPerHost   int
	MaxIdleConns      int
	RequestsPerSecond float64
	UserAgent         string
	RetryAttempts     int
	RetryDelay        time.Duration
}

type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	retryCfg  retry.Config
}

func New(opts Options) *Client {
	transport := &http.Transport{
		MaxConnsPerHost:   opts.MaxConnsPerHost,
		MaxIdleConns:      opts.MaxIdleConns,
		IdleConnTimeout:   90 * time.Second,
		ForceAttemptHTTP2: true,
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: opts.UserAgent,
		retryCfg: retry.Config{
			MaxAttempts: max(opts.RetryAttempts, 1),
			Delay:       opts.RetryDelay,
			Backoff:     true,
		},
	}
}

// Get downloads a page and returns its body decoded to UTF-8. Network errors
// are retried; a 403 is retried once more with the alternate Referer when
// one is configured for the source.
func (c *Client) Get(ctx context.Context, url, referer string) ([]byte, error) {
	var body []byte
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		var err error
		body, err = c.getOnce(ctx, url, "")
		if isForbidden(err) && referer != "" {
			slog.Debug("got 403, retrying with alternate referer", "url", url, "referer", referer)
			body, err = c.getOnce(ctx, url, referer)
		}
		return err
	})
	return body, err
}

// GetRaw downloads a resource without charset decoding (images) and returns
// the body plus the Content-Type header.
func (c *Client) GetRaw(ctx context.Context, url string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := c.newRequest(ctx, url, "")
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &statusError{url: url, code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("read body %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) getOnce(ctx context.Context, url, referer string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, url, referer)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{url: url, code: resp.StatusCode}
	}

	// Some of the older .kz/.su sources still serve windows-1251.
	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("charset reader %s: %w", url, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, url, referer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return req, nil
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.url, e.code)
}

func isForbidden(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusForbidden
}
