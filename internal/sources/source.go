// Package sources contains one adapter per exhibition site. Each adapter
// locates event-like fragments in that site's markup and emits raw candidate
// records; everything else (dedup, enrichment, persistence) happens
// downstream.
package sources

import (
	"context"
	"log/slog"

	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
)

// Source is one scraping target. Fetch returns raw candidates; an error
// means the whole source failed and contributes zero candidates; the
// caller logs it and moves on.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]event.Candidate, error)
}

// Build instantiates adapters for every configured source. Unknown adapter
// kinds are logged and skipped rather than failing startup.
func Build(cfgs []config.SourceConfig, client *fetch.Client, maxPerSource int) []Source {
	var srcs []Source
	for _, sc := range cfgs {
		switch sc.Adapter {
		case "iteca":
			srcs = append(srcs, &itecaSource{cfg: sc, client: client, limit: maxPerSource})
		case "kazexpo":
			srcs = append(srcs, &kazexpoSource{cfg: sc, client: client, limit: maxPerSource})
		case "jsonld":
			srcs = append(srcs, &jsonldSource{cfg: sc, client: client, limit: maxPerSource})
		case "embedded":
			srcs = append(srcs, &embeddedSource{cfg: sc, client: client, limit: maxPerSource})
		case "generic":
			srcs = append(srcs, &genericSource{cfg: sc, client: client, limit: maxPerSource})
		default:
			slog.Warn("unknown source adapter, skipping", "name", sc.Name, "adapter", sc.Adapter)
		}
	}
	return srcs
}
