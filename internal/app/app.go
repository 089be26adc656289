// Package app wires the pipeline together and runs the daily cycle:
// sweep, scrape, enrich, store, export, notify.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/activat/b2b-monitor/internal/aggregator"
	"github.com/activat/b2b-monitor/internal/config"
	"github.com/activat/b2b-monitor/internal/csvexport"
	"github.com/activat/b2b-monitor/internal/enrich"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/fetch"
	"github.com/activat/b2b-monitor/internal/images"
	"github.com/activat/b2b-monitor/internal/metrics"
	"github.com/activat/b2b-monitor/internal/notify"
	"github.com/activat/b2b-monitor/internal/sources"
	"github.com/activat/b2b-monitor/internal/storage"
)

type App struct {
	cfg        *config.Config
	store      *storage.Store
	aggregator *aggregator.Aggregator
	enricher   enrich.Enricher
	downloader *images.Downloader
	notifier   *notify.Notifier
}

func New(cfg *config.Config, store *storage.Store, enricher enrich.Enricher) *App {
	client := fetch.New(fetch.Options{
		Timeout:           cfg.RequestTimeout,
		MaxConnsPerHost:   cfg.MaxConnsPerHost,
		MaxIdleConns:      cfg.MaxIdleConns,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.UserAgent,
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryDelay,
	})

	srcs := sources.Build(cfg.Sources, client, cfg.MaxPerSource)

	return &App{
		cfg:        cfg,
		store:      store,
		aggregator: aggregator.New(cfg, srcs),
		enricher:   enricher,
		downloader: images.NewDownloader(client, cfg.ImageDir),
		notifier:   notify.New(cfg.TelegramToken, store),
	}
}

// RunCycle executes one full pipeline pass. A panic in any stage is
// recovered so a bad page cannot take the scheduler down.
func (a *App) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			slog.Error("cycle panicked", "panic", r)
			metrics.Global.SetError(fmt.Sprintf("panic: %v", r))
		}
	}()

	start := time.Now()
	slog.Info("cycle started")

	if _, err := a.store.SweepExpired(ctx, a.cfg.RetentionDays); err != nil {
		// Sweep problems should not block the crawl.
		slog.Error("retention sweep failed", "error", err)
	}

	cands := a.aggregator.Run(ctx)

	saved := make([]event.Event, 0, len(cands))
	for _, c := range cands {
		e, verdict, err := a.processCandidate(ctx, c)
		if err != nil {
			slog.Error("candidate failed", "title", c.Title, "error", err)
			continue
		}
		if verdict == storage.VerdictSaved {
			saved = append(saved, e)
		}
	}

	if err := csvexport.Export(ctx, a.store, a.cfg.CSVPath); err != nil {
		slog.Error("csv export failed", "error", err)
	}

	if err := a.notifier.NotifyNew(ctx, saved); err != nil {
		slog.Error("notifications failed", "error", err)
	}

	elapsed := time.Since(start)
	metrics.Global.RecordCycleTime(elapsed)
	metrics.Global.SetLastRun()
	slog.Info("cycle finished", "candidates", len(cands), "new_events", len(saved), "elapsed", elapsed.Round(time.Second))
	return nil
}

// processCandidate enriches one candidate, localizes its image and hands it
// to the storage gatekeeper.
func (a *App) processCandidate(ctx context.Context, c event.Candidate) (event.Event, storage.Verdict, error) {
	res := a.enricher.Enrich(ctx, c)

	e := event.Event{
		Name:        res.Name,
		Title:       c.Title,
		Description: res.ShortDescription,
		City:        c.City,
		Place:       res.Place,
		ImageURL:    c.ImageURL,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		URL:         c.URL,
		Source:      c.Source,
		Country:     c.Country,
		Industry:    c.Industry,
	}
	if res.Title != "" {
		e.Title = res.Title
	}
	if e.Description == "" {
		e.Description = c.Description
	}
	if e.StartDate == nil {
		// The page carried no parseable date text; the model may have found
		// one inside the description.
		e.StartDate = res.ParsedDate()
	}

	if c.ImageURL != "" && c.ImageURL != event.PlaceholderImage {
		if path := a.downloader.DownloadAndStore(ctx, c.ImageURL, c.Key()); path != "" {
			e.ImageURL = path
			metrics.Global.IncrementImagesDownloaded()
		} else {
			metrics.Global.IncrementImageFailures()
		}
	}

	e.EventHash = event.ComputeHash(e.Title, e.Description, e.StartDate)
	verdict, err := a.store.Admit(ctx, &e)
	if err != nil {
		return e, verdict, err
	}
	slog.Debug("candidate processed", "title", e.Title, "verdict", verdict.String())
	return e, verdict, nil
}
