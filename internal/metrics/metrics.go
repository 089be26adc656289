package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CandidatesParsed     int64
	DuplicatesByURL      int64
	DuplicatesByTitle    int64
	DuplicatesBySimilar  int64
	DuplicatesRejected   int64 // gatekeeper rejections
	StopWordRejected     int64
	ImagesDownloaded     int64
	ImageFailures        int64
	EnrichmentCalls      int64
	EnrichmentFallbacks  int64
	EventsSaved          int64
	EventsUpdated        int64
	EventsSwept          int64
	NotificationsSent    int64
	SourceFailures       int64

	// Timings
	LastCycleTime    time.Duration
	AverageCycleTime time.Duration
	TotalCycleTime   time.Duration
	CycleCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) add(field *int64, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field += n
}

func (m *Metrics) IncrementCandidatesParsed(n int) { m.add(&m.CandidatesParsed, int64(n)) }
func (m *Metrics) IncrementDuplicatesByURL() { m.add(&m.DuplicatesByURL, 1) }
func (m *Metrics) IncrementDuplicatesByTitle() { m.add(&m.DuplicatesByTitle, 1) }
func (m *Metrics) IncrementDuplicatesBySimilar() { m.add(&m.DuplicatesBySimilar, 1) }
func (m *Metrics) IncrementDuplicatesRejected() { m.add(&m.DuplicatesRejected, 1) }
func (m *Metrics) IncrementStopWordRejected() { m.add(&m.StopWordRejected, 1) }
func (m *Metrics) IncrementImagesDownloaded() { m.add(&m.ImagesDownloaded, 1) }
func (m *Metrics) IncrementImageFailures() { m.add(&m.ImageFailures, 1) }
func (m *Metrics) IncrementEnrichmentCalls() { m.add(&m.EnrichmentCalls, 1) }
func (m *Metrics) IncrementEnrichmentFallbacks() { m.add(&m.EnrichmentFallbacks, 1) }
func (m *Metrics) IncrementEventsSaved() { m.add(&m.EventsSaved, 1) }
func (m *Metrics) IncrementEventsUpdated() { m.add(&m.EventsUpdated, 1) }
func (m *Metrics) IncrementEventsSwept(n int64) { m.add(&m.EventsSwept, n) }
func (m *Metrics) IncrementNotificationsSent() { m.add(&m.NotificationsSent, 1) }
func (m *Metrics) IncrementSourceFailures() { m.add(&m.SourceFailures, 1) }

func (m *Metrics) RecordCycleTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCycleTime = duration
	m.TotalCycleTime += duration
	m.CycleCount++

	if m.CycleCount > 0 {
		m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CycleCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"candidates_parsed":     m.CandidatesParsed,
		"duplicates_by_url":     m.DuplicatesByURL,
		"duplicates_by_title":   m.DuplicatesByTitle,
		"duplicates_by_similar": m.DuplicatesBySimilar,
		"duplicates_rejected":   m.DuplicatesRejected,
		"stop_word_rejected":    m.StopWordRejected,
		"images_downloaded":     m.ImagesDownloaded,
		"image_failures":        m.ImageFailures,
		"enrichment_calls":      m.EnrichmentCalls,
		"enrichment_fallbacks":  m.EnrichmentFallbacks,
		"events_saved":          m.EventsSaved,
		"events_updated":        m.EventsUpdated,
		"events_swept":          m.EventsSwept,
		"notifications_sent":    m.NotificationsSent,
		"source_failures":       m.SourceFailures,
		"last_cycle_time_ms":    m.LastCycleTime.Milliseconds(),
		"average_cycle_time_ms": m.AverageCycleTime.Milliseconds(),
		"last_run_time":         m.LastRunTime.Format(time.RFC3339),
		"last_error_time":       m.LastErrorTime.Format(time.RFC3339),
		"last_error":            m.LastError,
		"is_healthy":            m.IsHealthy,
	}
}
