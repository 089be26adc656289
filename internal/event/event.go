// Package event defines the candidate and persisted event records plus the
// content hash used as the primary duplicate key.
package event

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// PlaceholderImage is stored instead of an empty image reference so every
// consumer renders the same "no image" state.
const PlaceholderImage = "no_image"

// Candidate is an unpersisted, adapter-produced event awaiting enrichment
// and dedup admission. Title and URL are mandatory; URL is the provisional
// identity key until the content hash is computed.
type Candidate struct {
	Title       string
	Name        string
	Description string
	City        string
	Country     string
	Place       string
	StartDate   *time.Time
	EndDate     *time.Time
	URL         string
	Source      string
	ImageURL    string
	Industry    string
}

// Event is a persisted candidate.
type Event struct {
	ID          int64
	Name        string
	Title       string
	Description string
	City        string
	Place       string
	ImageURL    string
	StartDate   *time.Time
	EndDate     *time.Time
	URL         string
	Source      string
	Country     string
	Industry    string
	EventHash   string
	CreatedAt   time.Time
}

// ComputeHash fingerprints an event over its normalized title, description
// and start date. Normalization (lowercase, collapsed whitespace) makes
// case- or spacing-only variants of the same event collide.
func ComputeHash(title, description string, start *time.Time) string {
	dateStr := ""
	if start != nil {
		dateStr = start.Format("2006-01-02")
	}
	content := normalize(title) + "|" + normalize(description) + "|" + dateStr
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Key is the stable per-event key used for image filenames: the hash with
// the date left out, so a re-crawl that learns the date still converges on
// the same image file.
func (c Candidate) Key() string {
	sum := md5.Sum([]byte(normalize(c.Title) + "|" + c.Source))
	return hex.EncodeToString(sum[:])
}
