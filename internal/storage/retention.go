package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/metrics"
)

// sweepCutoff is the oldest start date still retained.
func sweepCutoff(now time.Time, retentionDays int) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

// expired reports whether an event's start date is past the cutoff. Undated
// events are never swept; they may still be upcoming.
func expired(start *time.Time, cutoff time.Time) bool {
	return start != nil && start.Before(cutoff)
}

// SweepExpired deletes events whose start date passed more than
// retentionDays ago, together with their feedback and delivery rows and any
// locally stored image files.
func (s *Store) SweepExpired(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := sweepCutoff(time.Now(), retentionDays)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(image_url, ''), start_date FROM events
		 WHERE start_date IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("select dated events: %w", err)
	}

	var ids []int64
	var imagePaths []string
	for rows.Next() {
		var id int64
		var img string
		var start sql.NullTime
		if err := rows.Scan(&id, &img, &start); err != nil {
			rows.Close()
			return 0, err
		}
		if !expired(timePtr(start), cutoff) {
			continue
		}
		ids = append(ids, id)
		imagePaths = append(imagePaths, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sweep: %w", err)
	}
	defer tx.Rollback()

	// Dependent rows first: feedbacks and deliveries reference events.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM feedbacks WHERE event_id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("delete feedbacks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_events WHERE event_id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("delete deliveries: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sweep: %w", err)
	}

	deleted, _ := res.RowsAffected()
	metrics.Global.IncrementEventsSwept(deleted)

	removeLocalImages(imagePaths)

	slog.Info("retention sweep complete", "deleted", deleted, "cutoff", cutoff.Format("2006-01-02"))
	return deleted, nil
}

// removeLocalImages deletes image files stored on disk. Remote URLs and the
// placeholder are skipped; a file already gone is not an error.
func removeLocalImages(paths []string) {
	for _, p := range paths {
		if p == "" || p == event.PlaceholderImage || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not remove image file", "path", p, "error", err)
		}
	}
}
