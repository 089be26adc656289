// Package storage persists events, subscribers and feedback in PostgreSQL
// and owns the cross-run duplicate gatekeeper.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/activat/b2b-monitor/internal/event"
)

type Store struct {
	db *sql.DB

	similarityThreshold float64
	minSimilarDescLen   int
}

func New(connectionString string, similarityThreshold float64, minSimilarDescLen int) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:                  db,
		similarityThreshold: similarityThreshold,
		minSimilarDescLen:   minSimilarDescLen,
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	slog.Info("database connected")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255),
		title TEXT NOT NULL,
		description TEXT,
		city VARCHAR(100),
		place VARCHAR(255),
		image_url TEXT,
		start_date TIMESTAMP,
		end_date TIMESTAMP,
		url TEXT UNIQUE NOT NULL,
		source VARCHAR(100),
		country VARCHAR(100),
		industry VARCHAR(100),
		event_hash VARCHAR(32),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_events_hash ON events(event_hash);
	CREATE INDEX IF NOT EXISTS idx_events_start_date ON events(start_date);
	CREATE INDEX IF NOT EXISTS idx_events_country ON events(country);

	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		telegram_id BIGINT UNIQUE NOT NULL,
		username VARCHAR(255),
		preferences JSONB NOT NULL DEFAULT '{}',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS feedbacks (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		event_id INTEGER NOT NULL REFERENCES events(id),
		is_positive BOOLEAN NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_events (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		event_id INTEGER NOT NULL REFERENCES events(id),
		sent_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, event_id)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) insert(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (name, title, description, city, place, image_url,
			start_date, end_date, url, source, country, industry, event_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id, created_at
	`
	return s.db.QueryRowContext(ctx, query,
		e.Name, e.Title, e.Description, e.City, e.Place, e.ImageURL,
		nullTime(e.StartDate), nullTime(e.EndDate), e.URL, e.Source,
		e.Country, e.Industry, e.EventHash,
	).Scan(&e.ID, &e.CreatedAt)
}

// updateByURL refreshes a previously stored event in place. The row keeps
// its id and event_hash so subscribers who already received it are not
// notified again.
func (s *Store) updateByURL(ctx context.Context, e *event.Event) error {
	query := `
		UPDATE events
		SET name = $1, title = $2, description = $3, city = $4, place = $5,
			image_url = $6, start_date = $7, end_date = $8, source = $9,
			country = $10, industry = $11
		WHERE url = $12
		RETURNING id
	`
	return s.db.QueryRowContext(ctx, query,
		e.Name, e.Title, e.Description, e.City, e.Place, e.ImageURL,
		nullTime(e.StartDate), nullTime(e.EndDate), e.Source,
		e.Country, e.Industry, e.URL,
	).Scan(&e.ID)
}

func (s *Store) hashExists(ctx context.Context, hash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE event_hash = $1`, hash).Scan(&count)
	return count > 0, err
}

func (s *Store) urlExists(ctx context.Context, url string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE url = $1`, url).Scan(&count)
	return count > 0, err
}

// descriptions returns the stored descriptions long enough to take part in
// the similarity check.
func (s *Store) descriptions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT description FROM events WHERE LENGTH(description) >= $1`, s.minSimilarDescLen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descs []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, rows.Err()
}

// AllEvents returns every stored event ordered by start date, nulls last.
// This is the CSV snapshot query.
func (s *Store) AllEvents(ctx context.Context) ([]event.Event, error) {
	query := `
		SELECT id, COALESCE(name, ''), title, COALESCE(description, ''),
			COALESCE(city, ''), COALESCE(place, ''), COALESCE(image_url, ''),
			start_date, end_date, url, COALESCE(source, ''),
			COALESCE(country, ''), COALESCE(industry, ''),
			COALESCE(event_hash, ''), created_at
		FROM events
		ORDER BY start_date ASC NULLS LAST, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var start, end sql.NullTime
		if err := rows.Scan(&e.ID, &e.Name, &e.Title, &e.Description,
			&e.City, &e.Place, &e.ImageURL, &start, &end, &e.URL,
			&e.Source, &e.Country, &e.Industry, &e.EventHash, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.StartDate = timePtr(start)
		e.EndDate = timePtr(end)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Subscriber is a Telegram user who receives event notifications.
type Subscriber struct {
	ID         int64
	TelegramID int64
	Prefs      []byte // raw JSONB preferences
}

// ActiveSubscribers returns users with notifications enabled.
func (s *Store) ActiveSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, telegram_id, preferences FROM users WHERE is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.TelegramID, &sub.Prefs); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// WasSent reports whether the event was already delivered to the user.
func (s *Store) WasSent(ctx context.Context, userID, eventID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_events WHERE user_id = $1 AND event_id = $2`,
		userID, eventID).Scan(&count)
	return count > 0, err
}

// HasNegativeFeedback reports whether the user disliked this event before;
// such events are never re-sent even after an update.
func (s *Store) HasNegativeFeedback(ctx context.Context, userID, eventID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedbacks WHERE user_id = $1 AND event_id = $2 AND NOT is_positive`,
		userID, eventID).Scan(&count)
	return count > 0, err
}

// MarkSent records a delivery. Safe to call twice for the same pair.
func (s *Store) MarkSent(ctx context.Context, userID, eventID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_events (user_id, event_id, sent_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, event_id) DO NOTHING
	`, userID, eventID)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
