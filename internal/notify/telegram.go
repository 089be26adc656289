// Package notify delivers freshly saved events to subscribed Telegram users
// through the Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/metrics"
	"github.com/activat/b2b-monitor/internal/storage"
)

const (
	apiBase    = "https://api.telegram.org"
	maxRetries = 3

	// anyCity is the wildcard value the bot stores when a user subscribes
	// to all cities.
	anyCity = "Все города"
)

// Preferences is the user's subscription filter, stored as JSONB. Empty
// slices mean no restriction on that axis.
type Preferences struct {
	Countries  []string `json:"countries"`
	Industries []string `json:"industries"`
	Cities     []string `json:"cities"`
}

type subscriberStore interface {
	ActiveSubscribers(ctx context.Context) ([]storage.Subscriber, error)
	WasSent(ctx context.Context, userID, eventID int64) (bool, error)
	HasNegativeFeedback(ctx context.Context, userID, eventID int64) (bool, error)
	MarkSent(ctx context.Context, userID, eventID int64) error
}

type Notifier struct {
	token  string
	store  subscriberStore
	client *http.Client
}

func New(token string, store subscriberStore) *Notifier {
	return &Notifier{
		token:  token,
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// NotifyNew sends each saved event to every matching subscriber who has not
// received it before. Delivery failures are logged per user and never stop
// the loop.
func (n *Notifier) NotifyNew(ctx context.Context, events []event.Event) error {
	if n.token == "" || len(events) == 0 {
		return nil
	}

	subs, err := n.store.ActiveSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	for _, e := range events {
		for _, sub := range subs {
			if err := n.notifyOne(ctx, sub, e); err != nil {
				slog.Warn("notification failed", "user", sub.TelegramID, "event", e.ID, "error", err)
			}
		}
	}
	return nil
}

func (n *Notifier) notifyOne(ctx context.Context, sub storage.Subscriber, e event.Event) error {
	var prefs Preferences
	if len(sub.Prefs) > 0 {
		if err := json.Unmarshal(sub.Prefs, &prefs); err != nil {
			slog.Warn("bad preferences json, treating as match-all", "user", sub.TelegramID, "error", err)
		}
	}
	if !matchesPreferences(prefs, e) {
		return nil
	}

	sent, err := n.store.WasSent(ctx, sub.ID, e.ID)
	if err != nil || sent {
		return err
	}
	negative, err := n.store.HasNegativeFeedback(ctx, sub.ID, e.ID)
	if err != nil || negative {
		return err
	}

	if err := n.sendMessage(ctx, sub.TelegramID, formatEventMessage(e), e.URL); err != nil {
		return err
	}
	metrics.Global.IncrementNotificationsSent()
	return n.store.MarkSent(ctx, sub.ID, e.ID)
}

// matchesPreferences applies the user's filter. Each non-empty axis must
// match; the city axis accepts the wildcard value.
func matchesPreferences(p Preferences, e event.Event) bool {
	if len(p.Countries) > 0 && !containsFold(p.Countries, e.Country) {
		return false
	}
	if len(p.Industries) > 0 && !containsFold(p.Industries, e.Industry) {
		return false
	}
	if len(p.Cities) > 0 && !containsFold(p.Cities, anyCity) && !containsFold(p.Cities, e.City) {
		return false
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// formatEventMessage renders the HTML notification card.
func formatEventMessage(e event.Event) string {
	var b strings.Builder

	title := e.Name
	if title == "" {
		title = e.Title
	}
	fmt.Fprintf(&b, "📢 <b>%s</b>\n", html.EscapeString(title))

	if e.StartDate != nil {
		b.WriteString("\n📅 " + e.StartDate.Format("02.01.2006"))
		if e.EndDate != nil && !e.EndDate.Equal(*e.StartDate) {
			b.WriteString(" - " + e.EndDate.Format("02.01.2006"))
		}
	}
	if e.City != "" {
		loc := e.City
		if e.Country != "" {
			loc += ", " + e.Country
		}
		b.WriteString("\n📍 " + html.EscapeString(loc))
	}
	if e.Place != "" {
		b.WriteString("\n🏛 " + html.EscapeString(e.Place))
	}
	if e.Industry != "" {
		b.WriteString("\n🏷 " + html.EscapeString(e.Industry))
	}
	if e.Description != "" {
		b.WriteString("\n\n" + html.EscapeString(e.Description))
	}
	return b.String()
}

// sendMessage posts one message with an inline URL button, retrying with
// exponential backoff.
func (n *Notifier) sendMessage(ctx context.Context, chatID int64, text, eventURL string) error {
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if eventURL != "" {
		payload["reply_markup"] = map[string]interface{}{
			"inline_keyboard": [][]map[string]string{
				{{"text": "🔗 Открыть сайт", "url": eventURL}},
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = n.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		slog.Debug("telegram send failed", "attempt", attempt, "error", lastErr)
		if attempt < maxRetries {
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("send after %d attempts: %w", maxRetries, lastErr)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
