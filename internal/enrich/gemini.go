package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/activat/b2b-monitor/internal/cache"
	"github.com/activat/b2b-monitor/internal/event"
	"github.com/activat/b2b-monitor/internal/metrics"
	"github.com/activat/b2b-monitor/internal/ratelimit"
)

const (
	geminiModel    = "gemini-1.5-flash"
	maxPromptChars = 4000
	enrichCacheTTL = 72 * time.Hour
)

// Gemini asks the model to produce the presentation fields as strict JSON.
// Every failure mode (budget exhausted, API error, unparseable reply)
// degrades to the local strategy for that record.
type Gemini struct {
	client *genai.Client
	local  *Local
	budget *ratelimit.AIBudget
	cache  *cache.Cache
}

func NewGemini(apiKey string, maxWords, maxRequests int) (*Gemini, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		local:  NewLocal(maxWords),
		budget: ratelimit.NewAIBudget(maxRequests),
		cache:  cache.New(),
	}, nil
}

func (g *Gemini) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// BudgetStats exposes the daily budget counters for the monitoring endpoint.
func (g *Gemini) BudgetStats() map[string]interface{} {
	return g.budget.Stats()
}

func (g *Gemini) Enrich(ctx context.Context, c event.Candidate) Result {
	fallback := g.local.Enrich(ctx, c)

	key := g.cache.GenerateKey(c.Title, c.Description)
	if cached, ok := g.cache.Get(key); ok {
		if res, ok := cached.(Result); ok {
			g.budget.RecordCacheHit()
			return res
		}
	}

	if !g.budget.CanUse() {
		metrics.Global.IncrementEnrichmentFallbacks()
		return fallback
	}

	res, err := g.generate(ctx, c)
	if err != nil {
		slog.Warn("gemini enrichment failed, using local", "title", c.Title, "error", err)
		metrics.Global.IncrementEnrichmentFallbacks()
		return fallback
	}
	metrics.Global.IncrementEnrichmentCalls()

	res = mergeWithFallback(res, fallback, g.local.MaxWords)
	g.cache.Set(key, res, enrichCacheTTL)
	return res
}

func (g *Gemini) generate(ctx context.Context, c event.Candidate) (Result, error) {
	if err := g.budget.Use(); err != nil {
		return Result{}, err
	}

	model := g.client.GenerativeModel(geminiModel)

	desc := strings.Join(strings.Fields(c.Description), " ")
	if utf8.RuneCountInString(desc) > maxPromptChars {
		desc = string([]rune(desc)[:maxPromptChars])
	}

	prompt := fmt.Sprintf(`Ты помощник, который готовит карточки деловых мероприятий.

МЕРОПРИЯТИЕ:
Название: %s
Описание: %s
Место: %s

ЗАДАЧА: верни СТРОГО один JSON-объект без пояснений и без markdown, с полями:
{"name": "краткое название без года и слоганов",
 "title": "полное название",
 "short_description": "краткое описание до 2-3 предложений, по-русски",
 "place": "площадка проведения, если известна, иначе пустая строка",
 "date": "дата в формате YYYY-MM-DD, если указана в тексте, иначе пустая строка"}

Не выдумывай факты: если данных нет, оставляй поле пустым.`, c.Title, desc, c.Place)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("empty gemini response")
	}

	raw := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return parseGeminiJSON(raw)
}

// parseGeminiJSON extracts the JSON object from the reply, tolerating the
// ```json fences the model adds despite instructions.
func parseGeminiJSON(raw string) (Result, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in reply: %.120q", raw)
	}

	var res Result
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return Result{}, fmt.Errorf("decode reply: %w", err)
	}
	return res, nil
}

// mergeWithFallback fills fields the model left empty from the local result
// and re-applies the word budget so a verbose model reply cannot bypass it.
func mergeWithFallback(res, fallback Result, maxWords int) Result {
	if strings.TrimSpace(res.Name) == "" {
		res.Name = fallback.Name
	}
	if strings.TrimSpace(res.Title) == "" {
		res.Title = fallback.Title
	}
	if strings.TrimSpace(res.ShortDescription) == "" {
		res.ShortDescription = fallback.ShortDescription
	} else {
		res.ShortDescription = TruncateDescription(res.ShortDescription, maxWords)
	}
	if strings.TrimSpace(res.Place) == "" {
		res.Place = fallback.Place
	}
	return res
}
