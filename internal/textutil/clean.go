// Package textutil holds the text normalization and keyword matching used by
// every source adapter and by the dedup funnel.
package textutil

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Trailing site names that get appended to titles for SEO. Matching is
// case-insensitive substring over the stripped tail.
var siteSuffixes = []string{
	"iteca",
	"kazexpo",
	"expocentr",
	"astana hub",
	"astanahub",
	"profit.kz",
	"worldexpo",
	"exposale",
	"vystavki",
	"выставки казахстана",
	"календарь выставок",
	"календарь событий",
	"главная",
}

// Tail-anchored boilerplate that sources append to descriptions. Order
// matters: each pattern is applied once, top to bottom.
var descTailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(читать далее|читать полностью|подробнее|узнать больше|read more|learn more)[\s.…»>]*$`),
	regexp.MustCompile(`(?i)(регистрация|зарегистрироваться|купить билет|book now|register now|get tickets)[\s.…»>]*$`),
	regexp.MustCompile(`(?i)главная\s*[/→>»].*$`),
	regexp.MustCompile(`(?i)поделиться[:\s].*$`),
}

var (
	wrapQuotes  = "«»\"'“”‘’"
	zeroWidth   = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u00a0", " ")
	suffixSplit = regexp.MustCompile(`\s+[-–—|]\s+`)
)

// CleanText collapses all whitespace and control characters to single spaces
// and trims the result. Idempotent.
func CleanText(s string) string {
	s = zeroWidth.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// CleanTitle normalizes an event title: trims wrapping quotes and strips a
// trailing " - Site Name" / " | Site Name" segment when the tail is a known
// site name. The strip runs at most twice so a double-suffixed title is
// handled without eating legitimate hyphenated event names.
func CleanTitle(s string) string {
	s = CleanText(s)
	s = strings.Trim(s, wrapQuotes)
	s = CleanText(s)

	for i := 0; i < 2; i++ {
		stripped, ok := stripSiteSuffix(s)
		if !ok {
			break
		}
		s = stripped
	}
	return strings.Trim(CleanText(s), wrapQuotes)
}

func stripSiteSuffix(s string) (string, bool) {
	locs := suffixSplit.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s, false
	}
	last := locs[len(locs)-1]
	tail := strings.ToLower(strings.TrimSpace(s[last[1]:]))
	if tail == "" {
		return s, false
	}
	for _, site := range siteSuffixes {
		if strings.Contains(tail, site) {
			return strings.TrimSpace(s[:last[0]]), true
		}
	}
	return s, false
}

// CleanDescription decodes HTML entities, strips trailing boilerplate
// phrases and breadcrumb tails, then collapses whitespace.
func CleanDescription(s string) string {
	s = html.UnescapeString(s)
	s = CleanText(s)
	for _, re := range descTailPatterns {
		s = strings.TrimSpace(re.ReplaceAllString(s, ""))
	}
	return CleanText(s)
}

// CleanURL unwraps the bot-internal "msg_url?url=" redirect wrapper, rejects
// javascript: and bare-fragment links (returns ""), and drops URL fragments.
func CleanURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if idx := strings.Index(s, "msg_url?url="); idx >= 0 {
		wrapped := s[idx+len("msg_url?url="):]
		if dec, err := url.QueryUnescape(wrapped); err == nil {
			s = dec
		} else {
			s = wrapped
		}
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "javascript:") || s == "#" || strings.HasPrefix(s, "#") {
		return ""
	}

	if idx := strings.Index(s, "#"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
