// Package dates parses the free-form date expressions found on exhibition
// sites: Russian month names in any declension, English month names, numeric
// forms, single dates and ranges.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// monthPrefixes maps a month-name prefix to its month. Prefixes cover the
// declined Russian forms ("марта", "мартовская") and English names. Lookup
// picks the longest prefix contained in the token.
var monthPrefixes = map[string]time.Month{
	"январ": time.January, "феврал": time.February, "март": time.March,
	"апрел": time.April, "мая": time.May, "май": time.May,
	"июн": time.June, "июл": time.July, "август": time.August,
	"сентябр": time.September, "октябр": time.October, "ноябр": time.November,
	"декабр": time.December,

	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

var prefixesByLength []string

func init() {
	for p := range monthPrefixes {
		prefixesByLength = append(prefixesByLength, p)
	}
	sort.Slice(prefixesByLength, func(i, j int) bool {
		if len(prefixesByLength[i]) != len(prefixesByLength[j]) {
			return len(prefixesByLength[i]) > len(prefixesByLength[j])
		}
		return prefixesByLength[i] < prefixesByLength[j]
	})
}

// monthFromToken resolves a word to a month via the longest configured
// prefix contained in it, or 0 when the token is not a month name.
func monthFromToken(token string) time.Month {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return 0
	}
	for _, p := range prefixesByLength {
		if strings.Contains(token, p) {
			return monthPrefixes[p]
		}
	}
	return 0
}

const dash = `[-–—]`

// Ordered pattern attempts. The first pattern that yields a valid date wins;
// results are never merged across patterns.
var (
	reFullNumericRange = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{4})\s*` + dash + `\s*(\d{1,2})[./](\d{1,2})[./](\d{4})`)
	reSharedYearRange  = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})\s*` + dash + `\s*(\d{1,2})[./](\d{1,2})[./](\d{4})`)
	reCrossMonthRange  = regexp.MustCompile(`(?i)(?:с|со|from)?\s*(\d{1,2})\s+([\p{L}]+)\s*(?:по|до|to|` + dash + `)\s*(\d{1,2})\s+([\p{L}]+)(?:\s+(\d{4}))?`)
	reSameMonthRange   = regexp.MustCompile(`(\d{1,2})\s*` + dash + `\s*(\d{1,2})\s+([\p{L}]+)(?:\s+(\d{4}))?`)
	reEnglishRange     = regexp.MustCompile(`(?i)([\p{L}]+)\s+(\d{1,2})\s*` + dash + `\s*(\d{1,2})(?:,)?(?:\s+(\d{4}))?`)
	reSingleFull       = regexp.MustCompile(`(\d{1,2})\s+([\p{L}]+)\s+(\d{4})`)
	reSingleNoYear     = regexp.MustCompile(`(\d{1,2})\s+([\p{L}]+)`)
	reISO              = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	reNumericDMY       = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
)

// Extract parses a free-form date or date-range expression. Either or both
// results may be nil. A missing year defaults to the current calendar year,
// which can misattribute dates parsed near a year boundary; that ambiguity
// is accepted rather than guessed around.
func Extract(text string) (start, end *time.Time) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	now := time.Now()

	if m := reFullNumericRange.FindStringSubmatch(text); m != nil {
		s := makeDate(m[3], m[2], m[1])
		e := makeDate(m[6], m[5], m[4])
		if s != nil {
			return s, e
		}
	}

	if m := reSharedYearRange.FindStringSubmatch(text); m != nil {
		s := makeDate(m[5], m[2], m[1])
		e := makeDate(m[5], m[4], m[3])
		if s != nil {
			return s, e
		}
	}

	if m := reCrossMonthRange.FindStringSubmatch(text); m != nil {
		sm, em := monthFromToken(m[2]), monthFromToken(m[4])
		if sm != 0 && em != 0 {
			year := yearOr(m[5], now)
			s := date(year, sm, m[1])
			e := date(year, em, m[3])
			if s != nil {
				return s, e
			}
		}
	}

	if m := reSameMonthRange.FindStringSubmatch(text); m != nil {
		if mo := monthFromToken(m[3]); mo != 0 {
			year := yearOr(m[4], now)
			s := date(year, mo, m[1])
			e := date(year, mo, m[2])
			if s != nil {
				return s, e
			}
		}
	}

	if m := reEnglishRange.FindStringSubmatch(text); m != nil {
		if mo := monthFromToken(m[1]); mo != 0 {
			year := yearOr(m[4], now)
			s := date(year, mo, m[2])
			e := date(year, mo, m[3])
			if s != nil {
				return s, e
			}
		}
	}

	if m := reSingleFull.FindStringSubmatch(text); m != nil {
		if mo := monthFromToken(m[2]); mo != 0 {
			if s := date(atoi(m[3]), mo, m[1]); s != nil {
				return s, nil
			}
		}
	}

	if m := reSingleNoYear.FindStringSubmatch(text); m != nil {
		if mo := monthFromToken(m[2]); mo != 0 {
			if s := date(now.Year(), mo, m[1]); s != nil {
				return s, nil
			}
		}
	}

	if m := reISO.FindStringSubmatch(text); m != nil {
		if s := makeDate(m[1], m[2], m[3]); s != nil {
			return s, nil
		}
	}

	if m := reNumericDMY.FindStringSubmatch(text); m != nil {
		if s := makeDate(m[3], m[2], m[1]); s != nil {
			return s, nil
		}
	}

	return nil, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func yearOr(s string, now time.Time) int {
	if s == "" {
		return now.Year()
	}
	return atoi(s)
}

func makeDate(year, month, day string) *time.Time {
	m := atoi(month)
	if m < 1 || m > 12 {
		return nil
	}
	return date(atoi(year), time.Month(m), day)
}

func date(year int, month time.Month, day string) *time.Time {
	d := atoi(day)
	if d < 1 || d > 31 || year < 2000 || year > 2100 {
		return nil
	}
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		// Overflowed into the next month (e.g. 31 апреля).
		return nil
	}
	return &t
}
