package textutil

import (
	"regexp"
	"strings"
)

// Стоп-слова: событие отбрасывается, если встречается хотя бы одно.
// Matching is a loose substring over hyphen/space-normalized text, so
// "курс" also catches "онлайн-курс". That looseness is intentional.
var stopWords = []string{
	"мастер-класс",
	"мастер класс",
	"обучение",
	"вебинар",
	"тренинг",
	"курс",
	"семинар",
	"лекция",
	"конференция онлайн",
	"онлайн-конференция",
	"воркшоп",
	"хакатон",
}

// Ключевые слова B2B-событий: хотя бы одно должно присутствовать.
var b2bKeywords = []string{
	"выставка",
	"форум",
	"стенд",
	"экспонент",
	"b2b",
	"экспозиция",
	"ярмарка",
	"expo",
	"exhibition",
	"trade show",
	"trade fair",
	"саммит",
	"конгресс",
}

// Words that close out exhibition titles ("Astana Mining Week" etc).
var exhibitionSuffixes = []string{
	"show", "fair", "week", "summit", "congress", "symposium",
}

type industry struct {
	name     string
	keywords []string
}

// Scoring order doubles as the tie-break: on equal keyword hits the earlier
// industry wins.
var industries = []industry{
	{"IT", []string{"it", "digital", "цифров", "технолог", "софт", "программ", "данных", "кибер", "финтех", "fintech", "стартап", "startup", "телеком"}},
	{"Агро", []string{"агро", "сельск", "фермер", "животновод", "растениевод", "food", "продовольств", "пищев"}},
	{"Медицина", []string{"медицин", "здравоохран", "фарма", "стоматолог", "клиник", "health", "medical"}},
	{"Строительство", []string{"строитель", "недвижим", "архитектур", "интерьер", "build", "construction"}},
	{"Энергетика", []string{"энерг", "нефт", "газ", "электро", "power", "oil", "gas", "атом"}},
	{"Транспорт", []string{"транспорт", "логистик", "перевозк", "авто", "жд", "transport", "logistics"}},
	{"Туризм", []string{"туризм", "туристическ", "отел", "гостинич", "travel", "tourism", "horeca"}},
	{"Образование", []string{"образован", "университет", "школ", "студент", "education"}},
	{"Финансы", []string{"финанс", "банк", "инвест", "страхов", "finance", "banking"}},
	{"Производство", []string{"производств", "промышлен", "машиностро", "металл", "оборудован", "manufactur", "industrial", "mining", "горнодобыв"}},
	{"Торговля", []string{"торгов", "ритейл", "retail", "fmcg", "franchise", "франшиз", "e-commerce"}},
}

// IndustryOther is returned when no industry keyword matches at all.
const IndustryOther = "Другое"

var (
	hyphenSpace = regexp.MustCompile(`[-\s]+`)
	titleYearRe = regexp.MustCompile(`\b20[2-5]\d\b`)
)

func normalizeLoose(s string) string {
	return strings.TrimSpace(hyphenSpace.ReplaceAllString(strings.ToLower(s), " "))
}

// ContainsStopWord reports whether text contains any configured stop word.
// Both sides are lowercased with hyphens/whitespace collapsed to single
// spaces, and the check is a plain substring: compound tokens match too.
func ContainsStopWord(text string) bool {
	if text == "" {
		return false
	}
	norm := normalizeLoose(text)
	for _, sw := range stopWords {
		if strings.Contains(norm, normalizeLoose(sw)) {
			return true
		}
	}
	return false
}

// IsRelevant decides whether a title/description pair looks like a B2B
// exhibition. Stop words veto everything else.
func IsRelevant(title, description string) bool {
	full := title + " " + description
	if ContainsStopWord(full) {
		return false
	}

	norm := normalizeLoose(full)
	for _, kw := range b2bKeywords {
		if strings.Contains(norm, normalizeLoose(kw)) {
			return true
		}
	}

	// Exhibition titles routinely carry the edition year.
	if titleYearRe.MatchString(title) {
		return true
	}

	titleNorm := normalizeLoose(title)
	for _, suf := range exhibitionSuffixes {
		if strings.Contains(titleNorm, suf) {
			return true
		}
	}
	return false
}

// InferIndustry scores every industry by keyword hits over the concatenated
// lowercase text and returns the best one, or IndustryOther when nothing
// matched. Ties resolve to the first industry in declaration order.
func InferIndustry(title, description string) string {
	norm := normalizeLoose(title + " " + description)

	best := IndustryOther
	bestScore := 0
	for _, ind := range industries {
		score := 0
		for _, kw := range ind.keywords {
			if strings.Contains(norm, kw) {
				score++
			}
		}
		if score > bestScore {
			best = ind.name
			bestScore = score
		}
	}
	return best
}
