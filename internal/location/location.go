// Package location resolves free text to a city and country using a static
// gazetteer of city-name variants (native script, Latin transliteration,
// older colloquial names).
package location

import "strings"

// City is one gazetteer entry. Variants are matched as lowercase substrings.
type City struct {
	Name     string
	Country  string
	Variants []string
}

// Gazetteer lists target-region cities first, then cities of non-target
// countries that exist only so the country filter can throw their events
// away. Order matters: ambiguous text resolves to the first matching entry.
// That tie-break is deterministic but essentially arbitrary.
var Gazetteer = []City{
	{"Алматы", "Казахстан", []string{"алматы", "almaty", "алма-ата", "алма ата"}},
	{"Астана", "Казахстан", []string{"астана", "astana", "нур-султан", "нурсултан", "nur-sultan"}},
	{"Шымкент", "Казахстан", []string{"шымкент", "shymkent", "чимкент"}},
	{"Караганда", "Казахстан", []string{"караганда", "караганды", "karaganda"}},
	{"Актобе", "Казахстан", []string{"актобе", "aktobe", "актюбинск"}},
	{"Атырау", "Казахстан", []string{"атырау", "atyrau", "гурьев"}},
	{"Актау", "Казахстан", []string{"актау", "aktau"}},
	{"Павлодар", "Казахстан", []string{"павлодар", "pavlodar"}},
	{"Тараз", "Казахстан", []string{"тараз", "taraz", "джамбул"}},
	{"Усть-Каменогорск", "Казахстан", []string{"усть-каменогорск", "усть каменогорск", "оскемен", "oskemen"}},
	{"Костанай", "Казахстан", []string{"костанай", "кустанай", "kostanay"}},
	{"Кызылорда", "Казахстан", []string{"кызылорда", "kyzylorda"}},
	{"Петропавловск", "Казахстан", []string{"петропавловск", "petropavl"}},
	{"Семей", "Казахстан", []string{"семей", "семипалатинск", "semey"}},
	{"Туркестан", "Казахстан", []string{"туркестан", "turkistan"}},
	{"Уральск", "Казахстан", []string{"уральск", "орал", "uralsk"}},
	{"Ташкент", "Узбекистан", []string{"ташкент", "tashkent", "toshkent"}},
	{"Самарканд", "Узбекистан", []string{"самарканд", "samarkand"}},
	{"Бишкек", "Кыргызстан", []string{"бишкек", "bishkek", "фрунзе"}},
	{"Ереван", "Армения", []string{"ереван", "yerevan", "эривань"}},
	{"Баку", "Азербайджан", []string{"баку", "baku", "bakı"}},
	{"Тбилиси", "Грузия", []string{"тбилиси", "tbilisi"}},

	// Non-target cities, kept so their events can be filtered out.
	{"Москва", "Россия", []string{"москва", "moscow", "москве"}},
	{"Санкт-Петербург", "Россия", []string{"санкт-петербург", "петербург", "st. petersburg", "спб"}},
	{"Екатеринбург", "Россия", []string{"екатеринбург", "yekaterinburg"}},
	{"Казань", "Россия", []string{"казань", "kazan"}},
	{"Новосибирск", "Россия", []string{"новосибирск", "novosibirsk"}},
	{"Минск", "Беларусь", []string{"минск", "minsk"}},
	{"Дубай", "ОАЭ", []string{"дубай", "dubai"}},
	{"Стамбул", "Турция", []string{"стамбул", "istanbul"}},
}

// countryKeywords maps country-name fragments to the canonical country.
// Checked before city variants in InferCountryFromText, in order.
var countryKeywords = []struct {
	keyword string
	country string
}{
	{"казахстан", "Казахстан"},
	{"kazakhstan", "Казахстан"},
	{"узбекистан", "Узбекистан"},
	{"uzbekistan", "Узбекистан"},
	{"кыргызстан", "Кыргызстан"},
	{"киргиз", "Кыргызстан"},
	{"kyrgyz", "Кыргызстан"},
	{"армени", "Армения"},
	{"armenia", "Армения"},
	{"азербайджан", "Азербайджан"},
	{"azerbaijan", "Азербайджан"},
	{"грузи", "Грузия"},
	{"georgia", "Грузия"},
	{"росси", "Россия"},
	{"russia", "Россия"},
	{"беларус", "Беларусь"},
	{"belarus", "Беларусь"},
	{"турци", "Турция"},
	{"turkey", "Турция"},
	{"эмират", "ОАЭ"},
	{"uae", "ОАЭ"},
}

// ExtractCity returns the first gazetteer city any of whose variants occurs
// in the lowercased text, or "" when nothing matches.
func ExtractCity(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, c := range Gazetteer {
		for _, v := range c.Variants {
			if strings.Contains(lower, v) {
				return c.Name
			}
		}
	}
	return ""
}

// CountryForCity returns the country of a canonical gazetteer city name.
func CountryForCity(city string) string {
	for _, c := range Gazetteer {
		if c.Name == city {
			return c.Country
		}
	}
	return ""
}

// InferCountryFromText resolves a country from free text: explicit country
// keywords first, then city variants. Returns "" when nothing matches.
func InferCountryFromText(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, ck := range countryKeywords {
		if strings.Contains(lower, ck.keyword) {
			return ck.country
		}
	}
	if city := ExtractCity(text); city != "" {
		return CountryForCity(city)
	}
	return ""
}
