package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CategoryCode is a provider-neutral point-of-interest category.
type CategoryCode = string

const (
	CategoryCafe       CategoryCode = "cafe"
	CategoryRestaurant CategoryCode = "restaurant"
	CategoryHotel      CategoryCode = "hotel"
	CategoryBank       CategoryCode = "bank"
	CategoryATM        CategoryCode = "atm"
	CategoryHospital   CategoryCode = "hospital"
	CategorySchool     CategoryCode = "school"
	CategoryStore      CategoryCode = "store"
	CategoryUniversity CategoryCode = "university"
	CategoryPark       CategoryCode = "park"
	CategoryGasStation CategoryCode = "gasStation"
)

// CategoryOther labels places the provider did not categorize.
const CategoryOther = "Other"

var categoryLabels = map[CategoryCode]string{
	CategoryCafe:       "Cafe",
	CategoryRestaurant: "Restaurant",
	CategoryHotel:      "Hotel",
	CategoryBank:       "Bank",
	CategoryATM:        "ATM",
	CategoryHospital:   "Hospital",
	CategorySchool:     "School",
	CategoryStore:      "Store",
	CategoryUniversity: "University",
	CategoryPark:       "Park",
	CategoryGasStation: "Gas Station",
}

// CategoryLabel maps a category code to its display label. Codes outside the
// table are humanized from their own spelling, e.g. "MKPOICategoryFitnessCenter"
// and "fitness_center" both become "Fitness Center".
func CategoryLabel(code CategoryCode) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return CategoryOther
	}
	if label, ok := categoryLabels[code]; ok {
		return label
	}
	return humanizeCategory(code)
}

const providerPrefix = "mkpoicategory"

func humanizeCategory(code string) string {
	if i := strings.LastIndex(code, "."); i >= 0 {
		code = code[i+1:]
	}
	if len(code) >= len(providerPrefix) && strings.EqualFold(code[:len(providerPrefix)], providerPrefix) {
		code = code[len(providerPrefix):]
	}

	words := make([]string, 0, 4)
	for _, w := range splitWords(code) {
		if strings.EqualFold(w, "category") {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return CategoryOther
	}

	// Casers keep state; one per call.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// splitWords breaks on separators and camelCase boundaries. A run of
// capitals is kept together as an acronym ("EVCharger" -> "EV", "Charger").
func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	start := -1

	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}

	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start >= 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush(i)
			}
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(runes))
	return words
}
