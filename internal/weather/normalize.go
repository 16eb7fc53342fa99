package weather

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Multi-word names whose conventional casing is not plain title case.
var specialCities = map[string]string{
	"new york":       "New York",
	"los angeles":    "Los Angeles",
	"rio de janeiro": "Rio de Janeiro",
}

// NormalizeCity trims and title-cases a user supplied city name. It returns
// the empty string when nothing is left after trimming. It is safe for
// concurrent use: a Caser holds state, so each call builds its own.
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return ""
	}
	if special, ok := specialCities[strings.ToLower(city)]; ok {
		return special
	}
	return cases.Title(language.Und).String(city)
}
