package summary

import (
	"regexp"
	"strings"
	"time"
)

// ageYBP converts an age to years before present.
func ageYBP(unit string, age float64) (float64, bool) {
	switch {
	case unit == "Ga":
		return 1e9 * age, true
	case unit == "Ma":
		return 1e6 * age, true
	case strings.ToLower(unit) == "ka":
		return 1e3 * age, true
	case unit == "Years AD (+/-)", unit == "Years Cal AD (+/-)":
		return 1950 - age, true
	case unit == "Years BP", unit == "Years Cal BP":
		return age, true
	default:
		return 0, false
	}
}

// ageSpanYears converts an age uncertainty to years. Only the magnitude is
// scaled; calendar units carry no present offset.
func ageSpanYears(unit string, sigma float64) (float64, bool) {
	switch {
	case unit == "Ga":
		return 1e9 * sigma, true
	case unit == "Ma":
		return 1e6 * sigma, true
	case strings.ToLower(unit) == "ka":
		return 1e3 * sigma, true
	case unit == "Years AD (+/-)", unit == "Years Cal AD (+/-)", unit == "Years BP", unit == "Years Cal BP":
		return sigma, true
	default:
		return 0, false
	}
}

var yearOnly = regexp.MustCompile(`^\d{4}$`)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
}

// parseTimestamp accepts a bare four digit year or an ISO 8601 date/time.
// Times without a zone are read as UTC.
func parseTimestamp(value string) (time.Time, bool) {
	if yearOnly.MatchString(value) {
		t, err := time.Parse("2006", value)
		return t, err == nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dictionaryEntry = regexp.MustCompile(`\s*([^\[].+)\[(.+)\]\s*`)

// parseDictionary reads "key[value]:key[value]" cells. Colons inside brackets
// belong to the value, so URLs survive.
func parseDictionary(value string) []DictionaryEntry {
	var entries []DictionaryEntry
	for _, part := range splitOutsideBrackets(value, ':') {
		match := dictionaryEntry.FindStringSubmatch(part)
		if match == nil {
			continue
		}
		entries = append(entries, DictionaryEntry{Key: match[1], Value: match[2]})
	}
	return entries
}

func splitOutsideBrackets(value string, sep rune) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range value {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}

// splitList splits a colon-delimited list cell into trimmed, non-empty
// tokens, reading at most limit raw tokens when limit > 0.
func splitList(value string, limit int) []string {
	raw := strings.Split(value, ":")
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
