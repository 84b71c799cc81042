package taxonomy

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// anyLocation is the sentinel an alias resolves to when the student has
// no location preference at all.
const anyLocation = "__ANY__"

// locationAliases maps lowercase location tokens to canonical country
// names, or to the no-preference sentinel.
var locationAliases = map[string]string{
	"uk":                       "United Kingdom",
	"united kingdom":           "United Kingdom",
	"u.k.":                     "United Kingdom",
	"gb":                       "United Kingdom",
	"great britain":            "United Kingdom",
	"england":                  "United Kingdom",
	"usa":                      "United States",
	"us":                       "United States",
	"u.s.":                     "United States",
	"united states":            "United States",
	"united states of america": "United States",
	"australia":                "Australia",
	"canada":                   "Canada",
	"germany":                  "Germany",
	"india":                    "India",
	"anywhere":                 anyLocation,
	"global":                   anyLocation,
}

// countryLikeRe is the heuristic for country names versus city/state
// tokens: starts with a letter, then at least three more alphabetic,
// space, hyphen or apostrophe characters.
var countryLikeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\s'-]{3,}$`)

// NormalizeLocations canonicalizes a raw location list. Blank entries
// are dropped, aliases resolved, unrecognized tokens word-capitalized,
// and the output de-duplicated preserving first-occurrence order.
//
// If any entry resolves to the no-preference sentinel the whole result
// is the empty list: a student who says "anywhere" must never have the
// search narrowed by a co-occurring specific token.
func NormalizeLocations(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, loc := range raw {
		key := strings.ToLower(strings.TrimSpace(loc))
		if key == "" {
			continue
		}
		mapped, ok := locationAliases[key]
		if ok && mapped == anyLocation {
			return []string{}
		}
		if !ok {
			mapped = CapitalizeWords(loc)
		}
		if _, dup := seen[mapped]; dup {
			continue
		}
		seen[mapped] = struct{}{}
		out = append(out, mapped)
	}
	return out
}

// IsCountryLike reports whether a location token heuristically names a
// country rather than a city or state.
func IsCountryLike(loc string) bool {
	return countryLikeRe.MatchString(strings.TrimSpace(loc))
}

// CountryLike returns the subset of locations that pass the
// country-name heuristic, preserving order.
func CountryLike(locations []string) []string {
	out := make([]string, 0, len(locations))
	for _, loc := range locations {
		if trimmed := strings.TrimSpace(loc); trimmed != "" && IsCountryLike(trimmed) {
			out = append(out, trimmed)
		}
	}
	return out
}

// CapitalizeWords upper-cases the first rune of each whitespace-separated
// word and lower-cases the rest.
func CapitalizeWords(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
