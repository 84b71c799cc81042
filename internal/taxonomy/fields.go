// Package taxonomy holds the canonical field and location vocabularies
// shared by profile parsing, filtering and enrichment.
package taxonomy

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// fieldAliases maps lowercase free-text field tokens to the canonical
// taxonomy {Engineering, Commerce, Medicine, Arts, Science, Law}.
var fieldAliases = map[string]string{
	"computer-science":     "Engineering",
	"cs":                   "Engineering",
	"software engineering": "Engineering",
	"engineering":          "Engineering",
	"it":                   "Engineering",
	"business":             "Commerce",
	"commerce":             "Commerce",
	"management":           "Commerce",
	"medicine":             "Medicine",
	"medical":              "Medicine",
	"health sciences":      "Medicine",
	"arts":                 "Arts",
	"humanities":           "Arts",
	"natural sciences":     "Science",
	"sciences":             "Science",
	"science":              "Science",
	"law":                  "Law",
	"legal studies":        "Law",
}

// MapField resolves a free-text field token to its canonical value.
// Unrecognized non-empty input is capitalized and passed through;
// empty input yields "".
func MapField(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if canonical, ok := fieldAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return capitalizeFirst(trimmed)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
