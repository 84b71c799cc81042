// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizePromptInput strips backslashes, backticks and control
// characters from user-supplied text before it is interpolated into a
// prompt template.
func SanitizePromptInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\\' || r == '`' {
			continue
		}
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
