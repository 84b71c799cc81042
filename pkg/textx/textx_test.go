// Package textx contains tests for the text utilities.
package textx

import "testing"

func TestSanitizePromptInput(t *testing.T) {
	in := "he\x00llo `world`\\ !"
	got := SanitizePromptInput(in)
	if got != "hello world !" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestSanitizePromptInput_Empty(t *testing.T) {
	if got := SanitizePromptInput("  \x01\x02  "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
