// Package tokencount estimates token usage for generative API calls.
//
// It uses tiktoken-go for a real BPE count where the encoding is
// available and falls back to the four-characters-per-token rule of
// thumb otherwise, so model metadata never blocks a request.
package tokencount

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

var (
	once sync.Once
	enc  *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	once.Do(func() {
		// cl100k_base approximates Gemini tokenization closely enough
		// for usage reporting.
		if e, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			enc = e
		}
	})
	return enc
}

// Estimate returns the token count for a text.
func Estimate(text string) int {
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return len(text) / 4
}
