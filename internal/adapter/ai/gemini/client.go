// Package gemini implements the generative-text port against the
// Google Generative Language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unicompass/unicompass/internal/adapter/ai/tokencount"
	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

// New constructs a Gemini client with the configured timeout and an
// instrumented transport.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL: cfg.GeminiBaseURL,
		apiKey:  cfg.GeminiAPIKey,
		model:   cfg.ModelName,
		hc: &http.Client{
			Timeout:   cfg.AITimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends one prompt and returns the first candidate's text.
// Timeouts map to domain.ErrUpstreamTimeout; an empty candidate list is
// an error so callers fall back rather than return a blank note.
func (c *Client) Generate(ctx domain.Context, prompt string, maxTokens int, temperature float64) (domain.Generation, error) {
	start := time.Now()
	observability.AIRequestsTotal.WithLabelValues("gemini", "generate").Inc()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
			TopP:            0.9,
		},
	})
	if err != nil {
		return domain.Generation{}, fmt.Errorf("op=gemini.generate: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Generation{}, fmt.Errorf("op=gemini.generate: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return domain.Generation{}, fmt.Errorf("op=gemini.generate: %w", domain.ErrUpstreamTimeout)
		}
		return domain.Generation{}, fmt.Errorf("op=gemini.generate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.Generation{}, fmt.Errorf("op=gemini.generate: unexpected status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Generation{}, fmt.Errorf("op=gemini.generate: %w", err)
	}

	text := ""
	if len(decoded.Candidates) > 0 && len(decoded.Candidates[0].Content.Parts) > 0 {
		text = decoded.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return domain.Generation{}, fmt.Errorf("op=gemini.generate: empty response")
	}

	latency := time.Since(start)
	observability.AIRequestDuration.WithLabelValues("gemini", "generate").Observe(latency.Seconds())
	return domain.Generation{
		Text: text,
		Meta: domain.ModelMeta{
			Provider:  "gemini",
			Model:     c.model,
			TokensIn:  tokencount.Estimate(prompt),
			TokensOut: tokencount.Estimate(text),
			LatencyMs: latency.Milliseconds(),
		},
	}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
