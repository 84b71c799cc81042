// Package hf implements the embedding port against the Hugging Face
// inference API.
package hf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
)

// Embedder calls the feature-extraction pipeline for a sentence
// transformer model. It is optional; when disabled every caller skips
// the rerank.
type Embedder struct {
	enabled bool
	baseURL string
	token   string
	model   string
	hc      *http.Client
}

// New constructs an Embedder from config. The feature is enabled only
// when the flag is set and a token is present.
func New(cfg config.Config) *Embedder {
	return &Embedder{
		enabled: cfg.EmbedRerankEnabled && cfg.HFAPIToken != "",
		baseURL: cfg.HFBaseURL,
		token:   cfg.HFAPIToken,
		model:   cfg.HFEmbedModel,
		hc: &http.Client{
			Timeout:   cfg.EmbedTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Enabled reports whether embedding calls will be attempted.
func (e *Embedder) Enabled() bool { return e.enabled }

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	if !e.enabled {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{"inputs": texts})
	if err != nil {
		return nil, fmt.Errorf("op=hf.embed: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("op=hf.embed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=hf.embed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("op=hf.embed: unexpected status %d", resp.StatusCode)
	}

	// A single input may come back as one bare vector.
	var vectors [][]float32
	raw := json.RawMessage{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("op=hf.embed: %w", err)
	}
	if err := json.Unmarshal(raw, &vectors); err != nil {
		var single []float32
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("op=hf.embed: %w", err)
		}
		vectors = [][]float32{single}
	}
	return vectors, nil
}
