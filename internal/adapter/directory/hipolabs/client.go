// Package hipolabs implements the university directory port against the
// public Hipolabs search API.
package hipolabs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
)

// maxEntries caps how many listings one search may return to the
// enrichment pipeline.
const maxEntries = 50

// Client fetches university listings by country.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New constructs a directory client with the configured timeout.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL: cfg.DirectoryBaseURL,
		hc: &http.Client{
			Timeout:   cfg.DirectoryTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type searchEntry struct {
	Name          string `json:"name"`
	StateProvince string `json:"state-province"`
}

// Search returns up to maxEntries listings for a country.
func (c *Client) Search(ctx domain.Context, country string) ([]domain.DirectoryEntry, error) {
	u := fmt.Sprintf("%s/search?country=%s", c.baseURL, url.QueryEscape(country))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("op=directory.search: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=directory.search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("op=directory.search: unexpected status %d", resp.StatusCode)
	}

	var entries []searchEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("op=directory.search: %w", err)
	}
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	out := make([]domain.DirectoryEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.DirectoryEntry{Name: e.Name, StateProvince: e.StateProvince}
	}
	return out, nil
}
