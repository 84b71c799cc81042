package hf_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicompass/unicompass/internal/adapter/ai/hf"
	"github.com/unicompass/unicompass/internal/config"
)

func embedConfig(baseURL string) config.Config {
	return config.Config{
		EmbedRerankEnabled: true,
		HFAPIToken:         "hf-token",
		HFBaseURL:          baseURL,
		HFEmbedModel:       "sentence-transformers/all-MiniLM-L6-v2",
		EmbedTimeout:       2 * time.Second,
	}
}

func TestNew_DisabledWithoutToken(t *testing.T) {
	t.Parallel()
	cfg := embedConfig("http://example.invalid")
	cfg.HFAPIToken = ""
	e := hf.New(cfg)
	assert.False(t, e.Enabled())

	vectors, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbed_MultipleVectors(t *testing.T) {
	t.Parallel()
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([][]float32{{0.1, 0.2}, {0.3, 0.4}})
	}))
	defer srv.Close()

	e := hf.New(embedConfig(srv.URL))
	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.3, vectors[1][0], 1e-6)

	assert.Equal(t, "Bearer hf-token", gotAuth)
	assert.Equal(t, "/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2", gotPath)
}

func TestEmbed_BareSingleVector(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]float32{0.5, 0.6})
	}))
	defer srv.Close()

	e := hf.New(embedConfig(srv.URL))
	vectors, err := e.Embed(context.Background(), []string{"only"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.InDelta(t, 0.5, vectors[0][0], 1e-6)
}

func TestEmbed_Non200IsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := hf.New(embedConfig(srv.URL))
	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}
