package ai_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/unicompass/unicompass/internal/adapter/ai"
	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	results []error
	calls   int
	text    string
}

func (g *scriptedGenerator) Generate(_ domain.Context, _ string, _ int, _ float64) (domain.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var err error
	if g.calls < len(g.results) {
		err = g.results[g.calls]
	}
	g.calls++
	if err != nil {
		return domain.Generation{}, err
	}
	return domain.Generation{
		Text: g.text,
		Meta: domain.ModelMeta{Provider: "gemini", Model: "real-model"},
	}, nil
}

func TestNewFromConfig_MockProviderDisablesPrimary(t *testing.T) {
	t.Parallel()
	g := ai.NewFromConfig(config.Config{AIProvider: "mock"})
	assert.Nil(t, g.Primary)
	assert.Equal(t, "provider=mock", g.DisabledReason)
}

func TestNewFromConfig_MissingKeyDisablesPrimary(t *testing.T) {
	t.Parallel()
	g := ai.NewFromConfig(config.Config{AIProvider: "gemini"})
	assert.Nil(t, g.Primary)
	assert.Equal(t, "missing_api_key", g.DisabledReason)
}

func TestNewFromConfig_GeminiEnabled(t *testing.T) {
	t.Parallel()
	g := ai.NewFromConfig(config.Config{AIProvider: "gemini", GeminiAPIKey: "k"})
	assert.NotNil(t, g.Primary)
	assert.Empty(t, g.DisabledReason)
}

func TestGenerate_NoPrimaryUsesFallbackWithReason(t *testing.T) {
	t.Parallel()
	g := ai.NewFromConfig(config.Config{AIProvider: "mock"})
	gen, err := g.Generate(context.Background(), "write a note", 100, 0.4)
	require.NoError(t, err)
	assert.Equal(t, "mock", gen.Meta.Provider)
	assert.Equal(t, "provider=mock", gen.Meta.FallbackReason)
	assert.NotEmpty(t, gen.Text)
}

func TestGenerate_PrimarySuccessPassesThrough(t *testing.T) {
	t.Parallel()
	primary := &scriptedGenerator{text: "real note"}
	g := ai.NewFromConfig(config.Config{AIProvider: "mock"})
	g.Primary = primary

	gen, err := g.Generate(context.Background(), "prompt", 100, 0.4)
	require.NoError(t, err)
	assert.Equal(t, "real note", gen.Text)
	assert.Equal(t, "gemini", gen.Meta.Provider)
	assert.Empty(t, gen.Meta.FallbackReason)
	assert.Equal(t, 1, primary.calls)
}

func TestGenerate_RetryThenSuccess(t *testing.T) {
	t.Parallel()
	primary := &scriptedGenerator{text: "second try", results: []error{errors.New("blip"), nil}}
	g := &ai.ResilientGenerator{
		Primary:   primary,
		Fallback:  failingGenerator{},
		Retry:     true,
		JitterMin: time.Millisecond,
		JitterMax: 2 * time.Millisecond,
	}

	gen, err := g.Generate(context.Background(), "prompt", 100, 0.4)
	require.NoError(t, err)
	assert.Equal(t, "second try", gen.Text)
	assert.Equal(t, 2, primary.calls)
}

func TestGenerate_ExhaustedRetriesFallBack(t *testing.T) {
	t.Parallel()
	primary := &scriptedGenerator{results: []error{errors.New("down"), errors.New("down")}}
	g := ai.NewFromConfig(config.Config{
		AIProvider: "mock", AIRetry: true,
		AIRetryJitterMin: time.Millisecond, AIRetryJitterMax: 2 * time.Millisecond,
	})
	g.Primary = primary

	gen, err := g.Generate(context.Background(), "write a note", 100, 0.4)
	require.NoError(t, err)
	assert.Equal(t, "mock-fallback", gen.Meta.Provider)
	assert.Equal(t, "down", gen.Meta.FallbackReason)
	assert.Equal(t, 2, primary.calls)
}

func TestGenerate_NoRetrySingleAttempt(t *testing.T) {
	t.Parallel()
	primary := &scriptedGenerator{results: []error{errors.New("down")}}
	g := ai.NewFromConfig(config.Config{AIProvider: "mock"})
	g.Primary = primary

	gen, err := g.Generate(context.Background(), "write a note", 100, 0.4)
	require.NoError(t, err)
	assert.Equal(t, "mock-fallback", gen.Meta.Provider)
	assert.Equal(t, 1, primary.calls)
}

type failingGenerator struct{}

func (failingGenerator) Generate(domain.Context, string, int, float64) (domain.Generation, error) {
	return domain.Generation{}, errors.New("fallback should not run")
}
