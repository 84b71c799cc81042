// Package ai assembles the generative-text stack: provider selection,
// retry and the deterministic fallback.
package ai

import (
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/unicompass/unicompass/internal/adapter/ai/gemini"
	"github.com/unicompass/unicompass/internal/adapter/ai/stub"
	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
)

// ResilientGenerator wraps a primary provider with an optional single
// retry and a guaranteed fallback. Callers always get a Generation; a
// dead provider degrades the note, it does not fail the request.
type ResilientGenerator struct {
	Primary  domain.TextGenerator
	Fallback domain.TextGenerator

	Retry     bool
	JitterMin time.Duration
	JitterMax time.Duration

	// DisabledReason is set when no primary provider is configured and
	// is surfaced as the fallback reason.
	DisabledReason string
}

// NewFromConfig selects the provider. Provider "mock" or a missing API
// key leaves the primary unset so every call takes the local path.
func NewFromConfig(cfg config.Config) *ResilientGenerator {
	g := &ResilientGenerator{
		Fallback:  stub.New(),
		Retry:     cfg.AIRetry,
		JitterMin: cfg.AIRetryJitterMin,
		JitterMax: cfg.AIRetryJitterMax,
	}
	switch {
	case cfg.AIProvider == "mock":
		g.DisabledReason = "provider=mock"
	case cfg.GeminiAPIKey == "":
		g.DisabledReason = "missing_api_key"
	default:
		g.Primary = gemini.New(cfg)
	}
	return g
}

// Generate calls the primary provider, retrying once after a jittered
// pause when enabled. Any terminal failure routes to the fallback with
// the provider marked mock-fallback and the cause recorded.
func (g *ResilientGenerator) Generate(ctx domain.Context, prompt string, maxTokens int, temperature float64) (domain.Generation, error) {
	if g.Primary == nil {
		gen, err := g.Fallback.Generate(ctx, prompt, maxTokens, temperature)
		if err != nil {
			return domain.Generation{}, err
		}
		gen.Meta.FallbackReason = g.DisabledReason
		return gen, nil
	}

	var out domain.Generation
	attempt := func() error {
		gen, err := g.Primary.Generate(ctx, prompt, maxTokens, temperature)
		if err != nil {
			return err
		}
		out = gen
		return nil
	}

	var retries uint64
	if g.Retry {
		retries = 1
	}
	pause := backoff.NewExponentialBackOff()
	pause.InitialInterval = g.JitterMin
	pause.MaxInterval = g.JitterMax

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(pause, retries), ctx))
	if err == nil {
		return out, nil
	}

	observability.LoggerFromContext(ctx).Warn("using mock fallback for generation", "error", err)
	observability.AIRequestsTotal.WithLabelValues("mock-fallback", "generate").Inc()
	gen, fbErr := g.Fallback.Generate(ctx, prompt, maxTokens, temperature)
	if fbErr != nil {
		return domain.Generation{}, fbErr
	}
	gen.Meta.Provider = "mock-fallback"
	gen.Meta.FallbackReason = err.Error()
	return gen, nil
}
