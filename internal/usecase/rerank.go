package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/domain"
)

// RerankByEmbedding reorders candidates by cosine similarity between a
// profile query text and a per-university text. The feature is
// best-effort: when the embedder is disabled, the batch is too small, or
// the vector count comes back wrong, the input order is returned
// unchanged. The composite score is not modified, only the order.
func RerankByEmbedding(ctx domain.Context, embedder domain.Embedder, profile domain.Profile, candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	if embedder == nil || !embedder.Enabled() || len(candidates) < 2 {
		return candidates
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, buildProfileQuery(profile))
	for _, c := range candidates {
		features := c.KeyFeatures
		if len(features) > 3 {
			features = features[:3]
		}
		texts = append(texts, fmt.Sprintf("%s %s %s %s",
			c.Name, c.Location.City, c.Location.State, strings.Join(features, " ")))
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(candidates)+1 {
		observability.LoggerFromContext(ctx).Warn("embedding rerank skipped", "error", err)
		return candidates
	}

	query := vectors[0]
	for i := range candidates {
		score := cosine(query, vectors[i+1])
		candidates[i].Debug.EmbedScore = &score
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return embedScore(candidates[i]) > embedScore(candidates[j])
	})
	return candidates
}

func embedScore(c domain.ScoredCandidate) float64 {
	if c.Debug.EmbedScore == nil {
		return 0
	}
	return *c.Debug.EmbedScore
}

// buildProfileQuery flattens the profile into one embedding query text.
func buildProfileQuery(p domain.Profile) string {
	parts := make([]string, 0, 4)
	if p.Academics.Grade12Score != nil {
		parts = append(parts, fmt.Sprintf("grade:%s", formatNumber(*p.Academics.Grade12Score)))
	}
	if p.Interests.FieldOfStudy != "" {
		parts = append(parts, "field:"+p.Interests.FieldOfStudy)
	}
	if len(p.Preferences.Priorities) > 0 {
		parts = append(parts, "priorities:"+strings.Join(p.Preferences.Priorities, ","))
	}
	if len(p.Preferences.Locations) > 0 {
		parts = append(parts, "loc:"+strings.Join(p.Preferences.Locations, ","))
	}
	return strings.Join(parts, " | ")
}

// cosine returns the cosine similarity of two vectors, 0 when either
// has zero magnitude.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
