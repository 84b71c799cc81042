package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/taxonomy"
)

// previewMinResults is the smaller relaxation floor of the preview
// operation, which never calls the model.
const previewMinResults = 3

// RecommendOptions tune one recommendation call.
type RecommendOptions struct {
	// NoCache bypasses the cache read; the fresh result still
	// overwrites the cached entry.
	NoCache bool
	// ForceIngest forces directory ingestion for country-like tokens.
	ForceIngest bool
}

// RecommendationService orchestrates the full pipeline: cache check,
// candidate selection, scoring, note generation and persistence.
type RecommendationService struct {
	Selector        *CandidateSelector
	Recommendations domain.RecommendationRepository
	Cache           domain.RecommendationCache
	Generator       domain.TextGenerator
	Embedder        domain.Embedder
	Prompts         *PromptLibrary

	ProviderName string
	ModelName    string
	CacheTTL     time.Duration
	MaxRecTokens int
}

// Recommend produces the ranked shortlist and counsellor note for a
// student profile. The cache key is derived from the profile exactly as
// submitted; location alias normalization happens after the cache check
// so equivalent spellings of the same request may hash differently but
// always compute identically.
func (s *RecommendationService) Recommend(ctx domain.Context, userID string, profile domain.Profile, opts RecommendOptions) (domain.RecommendationResult, error) {
	log := observability.LoggerFromContext(ctx)

	key := CacheKey(userID, profile)
	if opts.NoCache {
		observability.CacheLookup("bypass")
	} else {
		entry, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			log.Warn("cache read failed", "key", key, "error", err)
		}
		if ok {
			age := time.Since(time.UnixMilli(entry.Timestamp))
			if age < s.CacheTTL {
				observability.CacheLookup("hit")
				log.Info("cache hit for recommendation", "key", key)
				return resultFromCache(entry), nil
			}
			observability.CacheLookup("stale")
		} else {
			observability.CacheLookup("miss")
		}
	}

	profile.Preferences.Locations = taxonomy.NormalizeLocations(profile.Preferences.Locations)

	set, err := s.Selector.Select(ctx, profile, opts.ForceIngest)
	if err != nil {
		return domain.RecommendationResult{}, fmt.Errorf("op=recommend: %w", err)
	}

	if set.StrictEmpty {
		observability.RecommendationsTotal.WithLabelValues("empty").Inc()
		country := set.CountryLike[0]
		return domain.RecommendationResult{
			AICounsellorNote: fmt.Sprintf("No universities for %s matching the current field and budget yet. Try broadening budget slightly or a related field; data will auto-enrich soon.", country),
			ModelMeta: domain.ModelMeta{
				Provider:      s.ProviderName,
				Model:         s.ModelName,
				StrictCountry: true,
			},
			DataSourceNote: fmt.Sprintf("0 results for country=%s after enrichment steps: %s",
				country, strings.Join(set.RelaxationSteps, ">")),
			Diagnostics: domain.Diagnostics{
				RelaxationSteps:      set.RelaxationSteps,
				RequestedLocations:   set.RequestedLocations,
				CountryLike:          set.CountryLike,
				IngestionFailures:    set.IngestionFailures,
				StrictNoCrossCountry: true,
			},
		}, nil
	}

	normalized := NormalizeBatch(set.Universities)
	scored := ScoreCandidates(normalized, profile.Preferences)
	scored = BoostByCountry(scored, set.CountryLike)
	scored = PruneToRequestedCountries(scored, set.CountryLike, &set)
	scored = RerankByEmbedding(ctx, s.Embedder, profile, scored)

	top := scored
	if len(top) > topUniversities {
		top = top[:topUniversities]
	}
	promptUniversities := SanitizeUniversitiesForPrompt(top, topUniversities)

	var note string
	var meta domain.ModelMeta
	if len(promptUniversities) == 0 {
		note = "No strong matches found with current preferences. Try broadening location, increasing budget, or selecting a different field to see more options."
		meta = domain.ModelMeta{
			Provider:          s.ProviderName,
			Model:             s.ModelName,
			EmptyUniversities: true,
		}
		log.Warn("no universities passed filtering for profile",
			"found", len(set.Universities),
			"steps", set.RelaxationSteps)
	} else {
		prompt := s.Prompts.BuildRecommendationPrompt(profile, promptUniversities)
		gen, err := s.Generator.Generate(ctx, prompt, s.MaxRecTokens, 0.4)
		if err != nil {
			return domain.RecommendationResult{}, fmt.Errorf("op=recommend generate: %w", err)
		}
		allowed := make([]string, len(promptUniversities))
		for i, u := range promptUniversities {
			allowed[i] = u.Name
		}
		note = FilterUnknownUniversityNames(gen.Text, allowed)
		meta = gen.Meta
	}

	isFallback := meta.Provider != "" && meta.Provider != "gemini"

	ids := make([]string, len(top))
	for i, c := range top {
		ids[i] = c.ID
	}
	if _, err := s.Recommendations.Create(ctx, domain.RecommendationRecord{
		UserID:        userID,
		Profile:       profile,
		UniversityIDs: ids,
		AINote:        note,
		ModelMeta:     meta,
	}); err != nil {
		return domain.RecommendationResult{}, fmt.Errorf("op=recommend persist: %w", err)
	}

	recommended := projectCandidates(top, true)

	countryMatchCount := 0
	for _, u := range recommended {
		lc := strings.ToLower(u.Location)
		for _, c := range set.CountryLike {
			if strings.Contains(lc, strings.ToLower(c)) {
				countryMatchCount++
				break
			}
		}
	}

	steps := strings.Join(set.RelaxationSteps, " > ")
	if steps == "" {
		steps = "none"
	}
	requested := strings.Join(set.RequestedLocations, ", ")
	if requested == "" {
		requested = "none"
	}
	dataSourceNote := fmt.Sprintf(
		"Filtered %d universities after relaxations (%s) -> scored %d -> returned %d. Requested locations: %s; country matches in top: %d. IngestionFailures: %d",
		len(set.Universities), steps, len(normalized), len(recommended),
		requested, countryMatchCount, len(set.IngestionFailures))

	diagnostics := domain.Diagnostics{
		RelaxationSteps:    set.RelaxationSteps,
		RequestedLocations: set.RequestedLocations,
		CountryLike:        set.CountryLike,
		CountryMatchCount:  countryMatchCount,
		IngestionFailures:  set.IngestionFailures,
	}

	if err := s.Cache.Set(ctx, key, domain.CachedRecommendation{
		AICounsellorNote:        note,
		RecommendedUniversities: recommended,
		ModelMeta:               meta,
		IsFallback:              isFallback,
		DataSourceNote:          dataSourceNote,
		Diagnostics:             diagnostics,
		Timestamp:               time.Now().UnixMilli(),
	}); err != nil {
		log.Warn("cache write failed", "key", key, "error", err)
	}

	switch {
	case len(recommended) == 0:
		observability.RecommendationsTotal.WithLabelValues("empty").Inc()
	case isFallback:
		observability.RecommendationsTotal.WithLabelValues("fallback").Inc()
	default:
		observability.RecommendationsTotal.WithLabelValues("ok").Inc()
	}
	if len(recommended) > 0 {
		observability.MatchScoreHistogram.Observe(float64(recommended[0].MatchScore))
	}

	return domain.RecommendationResult{
		AICounsellorNote:        note,
		RecommendedUniversities: recommended,
		FromCache:               false,
		ModelMeta:               meta,
		IsFallback:              isFallback,
		DataSourceNote:          dataSourceNote,
		Diagnostics:             diagnostics,
	}, nil
}

// Preview ranks universities for a profile without calling the model,
// persisting anything or touching the cache. Relaxation is simpler and
// the floor lower; it exists for fast UI feedback.
func (s *RecommendationService) Preview(ctx domain.Context, profile domain.Profile) ([]domain.RecommendedUniversity, domain.UniversityFilter, error) {
	repo := s.Selector.Repo
	filter := domain.UniversityFilter{
		Field:     profile.Interests.FieldOfStudy,
		Locations: profile.Preferences.Locations,
		MaxFee:    profile.Preferences.Budget,
	}

	universities, err := repo.Find(ctx, filter, 0)
	if err != nil {
		return nil, filter, fmt.Errorf("op=preview: %w", err)
	}
	if len(universities) < previewMinResults {
		filter.Locations = nil
		universities, err = repo.Find(ctx, filter, 0)
		if err != nil {
			return nil, filter, fmt.Errorf("op=preview: %w", err)
		}
		if len(universities) < previewMinResults && profile.Preferences.Budget > 0 {
			filter.MaxFee = profile.Preferences.Budget * budgetStretch
			universities, err = repo.Find(ctx, filter, 0)
			if err != nil {
				return nil, filter, fmt.Errorf("op=preview: %w", err)
			}
		}
		if len(universities) < previewMinResults {
			filter.Field = ""
			universities, err = repo.Find(ctx, domain.UniversityFilter{}, minResults)
			if err != nil {
				return nil, filter, fmt.Errorf("op=preview: %w", err)
			}
		}
	}

	scored := ScoreCandidates(NormalizeBatch(universities), profile.Preferences)
	if len(scored) > topUniversities {
		scored = scored[:topUniversities]
	}
	return projectCandidates(scored, true), filter, nil
}

func resultFromCache(entry domain.CachedRecommendation) domain.RecommendationResult {
	return domain.RecommendationResult{
		AICounsellorNote:        entry.AICounsellorNote,
		RecommendedUniversities: entry.RecommendedUniversities,
		FromCache:               true,
		ModelMeta:               entry.ModelMeta,
		IsFallback:              entry.IsFallback,
		DataSourceNote:          entry.DataSourceNote,
		Diagnostics:             entry.Diagnostics,
	}
}

// projectCandidates converts scored candidates to the response shape.
func projectCandidates(candidates []domain.ScoredCandidate, withDebug bool) []domain.RecommendedUniversity {
	out := make([]domain.RecommendedUniversity, 0, len(candidates))
	for _, c := range candidates {
		tags := c.KeyFeatures
		if len(tags) > 3 {
			tags = tags[:3]
		}
		rec := domain.RecommendedUniversity{
			ID:            c.ID,
			Name:          c.Name,
			Location:      formatLocation(c.Location),
			MatchScore:    int(math.Round(c.Score * 100)),
			PlacementRate: c.Benchmarks.PlacementPercentage,
			AvgSalary:     c.Benchmarks.AverageSalary,
			AnnualFee:     c.AverageAnnualFee(),
			Ranking:       c.Benchmarks.Ranking,
			Tags:          tags,
			KeyFeatures:   c.KeyFeatures,
		}
		if withDebug {
			debug := c.Debug
			rec.Debug = &debug
		}
		out = append(out, rec)
	}
	return out
}

// formatLocation joins the non-empty location parts with commas.
func formatLocation(l domain.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.State, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
