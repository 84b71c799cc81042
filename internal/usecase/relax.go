package usecase

import (
	"fmt"

	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/taxonomy"
)

// minResults is the candidate floor below which constraints are relaxed.
const minResults = 5

// budgetStretch is the multiplier applied on the first relaxation step.
const budgetStretch = 1.1

// fieldEnrichmentThreshold is the per-country course-field count below
// which a forced ingestion pass is attempted before relaxing anything.
const fieldEnrichmentThreshold = 5

// CandidateSet is the outcome of candidate selection: the universities
// that survived filtering plus the diagnostics explaining how.
type CandidateSet struct {
	Universities       []domain.University
	RelaxationSteps    []string
	RequestedLocations []string
	CountryLike        []string
	IngestionFailures  []domain.IngestionFailure
	// StrictEmpty is set when exactly one country was requested and no
	// candidate survived; callers must return an empty result rather
	// than recommend universities from other countries.
	StrictEmpty bool
}

// CandidateSelector runs filtering and iterative constraint relaxation
// against the catalog, triggering best-effort enrichment along the way.
type CandidateSelector struct {
	Repo     domain.UniversityRepository
	Enricher domain.Enricher
}

// Select builds the candidate set for a profile. Locations must already
// be normalized. Enrichment failures are collected, never fatal; only
// catalog query errors abort the search.
//
// Relaxation order: budget stretch, then field broaden, then location
// drop. Location is dropped only when no requested token looks like a
// country; an explicit country request is never widened across borders.
func (s *CandidateSelector) Select(ctx domain.Context, profile domain.Profile, forceIngest bool) (CandidateSet, error) {
	log := observability.LoggerFromContext(ctx)

	requested := profile.Preferences.Locations
	out := CandidateSet{
		RequestedLocations: requested,
		CountryLike:        taxonomy.CountryLike(requested),
	}

	// Light ingestion for every country-like token before the first
	// query. The enricher de-dupes, so repeat calls are cheap.
	for _, country := range out.CountryLike {
		_, err := s.Enricher.Ingest(ctx, country, domain.IngestOptions{
			Budget: profile.Preferences.Budget,
			Field:  profile.Interests.FieldOfStudy,
			Force:  forceIngest,
		})
		if err != nil {
			log.Warn("country ingestion failed", "country", country, "error", err)
			observability.EnrichmentFailuresTotal.Inc()
			out.IngestionFailures = append(out.IngestionFailures, domain.IngestionFailure{
				Country: country,
				Error:   err.Error(),
			})
		}
	}

	filter := domain.UniversityFilter{
		Field:     profile.Interests.FieldOfStudy,
		Locations: requested,
		MaxFee:    profile.Preferences.Budget,
	}

	universities, err := s.Repo.Find(ctx, filter, 0)
	if err != nil {
		return out, fmt.Errorf("op=select_candidates: %w", err)
	}

	// When one explicit country is requested and its catalog slice is
	// thin on the requested field, force a field-targeted ingestion
	// pass and re-query before relaxing any constraint.
	if len(out.CountryLike) == 1 && profile.Interests.FieldOfStudy != "" {
		country := out.CountryLike[0]
		countryTotal, err := s.Repo.CountByCountry(ctx, country)
		if err != nil {
			return out, fmt.Errorf("op=select_candidates count country: %w", err)
		}
		fieldCount, err := s.Repo.CountByCountryAndField(ctx, country, profile.Interests.FieldOfStudy)
		if err != nil {
			return out, fmt.Errorf("op=select_candidates count field: %w", err)
		}
		if countryTotal > 0 && fieldCount < fieldEnrichmentThreshold {
			_, ingErr := s.Enricher.Ingest(ctx, country, domain.IngestOptions{
				Budget: profile.Preferences.Budget,
				Field:  profile.Interests.FieldOfStudy,
				Force:  true,
			})
			if ingErr != nil {
				s.pushStep(&out, fmt.Sprintf("fieldEnrichmentFailed:%s", ingErr.Error()))
			} else {
				s.pushStep(&out, fmt.Sprintf("fieldEnrichment(%s)", profile.Interests.FieldOfStudy))
				universities, err = s.Repo.Find(ctx, filter, 0)
				if err != nil {
					return out, fmt.Errorf("op=select_candidates: %w", err)
				}
			}
		}
	}

	if len(universities) < minResults && profile.Preferences.Budget > 0 {
		filter.MaxFee = profile.Preferences.Budget * budgetStretch
		universities, err = s.Repo.Find(ctx, filter, 0)
		if err != nil {
			return out, fmt.Errorf("op=select_candidates: %w", err)
		}
		s.pushStep(&out, "budget+10%")
	}

	if len(universities) < minResults && filter.Field != "" {
		filter.Field = ""
		universities, err = s.Repo.Find(ctx, filter, 0)
		if err != nil {
			return out, fmt.Errorf("op=select_candidates: %w", err)
		}
		s.pushStep(&out, "dropField")
	}

	if len(universities) < minResults && len(filter.Locations) > 0 {
		if len(out.CountryLike) == 0 {
			filter.Locations = nil
			universities, err = s.Repo.Find(ctx, filter, 0)
			if err != nil {
				return out, fmt.Errorf("op=select_candidates: %w", err)
			}
			s.pushStep(&out, "dropLocation")
			if len(universities) < minResults {
				universities, err = s.Repo.Find(ctx, domain.UniversityFilter{}, minResults)
				if err != nil {
					return out, fmt.Errorf("op=select_candidates: %w", err)
				}
				s.pushStep(&out, "fallbackAny")
			}
		} else {
			s.pushStep(&out, "keptLocation(strictCountry)")
		}
	}

	if len(out.CountryLike) == 1 && len(universities) == 0 {
		out.StrictEmpty = true
		log.Info("strict country mode returned no candidates",
			"country", out.CountryLike[0],
			"steps", out.RelaxationSteps)
		return out, nil
	}

	out.Universities = universities
	return out, nil
}

func (s *CandidateSelector) pushStep(set *CandidateSet, step string) {
	set.RelaxationSteps = append(set.RelaxationSteps, step)
	observability.RelaxationStep(step)
}

// PruneToRequestedCountries drops candidates outside the requested
// countries when at least one candidate matches. A mixed batch is never
// preferred over a pure requested-country batch, but pruning must not
// empty the result.
func PruneToRequestedCountries(candidates []domain.ScoredCandidate, countryLike []string, set *CandidateSet) []domain.ScoredCandidate {
	if len(countryLike) == 0 {
		return candidates
	}
	matched := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if domain.CountryMatches(c.University, countryLike) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return candidates
	}
	if set != nil {
		step := fmt.Sprintf("prunedNonRequestedCountries(%d->%d)", len(candidates), len(matched))
		set.RelaxationSteps = append(set.RelaxationSteps, step)
		observability.RelaxationStep(step)
	}
	return matched
}
