package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/usecase"
)

func indianUni(name string, field string, fee float64) domain.University {
	return domain.University{
		Name:       name,
		Location:   domain.Location{City: "New Delhi", State: "Delhi", Country: "India"},
		Courses:    []domain.Course{{Name: field, Field: field, AnnualFee: fee}},
		Benchmarks: domain.Benchmarks{PlacementPercentage: 80, AverageSalary: 800000, Ranking: 10},
	}
}

func engineeringProfile(budget float64, locations ...string) domain.Profile {
	return domain.Profile{
		Interests:   domain.Interests{FieldOfStudy: "Engineering"},
		Preferences: domain.Preferences{Budget: budget, Locations: locations},
	}
}

func TestSelect_NoRelaxationWhenEnoughResults(t *testing.T) {
	t.Parallel()
	repo := newMemRepo(
		indianUni("A", "Engineering", 100000),
		indianUni("B", "Engineering", 100000),
		indianUni("C", "Engineering", 100000),
		indianUni("D", "Engineering", 100000),
		indianUni("E", "Engineering", 100000),
	)
	enricher := &noopEnricher{}
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: enricher}

	set, err := sel.Select(context.Background(), engineeringProfile(110000, "India"), false)
	require.NoError(t, err)
	assert.Len(t, set.Universities, 5)
	assert.Empty(t, set.RelaxationSteps)
	assert.Equal(t, []string{"India"}, set.CountryLike)
	assert.False(t, set.StrictEmpty)
	assert.Equal(t, []string{"India"}, enricher.calls)
}

func TestSelect_StrictCountryExhaustsToEmpty(t *testing.T) {
	t.Parallel()
	repo := newMemRepo(
		indianUni("A", "Engineering", 500000),
		indianUni("B", "Engineering", 500000),
		indianUni("C", "Engineering", 500000),
		indianUni("D", "Engineering", 500000),
		indianUni("E", "Engineering", 500000),
		indianUni("F", "Engineering", 500000),
	)
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: &noopEnricher{}}

	// Budget far under every fee. Location is never dropped because the
	// token names a country, so the search ends empty.
	set, err := sel.Select(context.Background(), engineeringProfile(95000, "India"), false)
	require.NoError(t, err)
	assert.True(t, set.StrictEmpty)
	assert.Empty(t, set.Universities)
	assert.Equal(t, []string{"budget+10%", "dropField", "keptLocation(strictCountry)"}, set.RelaxationSteps)
}

func TestSelect_DropsCityLocationThenField(t *testing.T) {
	t.Parallel()
	repo := newMemRepo(
		indianUni("A", "Engineering", 100000),
		indianUni("B", "Engineering", 100000),
		indianUni("C", "Engineering", 100000),
		indianUni("D", "Engineering", 100000),
		indianUni("E", "Engineering", 100000),
		indianUni("F", "Engineering", 100000),
	)
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: &noopEnricher{}}

	// "NY" fails the country heuristic, so location may be dropped.
	profile := engineeringProfile(110000, "NY")
	set, err := sel.Select(context.Background(), profile, false)
	require.NoError(t, err)
	assert.Empty(t, set.CountryLike)
	assert.Equal(t, []string{"budget+10%", "dropField", "dropLocation"}, set.RelaxationSteps)
	assert.Len(t, set.Universities, 6)
}

func TestSelect_FallbackAnyCapsAtFloor(t *testing.T) {
	t.Parallel()
	repo := newMemRepo(
		indianUni("A", "Engineering", 100000),
		indianUni("B", "Arts", 100000),
	)
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: &noopEnricher{}}

	profile := domain.Profile{Preferences: domain.Preferences{Locations: []string{"NY"}}}
	set, err := sel.Select(context.Background(), profile, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"dropLocation", "fallbackAny"}, set.RelaxationSteps)
	assert.Len(t, set.Universities, 2)
}

func TestSelect_FieldEnrichmentForThinCountrySlice(t *testing.T) {
	t.Parallel()
	repo := newMemRepo(
		indianUni("A", "Engineering", 100000),
		indianUni("B", "Engineering", 100000),
		indianUni("C", "Arts", 100000),
		indianUni("D", "Arts", 100000),
		indianUni("E", "Arts", 100000),
		indianUni("F", "Arts", 100000),
	)
	enricher := &noopEnricher{}
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: enricher}

	set, err := sel.Select(context.Background(), engineeringProfile(0, "India"), false)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(set.RelaxationSteps), 2)
	assert.Equal(t, "fieldEnrichment(Engineering)", set.RelaxationSteps[0])
	assert.Equal(t, "dropField", set.RelaxationSteps[1])
	assert.Len(t, set.Universities, 6)
	// The light pass runs first, then the forced field-targeted pass.
	assert.Equal(t, []string{"India", "India:force"}, enricher.calls)
}

func TestSelect_FieldEnrichmentFailureIsRecorded(t *testing.T) {
	t.Parallel()
	repo := newMemRepo(
		indianUni("A", "Engineering", 100000),
		indianUni("B", "Arts", 100000),
	)
	enricher := &noopEnricher{err: errors.New("directory down")}
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: enricher}

	set, err := sel.Select(context.Background(), engineeringProfile(0, "India"), false)
	require.NoError(t, err)
	require.NotEmpty(t, set.IngestionFailures)
	assert.Equal(t, "India", set.IngestionFailures[0].Country)
	require.NotEmpty(t, set.RelaxationSteps)
	assert.Contains(t, set.RelaxationSteps[0], "fieldEnrichmentFailed:")
}

func TestSelect_RepoErrorAborts(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	repo.findErr = errors.New("connection reset")
	sel := &usecase.CandidateSelector{Repo: repo, Enricher: &noopEnricher{}}

	_, err := sel.Select(context.Background(), engineeringProfile(0), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=select_candidates")
}

func TestPruneToRequestedCountries(t *testing.T) {
	t.Parallel()
	in := []domain.ScoredCandidate{
		{University: domain.University{Name: "Local", Location: domain.Location{Country: "India"}}},
		{University: domain.University{Name: "Abroad", Location: domain.Location{Country: "Germany"}}},
	}

	set := &usecase.CandidateSet{}
	out := usecase.PruneToRequestedCountries(in, []string{"India"}, set)
	require.Len(t, out, 1)
	assert.Equal(t, "Local", out[0].Name)
	assert.Equal(t, []string{"prunedNonRequestedCountries(2->1)"}, set.RelaxationSteps)
}

func TestPruneToRequestedCountries_NoMatchKeepsAll(t *testing.T) {
	t.Parallel()
	in := []domain.ScoredCandidate{
		{University: domain.University{Name: "Abroad", Location: domain.Location{Country: "Germany"}}},
	}
	set := &usecase.CandidateSet{}
	out := usecase.PruneToRequestedCountries(in, []string{"India"}, set)
	assert.Len(t, out, 1)
	assert.Empty(t, set.RelaxationSteps)
}

func TestPruneToRequestedCountries_NoTokensIsNoOp(t *testing.T) {
	t.Parallel()
	in := []domain.ScoredCandidate{{University: domain.University{Name: "A"}}}
	out := usecase.PruneToRequestedCountries(in, nil, nil)
	assert.Len(t, out, 1)
}
