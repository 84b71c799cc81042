package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/usecase"
)

func uni(name string, placement, salary float64, ranking int, fee float64) domain.University {
	return domain.University{
		Name:       name,
		Courses:    []domain.Course{{Name: "Program", Field: "Engineering", AnnualFee: fee}},
		Benchmarks: domain.Benchmarks{PlacementPercentage: placement, AverageSalary: salary, Ranking: ranking},
	}
}

func TestNormalizeBatch_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, usecase.NormalizeBatch(nil))
}

func TestNormalizeBatch_SubScores(t *testing.T) {
	t.Parallel()
	batch := usecase.NormalizeBatch([]domain.University{
		uni("A", 90, 1000000, 1, 100000),
		uni("B", 60, 500000, 10, 200000),
	})
	require.Len(t, batch, 2)

	a, b := batch[0], batch[1]
	assert.InDelta(t, 0.9, a.Normalized.Placement, 1e-9)
	assert.InDelta(t, 0.6, b.Normalized.Placement, 1e-9)

	// min-max over the batch
	assert.InDelta(t, 1.0, a.Normalized.Salary, 1e-9)
	assert.InDelta(t, 0.0, b.Normalized.Salary, 1e-9)

	// rank 1 of a batch whose worst rank is 10
	assert.InDelta(t, 1.0, a.Normalized.Ranking, 1e-9)
	assert.InDelta(t, 0.0, b.Normalized.Ranking, 1e-9)

	// A: 90/100000 = 0.0009 is the best efficiency, scaled to 1.
	assert.InDelta(t, 1.0, a.Normalized.FeeEfficiencyScaled, 1e-9)
	assert.InDelta(t, (60.0/200000)/(90.0/100000), b.Normalized.FeeEfficiencyScaled, 1e-9)
}

func TestNormalizeBatch_UniformSalaryIsNeutral(t *testing.T) {
	t.Parallel()
	batch := usecase.NormalizeBatch([]domain.University{
		uni("A", 90, 800000, 1, 100000),
		uni("B", 80, 800000, 2, 100000),
	})
	assert.InDelta(t, 0.5, batch[0].Normalized.Salary, 1e-9)
	assert.InDelta(t, 0.5, batch[1].Normalized.Salary, 1e-9)
}

func TestNormalizeBatch_UnrankedCountsAsHundred(t *testing.T) {
	t.Parallel()
	batch := usecase.NormalizeBatch([]domain.University{
		uni("Ranked", 90, 900000, 5, 100000),
		uni("Unranked", 70, 700000, 0, 100000),
	})
	// maxRanking becomes 100, so rank 5 normalizes near the top and the
	// unranked record scores zero.
	assert.InDelta(t, 1-4.0/99.0, batch[0].Normalized.Ranking, 1e-9)
	assert.InDelta(t, 0.0, batch[1].Normalized.Ranking, 1e-9)
}

func TestScoreCandidates_SortsDescendingWithNameTieBreak(t *testing.T) {
	t.Parallel()
	batch := usecase.NormalizeBatch([]domain.University{
		uni("Zeta", 80, 800000, 2, 100000),
		uni("Alpha", 80, 800000, 2, 100000),
		uni("Best", 95, 1200000, 1, 90000),
	})
	scored := usecase.ScoreCandidates(batch, domain.Preferences{})
	require.Len(t, scored, 3)
	assert.Equal(t, "Best", scored[0].Name)
	// equal scores break by name ascending
	assert.Equal(t, "Alpha", scored[1].Name)
	assert.Equal(t, "Zeta", scored[2].Name)
}

func TestScoreCandidates_PriorityNudgesWeights(t *testing.T) {
	t.Parallel()
	batch := usecase.NormalizeBatch([]domain.University{uni("A", 80, 800000, 1, 100000)})

	scored := usecase.ScoreCandidates(batch, domain.Preferences{
		Priorities: []string{"Career Services & Job Placement", "Cost & Financial Aid"},
	})
	w := scored[0].Debug.Weights
	// Placements: +.05 placement/salary, -.05 ranking/feeEff.
	// Affordability: +.10 feeEff, -.05 salary/ranking.
	assert.InDelta(t, 0.40, w.Placement, 1e-9)
	assert.InDelta(t, 0.25, w.Salary, 1e-9)
	assert.InDelta(t, 0.10, w.Ranking, 1e-9)
	assert.InDelta(t, 0.15, w.FeeEfficiency, 1e-9)
	assert.InDelta(t, 0.10, w.FeatureMatch, 1e-9)
}

func TestScoreCandidates_ReputationNudge(t *testing.T) {
	t.Parallel()
	batch := usecase.NormalizeBatch([]domain.University{uni("A", 80, 800000, 1, 100000)})
	scored := usecase.ScoreCandidates(batch, domain.Preferences{Priorities: []string{"Academic Reputation"}})
	w := scored[0].Debug.Weights
	assert.InDelta(t, 0.30, w.Placement, 1e-9)
	assert.InDelta(t, 0.30, w.Ranking, 1e-9)
	assert.InDelta(t, 0.05, w.FeeEfficiency, 1e-9)
}

func TestScoreCandidates_FeatureMatchFraction(t *testing.T) {
	t.Parallel()
	u := uni("A", 80, 800000, 1, 100000)
	u.KeyFeatures = []string{"Top-tier placements", "Green campus"}
	batch := usecase.NormalizeBatch([]domain.University{u})

	scored := usecase.ScoreCandidates(batch, domain.Preferences{
		Priorities: []string{"placements", "research opportunities"},
	})
	// "Placements" matches a feature substring, "Research" does not.
	assert.InDelta(t, 0.5, scored[0].Debug.FeatureMatchScore, 1e-9)
	assert.Equal(t, []string{"Placements"}, scored[0].Debug.PriorityMatches)
}

func TestBoostByCountry(t *testing.T) {
	t.Parallel()
	inIndia := uni("Local", 80, 800000, 2, 100000)
	inIndia.Location.Country = "India"
	abroad := uni("Abroad", 82, 820000, 1, 100000)
	abroad.Location.Country = "Germany"

	scored := usecase.ScoreCandidates(usecase.NormalizeBatch([]domain.University{inIndia, abroad}), domain.Preferences{})
	require.Equal(t, "Abroad", scored[0].Name)
	abroadScore := scored[0].Score

	boosted := usecase.BoostByCountry(scored, []string{"india"})
	var local domain.ScoredCandidate
	for _, c := range boosted {
		if c.Name == "Local" {
			local = c
		}
	}
	assert.True(t, local.Debug.LocationBoost)
	for _, c := range boosted {
		if c.Name == "Abroad" {
			assert.False(t, c.Debug.LocationBoost)
			assert.InDelta(t, abroadScore, c.Score, 1e-9)
		}
	}
}

func TestBoostByCountry_NoTokensIsNoOp(t *testing.T) {
	t.Parallel()
	scored := usecase.ScoreCandidates(usecase.NormalizeBatch([]domain.University{uni("A", 80, 800000, 1, 100000)}), domain.Preferences{})
	before := scored[0].Score
	after := usecase.BoostByCountry(scored, nil)
	assert.InDelta(t, before, after[0].Score, 1e-9)
}
