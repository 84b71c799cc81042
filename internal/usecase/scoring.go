package usecase

import (
	"sort"
	"strings"

	"github.com/unicompass/unicompass/internal/domain"
)

const (
	// feeEfficiencyFloor guards the fee-efficiency division when a
	// batch has no positive efficiency at all.
	feeEfficiencyFloor = 0.00001
	// countryBoost is the multiplicative bonus applied to candidates
	// whose country matches a requested country token.
	countryBoost = 1.05
)

// baseWeights are the factor weights before priority nudges.
func baseWeights() domain.Weights {
	return domain.Weights{
		Placement:     0.35,
		Salary:        0.25,
		Ranking:       0.20,
		FeeEfficiency: 0.10,
		FeatureMatch:  0.10,
	}
}

// priorityLabels maps free-text priorities to canonical labels.
var priorityLabels = map[string]string{
	"academic reputation":             "Reputation",
	"reputation":                      "Reputation",
	"placements":                      "Placements",
	"career services & job placement": "Placements",
	"career services":                 "Placements",
	"job placement":                   "Placements",
	"cost & financial aid":            "Affordability",
	"affordability":                   "Affordability",
	"research opportunities":          "Research",
	"diversity & inclusion":           "Diversity",
}

// canonicalPriorities maps raw priorities through the synonym table,
// passing unrecognized entries through unchanged.
func canonicalPriorities(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if label, ok := priorityLabels[strings.ToLower(p)]; ok {
			out = append(out, label)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeBatch computes per-batch min-max normalized sub-scores for
// every university. Normalization is recomputed on every call; the
// figures are only meaningful relative to the batch they came from.
func NormalizeBatch(universities []domain.University) []domain.ScoredCandidate {
	if len(universities) == 0 {
		return nil
	}

	var maxSalary, minSalary float64
	maxRanking := 0
	for i, u := range universities {
		sal := u.Benchmarks.AverageSalary
		if i == 0 || sal > maxSalary {
			maxSalary = sal
		}
		if i == 0 || sal < minSalary {
			minSalary = sal
		}
		r := u.Benchmarks.Ranking
		if r == 0 {
			// unranked records count as 100 for the batch ceiling
			r = 100
		}
		if r > maxRanking {
			maxRanking = r
		}
	}

	bestFeeEfficiency := feeEfficiencyFloor
	efficiencies := make([]float64, len(universities))
	for i, u := range universities {
		avgFee := u.AverageAnnualFee()
		if avgFee > 0 {
			efficiencies[i] = u.Benchmarks.PlacementPercentage / avgFee
		}
		if efficiencies[i] > bestFeeEfficiency {
			bestFeeEfficiency = efficiencies[i]
		}
	}

	out := make([]domain.ScoredCandidate, len(universities))
	for i, u := range universities {
		salaryNorm := 0.5 // neutral when the whole batch earns the same
		if maxSalary != minSalary {
			salaryNorm = (u.Benchmarks.AverageSalary - minSalary) / (maxSalary - minSalary)
		}

		rankingNorm := 0.0
		if r := u.Benchmarks.Ranking; r > 0 {
			if maxRanking > 1 {
				rankingNorm = 1 - float64(r-1)/float64(maxRanking-1)
			} else {
				rankingNorm = 1
			}
		}

		scaled := efficiencies[i] / bestFeeEfficiency
		if scaled > 1 {
			scaled = 1
		}

		out[i] = domain.ScoredCandidate{
			University: u,
			Normalized: domain.SubScores{
				Placement:           u.Benchmarks.PlacementPercentage / 100,
				Salary:              salaryNorm,
				Ranking:             rankingNorm,
				FeeEfficiencyScaled: scaled,
				FeeEfficiency:       efficiencies[i],
			},
		}
	}
	return out
}

// ScoreCandidates combines normalized sub-scores into one composite
// score per candidate using priority-adjusted weights, and returns the
// batch sorted by descending score with ties broken by name.
//
// The nudges deliberately do not renormalize the weight sum; the
// composite is a weighted sum, not a convex combination.
func ScoreCandidates(candidates []domain.ScoredCandidate, prefs domain.Preferences) []domain.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}
	priorities := canonicalPriorities(prefs.Priorities)
	has := func(label string) bool {
		for _, p := range priorities {
			if p == label {
				return true
			}
		}
		return false
	}

	out := make([]domain.ScoredCandidate, len(candidates))
	for i, cand := range candidates {
		w := baseWeights()
		if has("Placements") {
			w.Placement += 0.05
			w.Salary += 0.05
			w.Ranking -= 0.05
			w.FeeEfficiency -= 0.05
		}
		if has("Affordability") {
			w.FeeEfficiency += 0.10
			w.Salary -= 0.05
			w.Ranking -= 0.05
		}
		if has("Reputation") {
			w.Ranking += 0.10
			w.Placement -= 0.05
			w.FeeEfficiency -= 0.05
		}

		matches := make([]string, 0, len(priorities))
		for _, p := range priorities {
			for _, f := range cand.KeyFeatures {
				if strings.Contains(strings.ToLower(f), strings.ToLower(p)) {
					matches = append(matches, p)
					break
				}
			}
		}
		featureMatchScore := 0.0
		if len(priorities) > 0 {
			featureMatchScore = float64(len(matches)) / float64(len(priorities))
		}

		cand.Score = w.Placement*cand.Normalized.Placement +
			w.Salary*cand.Normalized.Salary +
			w.Ranking*cand.Normalized.Ranking +
			w.FeeEfficiency*cand.Normalized.FeeEfficiencyScaled +
			w.FeatureMatch*featureMatchScore
		cand.Debug = domain.DebugMeta{
			Weights:           w,
			FeatureMatchScore: featureMatchScore,
			PriorityMatches:   matches,
		}
		out[i] = cand
	}
	sortByScore(out)
	return out
}

// BoostByCountry multiplies the score of candidates whose country
// matches a requested country-like token and re-sorts. The boost is
// multiplicative so stronger matches gain more absolute score.
func BoostByCountry(candidates []domain.ScoredCandidate, countryLike []string) []domain.ScoredCandidate {
	if len(countryLike) == 0 {
		return candidates
	}
	for i := range candidates {
		if domain.CountryMatches(candidates[i].University, countryLike) {
			candidates[i].Score *= countryBoost
			candidates[i].Debug.LocationBoost = true
		}
	}
	sortByScore(candidates)
	return candidates
}

// sortByScore orders descending by composite score; ties break by name
// ascending so rankings are reproducible.
func sortByScore(cands []domain.ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Name < cands[j].Name
	})
}
