package domain

import "strings"

// UniversityFilter is the query filter the relaxation engine mutates.
// Zero values mean "constraint not set". The postgres repository
// compiles it to SQL; Matches evaluates the same semantics in memory
// for result pruning and test fakes.
type UniversityFilter struct {
	// Field constrains courses.field by equality.
	Field string
	// Locations is a disjunction over country, state and city.
	Locations []string
	// MaxFee accepts a university when any course fee is <= MaxFee.
	MaxFee float64
}

// IsEmpty reports whether no constraint is set.
func (f UniversityFilter) IsEmpty() bool {
	return f.Field == "" && len(f.Locations) == 0 && f.MaxFee <= 0
}

// Matches reports whether u satisfies every set constraint.
func (f UniversityFilter) Matches(u University) bool {
	if f.Field != "" {
		found := false
		for _, c := range u.Courses {
			if c.Field == f.Field {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Locations) > 0 {
		found := false
		for _, loc := range f.Locations {
			if u.Location.Country == loc || u.Location.State == loc || u.Location.City == loc {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MaxFee > 0 {
		found := false
		for _, c := range u.Courses {
			if c.AnnualFee <= f.MaxFee {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CountryMatches reports whether the university's country equals any of
// the given tokens, case-insensitively.
func CountryMatches(u University, countries []string) bool {
	c := strings.ToLower(u.Location.Country)
	if c == "" {
		return false
	}
	for _, want := range countries {
		if c == strings.ToLower(want) {
			return true
		}
	}
	return false
}
