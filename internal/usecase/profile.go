// Package usecase contains the recommendation pipeline business logic.
package usecase

import (
	"encoding/json"

	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/taxonomy"
)

// ParseProfile converts an arbitrary submitted profile object into the
// canonical domain.Profile. Payloads that already carry an "interests"
// or "preferences" key are decoded as-is; anything else is treated as
// the flat shape older clients send (field, location, budget, priorities,
// courses, gpa) and lifted into the nested form. Missing optional fields
// map to zero values, never to an error.
func ParseProfile(raw map[string]any) domain.Profile {
	if raw == nil {
		return domain.Profile{}
	}
	_, hasInterests := raw["interests"]
	_, hasPreferences := raw["preferences"]
	if hasInterests || hasPreferences {
		var p domain.Profile
		if b, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(b, &p)
		}
		return p
	}

	field := stringField(raw, "field")
	if field == "" {
		field = stringField(raw, "fieldOfStudy")
	}

	var locations []string
	if loc := stringField(raw, "location"); loc != "" {
		locations = []string{loc}
	}

	p := domain.Profile{
		Interests: domain.Interests{
			FieldOfStudy: taxonomy.MapField(field),
			Courses:      stringSliceField(raw, "courses"),
		},
		Preferences: domain.Preferences{
			Locations:  locations,
			Budget:     numberField(raw, "budget"),
			Priorities: stringSliceField(raw, "priorities"),
		},
	}

	if acad, ok := raw["academics"].(map[string]any); ok {
		p.Academics.Board = stringField(acad, "board")
		if score, ok := floatValue(acad["grade12Score"]); ok {
			p.Academics.Grade12Score = &score
		}
	}
	if p.Academics.Grade12Score == nil {
		if gpa, ok := floatValue(raw["gpa"]); ok {
			p.Academics.Grade12Score = &gpa
		}
	}
	return p
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func numberField(m map[string]any, key string) float64 {
	v, _ := floatValue(m[key])
	return v
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func stringSliceField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
