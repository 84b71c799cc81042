package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/unicompass/unicompass/internal/domain"
)

// canonicalProfile returns a copy of the profile with locations
// canonicalized for hashing: trimmed, lower-cased, de-duplicated and
// sorted. The caller's profile is never mutated; location order and
// casing must not produce distinct cache entries.
func canonicalProfile(p domain.Profile) domain.Profile {
	if len(p.Preferences.Locations) == 0 {
		return p
	}
	seen := make(map[string]struct{}, len(p.Preferences.Locations))
	locs := make([]string, 0, len(p.Preferences.Locations))
	for _, l := range p.Preferences.Locations {
		t := strings.ToLower(strings.TrimSpace(l))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		locs = append(locs, t)
	}
	sort.Strings(locs)
	p.Preferences.Locations = locs
	return p
}

// ProfileHash returns the hex SHA-256 of the canonicalized profile's
// JSON encoding.
func ProfileHash(p domain.Profile) string {
	b, err := json.Marshal(canonicalProfile(p))
	if err != nil {
		// Profile is a plain struct; Marshal cannot fail on it.
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CacheKey builds the per-user, per-profile recommendation cache key.
func CacheKey(userID string, p domain.Profile) string {
	return fmt.Sprintf("recommend:%s:%s", userID, ProfileHash(p))
}
