package usecase_test

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/unicompass/unicompass/internal/domain"
)

// memRepo is an in-memory UniversityRepository backed by the same filter
// semantics the SQL adapter compiles.
type memRepo struct {
	mu           sync.Mutex
	universities []domain.University
	nextID       int
	findErr      error
}

func newMemRepo(universities ...domain.University) *memRepo {
	r := &memRepo{}
	for _, u := range universities {
		_, _ = r.Create(nil, u)
	}
	return r
}

func (r *memRepo) Find(_ domain.Context, f domain.UniversityFilter, limit int) ([]domain.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]domain.University, 0, len(r.universities))
	for _, u := range r.universities {
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) Count(ctx domain.Context, f domain.UniversityFilter) (int, error) {
	found, err := r.Find(ctx, f, 0)
	return len(found), err
}

func (r *memRepo) CountByCountry(_ domain.Context, country string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.universities {
		if u.Location.Country == country {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountByCountryAndField(_ domain.Context, country, field string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.universities {
		if u.Location.Country != country {
			continue
		}
		for _, c := range u.Courses {
			if c.Field == field {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *memRepo) FindByCountry(_ domain.Context, country string, limit int) ([]domain.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.University, 0, limit)
	for _, u := range r.universities {
		if u.Location.Country == country {
			out = append(out, u)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memRepo) FindByNameAndCountry(_ domain.Context, name, country string) (domain.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.universities {
		if u.Name == name && u.Location.Country == country {
			return u, nil
		}
	}
	return domain.University{}, domain.ErrNotFound
}

func (r *memRepo) Create(_ domain.Context, u domain.University) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.universities {
		if have.Name == u.Name && have.Location.Country == u.Location.Country {
			return "", domain.ErrConflict
		}
	}
	r.nextID++
	u.ID = "u-" + strconv.Itoa(r.nextID)
	r.universities = append(r.universities, u)
	return u.ID, nil
}

func (r *memRepo) AppendCourse(_ domain.Context, id string, c domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.universities {
		if u.ID == id {
			r.universities[i].Courses = append(r.universities[i].Courses, c)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memRepo) ReplaceCourses(_ domain.Context, id string, courses []domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.universities {
		if u.ID == id {
			r.universities[i].Courses = courses
			return nil
		}
	}
	return domain.ErrNotFound
}

// noopEnricher records calls without touching the catalog.
type noopEnricher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (e *noopEnricher) Ingest(_ domain.Context, country string, opts domain.IngestOptions) (domain.IngestReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tag := country
	if opts.Force {
		tag += ":force"
	}
	e.calls = append(e.calls, tag)
	if e.err != nil {
		return domain.IngestReport{}, e.err
	}
	return domain.IngestReport{}, nil
}

// memCache is a map-backed RecommendationCache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.CachedRecommendation
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]domain.CachedRecommendation{}}
}

func (c *memCache) Get(_ domain.Context, key string) (domain.CachedRecommendation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok, nil
}

func (c *memCache) Set(_ domain.Context, key string, entry domain.CachedRecommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = entry
	return nil
}

// memRecRepo collects persisted audit records.
type memRecRepo struct {
	mu      sync.Mutex
	records []domain.RecommendationRecord
	err     error
}

func (r *memRecRepo) Create(_ domain.Context, rec domain.RecommendationRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	rec.ID = fmt.Sprintf("rec-%d", len(r.records)+1)
	r.records = append(r.records, rec)
	return rec.ID, nil
}

// fixedGenerator returns a canned generation.
type fixedGenerator struct {
	text    string
	meta    domain.ModelMeta
	err     error
	prompts []string
}

func (g *fixedGenerator) Generate(_ domain.Context, prompt string, _ int, _ float64) (domain.Generation, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return domain.Generation{}, g.err
	}
	return domain.Generation{Text: g.text, Meta: g.meta}, nil
}

// fixedEmbedder returns preset vectors.
type fixedEmbedder struct {
	enabled bool
	vectors [][]float32
	err     error
}

func (e *fixedEmbedder) Enabled() bool { return e.enabled }

func (e *fixedEmbedder) Embed(_ domain.Context, _ []string) ([][]float32, error) {
	return e.vectors, e.err
}
