package usecase

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/taxonomy"
)

const (
	// countryPopulatedThreshold is the catalog size above which primary
	// ingestion for a country is skipped.
	countryPopulatedThreshold = 25
	// minFieldCoverage is how many universities per country should
	// carry a course in the requested field before enrichment stops
	// backfilling.
	minFieldCoverage = 5
	// defaultBaseFee seeds synthetic fees when no budget is known.
	defaultBaseFee = 35000
	// minSyntheticFee is the floor for any synthetic course fee.
	minSyntheticFee = 15000
)

// EnrichmentService populates thin catalog slices from the external
// university directory, with synthetic benchmarks so scoring works on
// ingested records.
type EnrichmentService struct {
	Repo      domain.UniversityRepository
	Directory domain.DirectoryClient

	mu        sync.Mutex
	randFloat func() float64
}

// NewEnrichmentService builds an enrichment service using the shared
// PRNG. Tests inject a deterministic source via WithRandom.
func NewEnrichmentService(repo domain.UniversityRepository, dir domain.DirectoryClient) *EnrichmentService {
	return &EnrichmentService{Repo: repo, Directory: dir, randFloat: rand.Float64}
}

// WithRandom replaces the random source. Returns the receiver for
// chaining in test setup.
func (s *EnrichmentService) WithRandom(f func() float64) *EnrichmentService {
	s.randFloat = f
	return s
}

func (s *EnrichmentService) random() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.randFloat == nil {
		return rand.Float64()
	}
	return s.randFloat()
}

// Ingest tops up the catalog for a country. Countries that are already
// well populated only get field backfill: up to minFieldCoverage
// existing universities gain one course in the requested field. Thin
// countries are fetched from the directory and upserted by (name,
// country). A directory miss yields an empty report, never an error.
func (s *EnrichmentService) Ingest(ctx domain.Context, country string, opts domain.IngestOptions) (domain.IngestReport, error) {
	log := observability.LoggerFromContext(ctx)

	country = strings.TrimSpace(country)
	if country == "" {
		return domain.IngestReport{}, fmt.Errorf("op=ingest: country required: %w", domain.ErrInvalidArgument)
	}

	var budget float64
	if opts.Budget > 0 {
		budget = opts.Budget
	}
	field := taxonomy.MapField(strings.TrimSpace(opts.Field))
	if field == "" {
		field = "General Studies"
	}

	existing, err := s.Repo.CountByCountry(ctx, country)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("op=ingest count: %w", err)
	}
	if existing > countryPopulatedThreshold {
		enriched, err := s.backfillField(ctx, country, field, budget)
		if err != nil {
			return domain.IngestReport{}, err
		}
		log.Info("skipping primary ingestion; country already populated",
			"country", country, "existing", existing, "enriched", enriched)
		return domain.IngestReport{Ingested: 0, Skipped: true, Enriched: enriched}, nil
	}

	entries, err := s.Directory.Search(ctx, country)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("op=ingest directory: %w", err)
	}

	baseFee := defaultBaseFee
	if budget > 0 {
		baseFee = int(math.Min(budget*0.8, budget))
	}

	ingested := 0
	for _, entry := range entries {
		existing, err := s.Repo.FindByNameAndCountry(ctx, entry.Name, country)
		if errors.Is(err, domain.ErrNotFound) {
			u := s.syntheticUniversity(entry, country, field, baseFee)
			if _, err := s.Repo.Create(ctx, u); err != nil {
				return domain.IngestReport{}, fmt.Errorf("op=ingest create: %w", err)
			}
			observability.EnrichmentIngestedTotal.WithLabelValues("created").Inc()
			ingested++
			continue
		}
		if err != nil {
			return domain.IngestReport{}, fmt.Errorf("op=ingest lookup: %w", err)
		}
		// Existing record priced far beyond the student's budget gets
		// its fees rewritten into the 85-110% band of the budget.
		if budget > 0 && existing.AverageAnnualFee() > budget*1.2 {
			courses := make([]domain.Course, len(existing.Courses))
			for i, c := range existing.Courses {
				c.AnnualFee = math.Round(budget * (0.85 + s.random()*0.25))
				courses[i] = c
			}
			if err := s.Repo.ReplaceCourses(ctx, existing.ID, courses); err != nil {
				return domain.IngestReport{}, fmt.Errorf("op=ingest reprice: %w", err)
			}
		}
	}

	log.Info("ingestion complete", "country", country, "ingested", ingested)
	return domain.IngestReport{Ingested: ingested, Skipped: false}, nil
}

// backfillField appends one course in the given field to existing
// universities of a country until minFieldCoverage of them carry it.
func (s *EnrichmentService) backfillField(ctx domain.Context, country, field string, budget float64) (int, error) {
	fieldCount, err := s.Repo.CountByCountryAndField(ctx, country, field)
	if err != nil {
		return 0, fmt.Errorf("op=ingest field count: %w", err)
	}
	if fieldCount >= minFieldCoverage {
		return 0, nil
	}
	need := minFieldCoverage - fieldCount
	carriers, err := s.Repo.FindByCountry(ctx, country, need)
	if err != nil {
		return 0, fmt.Errorf("op=ingest carriers: %w", err)
	}

	baseFee := float64(defaultBaseFee)
	if budget > 0 {
		baseFee = math.Min(budget*0.8, budget)
	}

	enriched := 0
	for _, u := range carriers {
		hasField := false
		for _, c := range u.Courses {
			if c.Field == field {
				hasField = true
				break
			}
		}
		if hasField {
			continue
		}
		course := domain.Course{
			Name:      field,
			Field:     field,
			AnnualFee: s.syntheticFee(baseFee),
		}
		if err := s.Repo.AppendCourse(ctx, u.ID, course); err != nil {
			return enriched, fmt.Errorf("op=ingest append course: %w", err)
		}
		observability.EnrichmentIngestedTotal.WithLabelValues("backfilled").Inc()
		enriched++
	}
	if enriched > 0 {
		observability.LoggerFromContext(ctx).Info("field enrichment added courses to existing universities",
			"country", country, "field", field, "enriched", enriched)
	}
	return enriched, nil
}

// syntheticFee spreads fees across 75-115% of the base, floored.
func (s *EnrichmentService) syntheticFee(baseFee float64) float64 {
	fee := math.Round(baseFee * (0.75 + s.random()*0.4))
	return math.Max(minSyntheticFee, fee)
}

func (s *EnrichmentService) syntheticUniversity(entry domain.DirectoryEntry, country, field string, baseFee int) domain.University {
	return domain.University{
		Name: entry.Name,
		Location: domain.Location{
			City:    entry.StateProvince,
			State:   entry.StateProvince,
			Country: country,
		},
		Courses: []domain.Course{{
			Name:      field,
			Field:     field,
			AnnualFee: s.syntheticFee(float64(baseFee)),
		}},
		Benchmarks: domain.Benchmarks{
			PlacementPercentage: 70 + math.Round(s.random()*20),
			AverageSalary:       600000 + math.Round(s.random()*300000),
			Ranking:             40 + int(math.Round(s.random()*120)),
		},
		Type:        "academics-focused",
		KeyFeatures: []string{"International collaboration", "Diverse programs", "Global student body"},
	}
}

// RunPeriodic re-ingests the configured countries on a fixed interval
// until the context is cancelled. Failures are logged and the sweep
// moves on; a broken directory must not kill the process.
func (s *EnrichmentService) RunPeriodic(ctx domain.Context, interval time.Duration, countries []string) {
	if interval <= 0 || len(countries) == 0 {
		return
	}
	log := observability.LoggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("enrichment sweep stopped")
			return
		case <-ticker.C:
			for _, country := range countries {
				report, err := s.Ingest(ctx, country, domain.IngestOptions{})
				if err != nil {
					log.Warn("enrichment sweep failed", "country", country, "error", err)
					observability.EnrichmentFailuresTotal.Inc()
					continue
				}
				log.Info("enrichment sweep run",
					"country", country,
					"ingested", report.Ingested,
					"skipped", report.Skipped)
			}
		}
	}
}
