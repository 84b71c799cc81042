// Command seed loads the bundled university catalog into the database.
// Existing records (matched by name and country) are left untouched, so
// the command is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/adapter/repo/postgres"
	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
)

type seedLocation struct {
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Country string `yaml:"country"`
}

type seedBenchmarks struct {
	PlacementPercentage float64 `yaml:"placementPercentage"`
	AverageSalary       float64 `yaml:"averageSalary"`
	Ranking             int     `yaml:"ranking"`
}

type seedCourse struct {
	Name      string  `yaml:"name"`
	Field     string  `yaml:"field"`
	AnnualFee float64 `yaml:"annualFee"`
}

type seedUniversity struct {
	Name        string         `yaml:"name"`
	Location    seedLocation   `yaml:"location"`
	Type        string         `yaml:"type"`
	Benchmarks  seedBenchmarks `yaml:"benchmarks"`
	KeyFeatures []string       `yaml:"keyFeatures"`
	Courses     []seedCourse   `yaml:"courses"`
}

type seedFile struct {
	Universities []seedUniversity `yaml:"universities"`
}

func main() {
	path := flag.String("file", "seed/universities.yaml", "path to the seed catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, *path); err != nil {
		slog.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("op=seed read: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("op=seed parse: %w", err)
	}
	if len(file.Universities) == 0 {
		return fmt.Errorf("op=seed: catalog %q is empty", path)
	}

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("op=seed connect: %w", err)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("op=seed schema: %w", err)
	}

	repo := postgres.NewUniversityRepo(pool)
	var created, skipped int
	for _, su := range file.Universities {
		u := toDomain(su)
		_, err := repo.FindByNameAndCountry(ctx, u.Name, u.Location.Country)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("op=seed lookup %q: %w", u.Name, err)
		}
		if _, err := repo.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				skipped++
				continue
			}
			return fmt.Errorf("op=seed create %q: %w", u.Name, err)
		}
		created++
	}

	slog.Info("seed complete",
		slog.Int("created", created),
		slog.Int("skipped", skipped),
		slog.Int("total", len(file.Universities)))
	return nil
}

func toDomain(su seedUniversity) domain.University {
	courses := make([]domain.Course, 0, len(su.Courses))
	for _, c := range su.Courses {
		courses = append(courses, domain.Course{Name: c.Name, Field: c.Field, AnnualFee: c.AnnualFee})
	}
	return domain.University{
		Name: su.Name,
		Location: domain.Location{
			City:    su.Location.City,
			State:   su.Location.State,
			Country: su.Location.Country,
		},
		Courses:     courses,
		Benchmarks:  domain.Benchmarks(su.Benchmarks),
		Type:        su.Type,
		KeyFeatures: su.KeyFeatures,
	}
}
