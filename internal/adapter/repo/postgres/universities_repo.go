// Package postgres provides PostgreSQL adapters for the catalog and
// recommendation audit repositories.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/unicompass/unicompass/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// UniversityRepo persists and queries catalog records.
type UniversityRepo struct{ Pool PgxPool }

// NewUniversityRepo constructs a UniversityRepo with the given pool.
func NewUniversityRepo(p PgxPool) *UniversityRepo { return &UniversityRepo{Pool: p} }

const universityColumns = `id, name, city, state, country, courses, placement_pct, avg_salary, ranking, utype, key_features, created_at, updated_at`

// Find returns universities matching the filter. A limit <= 0 means no
// limit. The filter semantics mirror domain.UniversityFilter.Matches.
func (r *UniversityRepo) Find(ctx domain.Context, f domain.UniversityFilter, limit int) ([]domain.University, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.Find")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "universities"),
	)

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Field != "" {
		where = append(where, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM jsonb_array_elements(courses) c WHERE c->>'field' = %s)`, arg(f.Field)))
	}
	if len(f.Locations) > 0 {
		p := arg(f.Locations)
		where = append(where, fmt.Sprintf(
			`(country = ANY(%s) OR state = ANY(%s) OR city = ANY(%s))`, p, p, p))
	}
	if f.MaxFee > 0 {
		where = append(where, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM jsonb_array_elements(courses) c WHERE (c->>'annualFee')::numeric <= %s)`, arg(f.MaxFee)))
	}

	q := `SELECT ` + universityColumns + ` FROM universities`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %s", arg(limit))
	}

	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=university.find: %w", err)
	}
	defer rows.Close()
	return collectUniversities(rows)
}

// Count returns the number of universities matching the filter.
func (r *UniversityRepo) Count(ctx domain.Context, f domain.UniversityFilter) (int, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.Count")
	defer span.End()
	// Reuses Find so the filter compiles in exactly one place.
	list, err := r.Find(ctx, f, 0)
	if err != nil {
		return 0, fmt.Errorf("op=university.count: %w", err)
	}
	return len(list), nil
}

// CountByCountry returns how many universities exist for a country.
func (r *UniversityRepo) CountByCountry(ctx domain.Context, country string) (int, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.CountByCountry")
	defer span.End()
	var n int
	q := `SELECT count(*) FROM universities WHERE country = $1`
	if err := r.Pool.QueryRow(ctx, q, country).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=university.count_country: %w", err)
	}
	return n, nil
}

// CountByCountryAndField returns how many universities of a country
// offer a course in the field.
func (r *UniversityRepo) CountByCountryAndField(ctx domain.Context, country, field string) (int, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.CountByCountryAndField")
	defer span.End()
	var n int
	q := `SELECT count(*) FROM universities WHERE country = $1 AND EXISTS (SELECT 1 FROM jsonb_array_elements(courses) c WHERE c->>'field' = $2)`
	if err := r.Pool.QueryRow(ctx, q, country, field).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=university.count_country_field: %w", err)
	}
	return n, nil
}

// FindByCountry returns up to limit universities of a country.
func (r *UniversityRepo) FindByCountry(ctx domain.Context, country string, limit int) ([]domain.University, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.FindByCountry")
	defer span.End()
	q := `SELECT ` + universityColumns + ` FROM universities WHERE country = $1 ORDER BY name`
	args := []any{country}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=university.find_country: %w", err)
	}
	defer rows.Close()
	return collectUniversities(rows)
}

// FindByNameAndCountry loads one university by its identity key.
func (r *UniversityRepo) FindByNameAndCountry(ctx domain.Context, name, country string) (domain.University, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.FindByNameAndCountry")
	defer span.End()
	q := `SELECT ` + universityColumns + ` FROM universities WHERE name = $1 AND country = $2 LIMIT 1`
	u, err := scanUniversity(r.Pool.QueryRow(ctx, q, name, country))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.University{}, fmt.Errorf("op=university.find_name_country: %w", domain.ErrNotFound)
		}
		return domain.University{}, fmt.Errorf("op=university.find_name_country: %w", err)
	}
	return u, nil
}

// Create inserts a new university and returns its id (generates one if
// empty). Duplicate (name, country) pairs map to domain.ErrConflict.
func (r *UniversityRepo) Create(ctx domain.Context, u domain.University) (string, error) {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "universities"),
	)
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	courses, err := json.Marshal(u.Courses)
	if err != nil {
		return "", fmt.Errorf("op=university.create: %w", err)
	}
	features, err := json.Marshal(u.KeyFeatures)
	if err != nil {
		return "", fmt.Errorf("op=university.create: %w", err)
	}
	q := `INSERT INTO universities (id, name, city, state, country, courses, placement_pct, avg_salary, ranking, utype, key_features, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`
	_, err = r.Pool.Exec(ctx, q, id, u.Name, u.Location.City, u.Location.State, u.Location.Country,
		courses, u.Benchmarks.PlacementPercentage, u.Benchmarks.AverageSalary, u.Benchmarks.Ranking,
		u.Type, features, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("op=university.create: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=university.create: %w", err)
	}
	return id, nil
}

// AppendCourse adds one course to an existing record.
func (r *UniversityRepo) AppendCourse(ctx domain.Context, id string, c domain.Course) error {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.AppendCourse")
	defer span.End()
	course, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("op=university.append_course: %w", err)
	}
	q := `UPDATE universities SET courses = courses || $2::jsonb, updated_at = $3 WHERE id = $1`
	tag, err := r.Pool.Exec(ctx, q, id, course, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=university.append_course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=university.append_course: %w", domain.ErrNotFound)
	}
	return nil
}

// ReplaceCourses overwrites the course list of an existing record.
func (r *UniversityRepo) ReplaceCourses(ctx domain.Context, id string, courses []domain.Course) error {
	tracer := otel.Tracer("repo.universities")
	ctx, span := tracer.Start(ctx, "universities.ReplaceCourses")
	defer span.End()
	payload, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("op=university.replace_courses: %w", err)
	}
	q := `UPDATE universities SET courses = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.Pool.Exec(ctx, q, id, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=university.replace_courses: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=university.replace_courses: %w", domain.ErrNotFound)
	}
	return nil
}

func collectUniversities(rows pgx.Rows) ([]domain.University, error) {
	var out []domain.University
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, fmt.Errorf("op=university.scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=university.rows: %w", err)
	}
	return out, nil
}

func scanUniversity(row pgx.Row) (domain.University, error) {
	var (
		u        domain.University
		courses  []byte
		features []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Location.City, &u.Location.State, &u.Location.Country,
		&courses, &u.Benchmarks.PlacementPercentage, &u.Benchmarks.AverageSalary, &u.Benchmarks.Ranking,
		&u.Type, &features, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.University{}, err
	}
	if len(courses) > 0 {
		if err := json.Unmarshal(courses, &u.Courses); err != nil {
			return domain.University{}, err
		}
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &u.KeyFeatures); err != nil {
			return domain.University{}, err
		}
	}
	return u, nil
}
