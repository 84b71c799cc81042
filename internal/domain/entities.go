// Package domain defines the core entities and ports of the
// recommendation engine. Adapters and usecases depend on this package;
// it depends on nothing but the standard library.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrInternal        = errors.New("internal error")
)

// Context is an alias so usecases and repositories share one signature.
type Context = context.Context

// Academics carries the academic portion of a student profile.
type Academics struct {
	Board        string   `json:"board,omitempty"`
	Grade12Score *float64 `json:"grade12Score,omitempty"`
}

// Interests carries the study-interest portion of a student profile.
type Interests struct {
	FieldOfStudy string   `json:"fieldOfStudy,omitempty"`
	Courses      []string `json:"courses,omitempty"`
}

// Preferences carries budget, location and priority preferences.
type Preferences struct {
	Locations      []string `json:"locations,omitempty"`
	Budget         float64  `json:"budget,omitempty"`
	Priorities     []string `json:"priorities,omitempty"`
	UniversityType []string `json:"universityType,omitempty"`
}

// Profile is the canonical student profile consumed by the pipeline.
// Invariant: FieldOfStudy, when set, is a canonical taxonomy value or a
// capitalized pass-through of unrecognized input, never an empty string
// standing in for "unknown".
type Profile struct {
	Academics   Academics   `json:"academics"`
	Interests   Interests   `json:"interests"`
	Preferences Preferences `json:"preferences"`
}

// Course is one program offered by a university.
type Course struct {
	Name      string  `json:"name"`
	Field     string  `json:"field"`
	AnnualFee float64 `json:"annualFee"`
}

// Location of a university. Any component may be empty.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Benchmarks holds outcome metrics used for scoring.
type Benchmarks struct {
	PlacementPercentage float64 `json:"placementPercentage"`
	AverageSalary       float64 `json:"averageSalary"`
	Ranking             int     `json:"ranking"`
}

// University is a persistent catalog record. (Name, Location.Country) is
// the identity key for ingestion de-duplication.
type University struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    Location   `json:"location"`
	Courses     []Course   `json:"courses"`
	Benchmarks  Benchmarks `json:"benchmarks"`
	Type        string     `json:"type"`
	KeyFeatures []string   `json:"keyFeatures"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// AverageAnnualFee returns the mean annual fee across courses, 0 when the
// record has no courses.
func (u University) AverageAnnualFee() float64 {
	if len(u.Courses) == 0 {
		return 0
	}
	var sum float64
	for _, c := range u.Courses {
		sum += c.AnnualFee
	}
	return sum / float64(len(u.Courses))
}

// Weights are the factor weights applied to normalized sub-scores.
// Priority nudges shift them without renormalizing, so the sum may
// drift from 1.0 and the composite score is a plain weighted sum.
type Weights struct {
	Placement     float64 `json:"placement"`
	Salary        float64 `json:"salary"`
	Ranking       float64 `json:"ranking"`
	FeeEfficiency float64 `json:"feeEfficiency"`
	FeatureMatch  float64 `json:"featureMatch"`
}

// SubScores are per-candidate normalized factors, each in [0,1].
type SubScores struct {
	Placement           float64 `json:"placementNorm"`
	Salary              float64 `json:"salaryNorm"`
	Ranking             float64 `json:"rankingNorm"`
	FeeEfficiencyScaled float64 `json:"feeEfficiencyScaled"`
	FeeEfficiency       float64 `json:"feeEfficiency"`
}

// DebugMeta records how a candidate's score was produced.
type DebugMeta struct {
	Weights           Weights  `json:"weights"`
	FeatureMatchScore float64  `json:"featureMatchScore"`
	PriorityMatches   []string `json:"priorityMatches,omitempty"`
	LocationBoost     bool     `json:"locationBoost,omitempty"`
	EmbedScore        *float64 `json:"embedScore,omitempty"`
}

// ScoredCandidate is a request-scoped University with scoring state.
// Never persisted; discarded after response assembly.
type ScoredCandidate struct {
	University
	Normalized SubScores
	Score      float64
	Debug      DebugMeta
}

// RecommendedUniversity is the response-facing projection of a scored
// candidate.
type RecommendedUniversity struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Location      string     `json:"location"`
	MatchScore    int        `json:"matchScore"`
	PlacementRate float64    `json:"placementRate"`
	AvgSalary     float64    `json:"avgSalary"`
	AnnualFee     float64    `json:"annualFee"`
	Ranking       int        `json:"ranking"`
	Tags          []string   `json:"tags"`
	KeyFeatures   []string   `json:"keyFeatures"`
	Debug         *DebugMeta `json:"debugMeta,omitempty"`
}

// IngestionFailure records a non-fatal enrichment error for diagnostics.
type IngestionFailure struct {
	Country string `json:"country"`
	Error   string `json:"error"`
}

// Diagnostics explains how the candidate set was produced.
type Diagnostics struct {
	RelaxationSteps      []string           `json:"relaxationSteps"`
	RequestedLocations   []string           `json:"requestedLocations"`
	CountryLike          []string           `json:"countryLike"`
	CountryMatchCount    int                `json:"countryMatchCount"`
	IngestionFailures    []IngestionFailure `json:"ingestionFailures"`
	StrictNoCrossCountry bool               `json:"strictNoCrossCountry,omitempty"`
}

// ModelMeta describes the generative call that produced a note.
type ModelMeta struct {
	Provider          string `json:"provider"`
	Model             string `json:"model"`
	TokensIn          int    `json:"tokensIn"`
	TokensOut         int    `json:"tokensOut"`
	LatencyMs         int64  `json:"latencyMs"`
	FallbackReason    string `json:"fallbackReason,omitempty"`
	EmptyUniversities bool   `json:"emptyUniversities,omitempty"`
	StrictCountry     bool   `json:"strictCountry,omitempty"`
}

// Generation is the result of one generative-text call.
type Generation struct {
	Text string
	Meta ModelMeta
}

// RecommendationResult is the full payload of the primary operation.
type RecommendationResult struct {
	AICounsellorNote        string                  `json:"aiCounsellorNote"`
	RecommendedUniversities []RecommendedUniversity `json:"recommendedUniversities"`
	FromCache               bool                    `json:"fromCache"`
	ModelMeta               ModelMeta               `json:"modelMeta"`
	IsFallback              bool                    `json:"isFallback"`
	DataSourceNote          string                  `json:"dataSourceNote"`
	Diagnostics             Diagnostics             `json:"diagnostics"`
}

// CachedRecommendation is the snapshot stored per (user, profile hash).
// An entry is stale once now - Timestamp reaches the configured TTL.
type CachedRecommendation struct {
	AICounsellorNote        string                  `json:"aiCounsellorNote"`
	RecommendedUniversities []RecommendedUniversity `json:"recommendedUniversities"`
	ModelMeta               ModelMeta               `json:"modelMeta"`
	IsFallback              bool                    `json:"isFallback"`
	DataSourceNote          string                  `json:"dataSourceNote"`
	Diagnostics             Diagnostics             `json:"diagnostics"`
	Timestamp               int64                   `json:"timestamp"` // unix millis
}

// RecommendationRecord is the immutable audit row written once per
// non-cached recommendation call.
type RecommendationRecord struct {
	ID            string
	UserID        string
	Profile       Profile
	UniversityIDs []string
	AINote        string
	ModelMeta     ModelMeta
	CreatedAt     time.Time
}

// IngestOptions tune one enrichment call.
type IngestOptions struct {
	Budget float64
	Field  string
	Force  bool
}

// IngestReport summarizes what an enrichment call did.
type IngestReport struct {
	Ingested int  `json:"ingested"`
	Skipped  bool `json:"skipped"`
	Enriched int  `json:"enriched,omitempty"`
}

// DirectoryEntry is one row from the external university listing API.
type DirectoryEntry struct {
	Name          string
	StateProvince string
}

// Ports

// UniversityRepository is the document-store port for catalog records.
type UniversityRepository interface {
	Find(ctx Context, f UniversityFilter, limit int) ([]University, error)
	Count(ctx Context, f UniversityFilter) (int, error)
	CountByCountry(ctx Context, country string) (int, error)
	CountByCountryAndField(ctx Context, country, field string) (int, error)
	FindByCountry(ctx Context, country string, limit int) ([]University, error)
	FindByNameAndCountry(ctx Context, name, country string) (University, error)
	Create(ctx Context, u University) (string, error)
	AppendCourse(ctx Context, id string, c Course) error
	ReplaceCourses(ctx Context, id string, courses []Course) error
}

// RecommendationRepository persists recommendation audit records.
type RecommendationRepository interface {
	Create(ctx Context, rec RecommendationRecord) (string, error)
}

// RecommendationCache memoizes full recommendation payloads.
// Get returns ok=false for both absent and unreadable entries.
type RecommendationCache interface {
	Get(ctx Context, key string) (CachedRecommendation, bool, error)
	Set(ctx Context, key string, entry CachedRecommendation) error
}

// TextGenerator is the generative-text collaborator port.
type TextGenerator interface {
	Generate(ctx Context, prompt string, maxTokens int, temperature float64) (Generation, error)
}

// Embedder is the optional vector-embedding collaborator port.
type Embedder interface {
	Enabled() bool
	Embed(ctx Context, texts []string) ([][]float32, error)
}

// Enricher triggers on-demand catalog ingestion for a country.
type Enricher interface {
	Ingest(ctx Context, country string, opts IngestOptions) (IngestReport, error)
}

// DirectoryClient fetches raw university listings for a country.
type DirectoryClient interface {
	Search(ctx Context, country string) ([]DirectoryEntry, error)
}
