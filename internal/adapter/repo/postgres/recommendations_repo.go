package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/unicompass/unicompass/internal/domain"
)

// RecommendationRepo persists recommendation audit records.
type RecommendationRepo struct{ Pool PgxPool }

// NewRecommendationRepo constructs a RecommendationRepo with the given pool.
func NewRecommendationRepo(p PgxPool) *RecommendationRepo { return &RecommendationRepo{Pool: p} }

// Create inserts an audit record and returns its id.
func (r *RecommendationRepo) Create(ctx domain.Context, rec domain.RecommendationRecord) (string, error) {
	tracer := otel.Tracer("repo.recommendations")
	ctx, span := tracer.Start(ctx, "recommendations.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "recommendations"),
	)
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	profile, err := json.Marshal(rec.Profile)
	if err != nil {
		return "", fmt.Errorf("op=recommendation.create: %w", err)
	}
	ids, err := json.Marshal(rec.UniversityIDs)
	if err != nil {
		return "", fmt.Errorf("op=recommendation.create: %w", err)
	}
	meta, err := json.Marshal(rec.ModelMeta)
	if err != nil {
		return "", fmt.Errorf("op=recommendation.create: %w", err)
	}
	q := `INSERT INTO recommendations (id, user_id, profile, university_ids, ai_note, model_meta, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.Pool.Exec(ctx, q, id, rec.UserID, profile, ids, rec.AINote, meta, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=recommendation.create: %w", err)
	}
	return id, nil
}
