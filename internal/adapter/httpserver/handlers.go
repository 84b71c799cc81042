package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/taxonomy"
	"github.com/unicompass/unicompass/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg          config.Config
	Recommend    *usecase.RecommendationService
	Chat         *usecase.ChatService
	Enricher     domain.Enricher
	Universities domain.UniversityRepository
	DBCheck      func(ctx context.Context) error
	RedisCheck   func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, rec *usecase.RecommendationService, chat *usecase.ChatService, enricher domain.Enricher, universities domain.UniversityRepository, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Recommend: rec, Chat: chat, Enricher: enricher, Universities: universities, DBCheck: dbCheck, RedisCheck: redisCheck}
}

type profileRequest struct {
	Profile map[string]any `json:"profile" validate:"required"`
}

// RecommendationsHandler runs the full pipeline for the submitted
// profile.
func (s *Server) RecommendationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		profile := usecase.ParseProfile(req.Profile)
		opts := usecase.RecommendOptions{
			NoCache:     queryFlag(r, "noCache"),
			ForceIngest: queryFlag(r, "forceIngest"),
		}

		result, err := s.Recommend.Recommend(r.Context(), UserID(r), profile, opts)
		if err != nil {
			LoggerFrom(r).Error("recommendation failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type previewResponse struct {
	RecommendedUniversities []domain.RecommendedUniversity `json:"recommendedUniversities"`
	AppliedFilters          appliedFilters                 `json:"appliedFilters"`
}

type appliedFilters struct {
	Field     string   `json:"field,omitempty"`
	Locations []string `json:"locations,omitempty"`
	MaxFee    float64  `json:"maxFee,omitempty"`
}

// PreviewHandler ranks without generating a note.
func (s *Server) PreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		profile := usecase.ParseProfile(req.Profile)

		recommended, filter, err := s.Recommend.Preview(r.Context(), profile)
		if err != nil {
			LoggerFrom(r).Error("preview failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, previewResponse{
			RecommendedUniversities: recommended,
			AppliedFilters: appliedFilters{
				Field:     filter.Field,
				Locations: filter.Locations,
				MaxFee:    filter.MaxFee,
			},
		})
	}
}

type chatRequest struct {
	Message string             `json:"message" validate:"required"`
	Context usecase.ChatContext `json:"context"`
	History []usecase.ChatTurn  `json:"history" validate:"max=50"`
}

// ChatHandler answers a follow-up question about a recommendation.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		reply, err := s.Chat.Respond(r.Context(), req.Message, req.Context, req.History)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

type enrichRequest struct {
	Country string  `json:"country" validate:"required"`
	Field   string  `json:"field"`
	Budget  float64 `json:"budget" validate:"gte=0"`
	Force   bool    `json:"force"`
}

type enrichCounts struct {
	CountryTotal int  `json:"countryTotal"`
	FieldCount   *int `json:"fieldCount"`
}

type enrichResponse struct {
	Country string              `json:"country"`
	Field   string              `json:"field,omitempty"`
	Result  domain.IngestReport `json:"result"`
	Counts  enrichCounts        `json:"counts"`
}

// EnrichHandler triggers catalog ingestion for a country on demand.
func (s *Server) EnrichHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrichRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		field := taxonomy.MapField(req.Field)
		report, err := s.Enricher.Ingest(r.Context(), req.Country, domain.IngestOptions{
			Budget: req.Budget,
			Field:  field,
			Force:  req.Force,
		})
		if err != nil {
			LoggerFrom(r).Error("enrichment failed", "country", req.Country, "error", err)
			writeError(w, r, err, nil)
			return
		}

		counts := enrichCounts{}
		counts.CountryTotal, err = s.Universities.CountByCountry(r.Context(), req.Country)
		if err != nil {
			writeError(w, r, fmt.Errorf("op=enrich counts: %w", err), nil)
			return
		}
		if field != "" {
			n, err := s.Universities.CountByCountryAndField(r.Context(), req.Country, field)
			if err != nil {
				writeError(w, r, fmt.Errorf("op=enrich counts: %w", err), nil)
				return
			}
			counts.FieldCount = &n
		}
		writeJSON(w, http.StatusOK, enrichResponse{
			Country: req.Country,
			Field:   field,
			Result:  report,
			Counts:  counts,
		})
	}
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler reports readiness of the backing stores.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]func(context.Context) error{
			"db":    s.DBCheck,
			"redis": s.RedisCheck,
		}
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if check == nil {
				status[name] = "skipped"
				continue
			}
			if err := check(r.Context()); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func queryFlag(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true"
}
