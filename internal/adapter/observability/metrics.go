package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	RecommendationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_total",
			Help: "Recommendation cache lookups by outcome (hit, miss, stale, bypass)",
		},
		[]string{"outcome"},
	)
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Completed recommendation computations by outcome (ok, empty, fallback)",
		},
		[]string{"outcome"},
	)
	RelaxationStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaxation_steps_total",
			Help: "Filter relaxation steps applied, by step token",
		},
		[]string{"step"},
	)
	EnrichmentIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_ingested_total",
			Help: "University records created or backfilled by enrichment",
		},
		[]string{"mode"},
	)
	EnrichmentFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrichment_failures_total",
			Help: "Non-fatal enrichment failures",
		},
	)

	// MatchScoreHistogram tracks the distribution of composite match
	// scores returned to students (scaled to 0-100+).
	MatchScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_match_score",
			Help:    "Distribution of top-candidate match scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110},
		},
	)
)

// InitMetrics registers all collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(RecommendationCacheTotal)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(RelaxationStepsTotal)
	prometheus.MustRegister(EnrichmentIngestedTotal)
	prometheus.MustRegister(EnrichmentFailuresTotal)
	prometheus.MustRegister(MatchScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// CacheLookup records one cache lookup outcome.
func CacheLookup(outcome string) { RecommendationCacheTotal.WithLabelValues(outcome).Inc() }

// RelaxationStep records one applied relaxation step.
func RelaxationStep(step string) { RelaxationStepsTotal.WithLabelValues(step).Inc() }
