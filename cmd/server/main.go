// Command server starts the UniCompass recommendation HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/unicompass/unicompass/internal/adapter/ai"
	"github.com/unicompass/unicompass/internal/adapter/ai/hf"
	"github.com/unicompass/unicompass/internal/adapter/cache/rediscache"
	"github.com/unicompass/unicompass/internal/adapter/directory/hipolabs"
	httpserver "github.com/unicompass/unicompass/internal/adapter/httpserver"
	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/adapter/repo/postgres"
	"github.com/unicompass/unicompass/internal/app"
	"github.com/unicompass/unicompass/internal/config"
	"github.com/unicompass/unicompass/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool and schema
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Redis cache
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("redis url invalid", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	cache := rediscache.New(rdb, cfg.CacheProfileTTL)

	// Repositories
	uniRepo := postgres.NewUniversityRepo(pool)
	recRepo := postgres.NewRecommendationRepo(pool)

	// Generative stack and enrichment collaborators
	generator := ai.NewFromConfig(cfg)
	embedder := hf.New(cfg)
	directory := hipolabs.New(cfg)
	enricher := usecase.NewEnrichmentService(uniRepo, directory)

	prompts := &usecase.PromptLibrary{
		Dir:              cfg.PromptDir,
		RecommendVersion: cfg.PromptVersionRecomm,
		ChatVersion:      cfg.PromptVersionChat,
	}

	recommendSvc := &usecase.RecommendationService{
		Selector:        &usecase.CandidateSelector{Repo: uniRepo, Enricher: enricher},
		Recommendations: recRepo,
		Cache:           cache,
		Generator:       generator,
		Embedder:        embedder,
		Prompts:         prompts,
		ProviderName:    cfg.AIProvider,
		ModelName:       cfg.ModelName,
		CacheTTL:        cfg.CacheProfileTTL,
		MaxRecTokens:    cfg.AIMaxRecTokens,
	}
	chatSvc := &usecase.ChatService{
		Generator:     generator,
		Prompts:       prompts,
		MaxChatTokens: cfg.AIMaxChatTokens,
	}

	// Background catalog sweep keeps popular countries fresh.
	sweepCtx, stopSweep := context.WithCancel(observability.ContextWithLogger(ctx, logger))
	defer stopSweep()
	go enricher.RunPeriodic(sweepCtx, cfg.SweepInterval, cfg.SweepCountries)
	slog.Info("enrichment sweep started",
		slog.Duration("interval", cfg.SweepInterval),
		slog.Int("countries", len(cfg.SweepCountries)))

	dbCheck, redisCheck := app.BuildReadinessChecks(pool, app.GoRedisAdapter{C: rdb})

	srv := httpserver.NewServer(cfg, recommendSvc, chatSvc, enricher, uniRepo, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
