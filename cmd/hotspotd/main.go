package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/config"
	dbRedis "github.com/kailas-cloud/hotspotd/internal/db/redis"
	"github.com/kailas-cloud/hotspotd/internal/domain"
	logpkg "github.com/kailas-cloud/hotspotd/internal/logger"
	"github.com/kailas-cloud/hotspotd/internal/metrics"
	budgetrepo "github.com/kailas-cloud/hotspotd/internal/repository/budget"
	"github.com/kailas-cloud/hotspotd/internal/repository/embcache"
	hotspotrepo "github.com/kailas-cloud/hotspotd/internal/repository/hotspot"
	"github.com/kailas-cloud/hotspotd/internal/repository/statscache"
	chiTransport "github.com/kailas-cloud/hotspotd/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/hotspotd/internal/transport/openai"
	"github.com/kailas-cloud/hotspotd/internal/usecase/catalog"
	embeddinguc "github.com/kailas-cloud/hotspotd/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/hotspotd/internal/usecase/health"
	"github.com/kailas-cloud/hotspotd/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hotspotd API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	embedder, embChecker := buildEmbedder(ctx, cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache),
	)

	// Repositories
	repo := hotspotrepo.New(store, logger, cfg.Embedding.Dimensions,
		time.Duration(cfg.Catalog.IndexMarkerTTLSec)*time.Second)
	stats := statscache.New(store, repo, logger,
		time.Duration(cfg.Catalog.StatsTTLSec)*time.Second)

	// Use case services
	catalogSvc := catalog.New(repo, embedder, stats, logger).WithLimits(
		cfg.Catalog.DefaultQueryLimit,
		cfg.Catalog.DefaultListLimit,
		cfg.Catalog.MaxListLimit,
		cfg.Catalog.MaxBatchSize,
	)
	healthSvc := healthuc.New(store, embChecker)

	server := chiTransport.NewServer(catalogSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedder chain (OpenAI provider -> cache ->
// budget guard) and returns the base provider as the health checker. The
// decorators do not forward HealthCheck, so probing the chain would always
// report the provider healthy.
func buildEmbedder(
	ctx context.Context, cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger,
) (domain.Embedder, healthuc.EmbeddingChecker) {
	// Single BudgetTracker: checked by the guard, fed by the provider.
	var budget *embeddinguc.BudgetTracker
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.Budget.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Provider, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit, action, logger,
		)
		// Attach persistence and load current counters from the store.
		budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in an interface != nil.
	var usage openaiEmb.UsageRecorder
	var checker embeddinguc.BudgetChecker
	if budget != nil {
		usage = budget
		checker = budget
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Usage:      usage,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Cache {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewGuardedEmbedder(
		embedder, checker, cfg.Provider, cfg.Model, cfg.Dimensions, logger,
	), base
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"code":    http.StatusInternalServerError,
						"status":  "error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line -- one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
