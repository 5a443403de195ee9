package hotspot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/db"
	dbRedis "github.com/kailas-cloud/hotspotd/internal/db/redis"
	"github.com/kailas-cloud/hotspotd/internal/domain"
	"github.com/kailas-cloud/hotspotd/internal/metrics"
	"github.com/kailas-cloud/hotspotd/internal/repository/embcache"
	hotspotrepo "github.com/kailas-cloud/hotspotd/internal/repository/hotspot"
	"github.com/kailas-cloud/hotspotd/internal/repository/statscache"
	openaiEmb "github.com/kailas-cloud/hotspotd/internal/transport/openai"
	"github.com/kailas-cloud/hotspotd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/hotspotd/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDimensions       = 1024
	defaultMarkerTTL        = 60 * time.Second
	defaultStatsTTL         = 300 * time.Second
)

// Internal interfaces, swappable in tests.
type catalogUseCase interface {
	AddOne(ctx context.Context, groupID string, in catalog.QuestionInput) catalog.Response
	AddBatch(ctx context.Context, groupID string, items []catalog.QuestionInput) catalog.Response
	UpdateOne(ctx context.Context, groupID, questionID string, upd domain.QuestionUpdate) catalog.Response
	QueryOne(ctx context.Context, groupID, queryText string, k int, minSimilarity float64) catalog.Response
	QueryBatch(ctx context.Context, groupID string, queryTexts []string, k int, minSimilarity float64) catalog.Response
	GetOne(ctx context.Context, groupID, questionID string) catalog.Response
	List(ctx context.Context, groupID string, offset, limit int) catalog.Response
	DeleteOne(ctx context.Context, groupID, questionID string) catalog.Response
	DeleteByCategory(ctx context.Context, groupID, category string) catalog.Response
	Stats(ctx context.Context, groupID string) catalog.Response
	RecreateIndex(ctx context.Context, groupID string) catalog.Response
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the hotspot SDK entry point.
type Client struct {
	store   db.Store
	catalog catalogUseCase
	health  healthUseCase
	obs     *observer
}

// New creates a hotspot Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{dimensions: defaultDimensions}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("hotspot: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("hotspot: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("hotspot: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	embedder, embHealth := buildEmbedder(cfg, store, logger)

	repo := hotspotrepo.New(store, logger, cfg.dimensions, defaultMarkerTTL)
	stats := statscache.New(store, repo, logger, defaultStatsTTL)

	svc := catalog.New(repo, embedder, stats, logger).WithLimits(
		cfg.defaultQueryLimit, cfg.defaultListLimit, cfg.maxListLimit, cfg.maxBatchSize,
	)

	return &Client{
		store:   store,
		catalog: svc,
		health:  healthuc.New(store, embHealth),
		obs:     obs,
	}
}

// buildEmbedder returns the embedder chain and, when a real provider is
// configured, its health checker.
func buildEmbedder(
	cfg *clientConfig, store db.Store, logger *zap.Logger,
) (domain.Embedder, healthuc.EmbeddingChecker) {
	if cfg.embedding == nil {
		return &noopEmbedder{dimensions: cfg.dimensions}, nil
	}

	provider := cfg.embedding.Provider
	if provider == "" {
		provider = "openai"
	}
	dimensions := cfg.embedding.Dimensions
	if dimensions <= 0 {
		dimensions = cfg.dimensions
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.embedding.APIKey,
		BaseURL:    cfg.embedding.BaseURL,
		Model:      cfg.embedding.Model,
		Dimensions: dimensions,
		Provider:   provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.embeddingCache {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}
	return embedder, base
}

// noopEmbedder degrades every input to a zero vector. Used when no embedding
// provider is configured; CRUD still works, semantic queries match nothing.
type noopEmbedder struct {
	dimensions int
}

func (n *noopEmbedder) EmbedBatch(_ context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = domain.ZeroVector(n.dimensions)
	}
	return out
}

func (n *noopEmbedder) EmbedOne(_ context.Context, _ string) []float32 {
	return domain.ZeroVector(n.dimensions)
}

// Group returns a client scoped to one tenant group.
func (c *Client) Group(groupID string) *GroupService {
	return &GroupService{groupID: groupID, catalog: c.catalog, obs: c.obs}
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// Close releases the database connection.
func (c *Client) Close() {
	c.store.Close()
}
