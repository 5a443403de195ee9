package hotspot

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	embedding      *EmbeddingConfig
	embeddingCache bool

	dimensions        int
	defaultQueryLimit int
	defaultListLimit  int
	maxListLimit      int
	maxBatchSize      int

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// EmbeddingConfig configures the OpenAI-compatible embedding provider.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string // label used in logs, defaults to "openai"
}

// WithRedis configures the client to connect to a Redis Stack instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithAuth sets the Redis username and logical database.
func WithAuth(username string, db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.db = db
	})
}

// WithEmbedding sets the embedding provider. Without it the client can still
// read, list, and delete, but adds and queries degrade to zero vectors and
// semantic queries match nothing.
func WithEmbedding(cfg EmbeddingConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedding = &cfg
	})
}

// WithEmbeddingCache caches computed embeddings in Redis, keyed by text hash.
func WithEmbeddingCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingCache = true
	})
}

// WithDimensions sets the vector dimension for group indexes.
// Defaults to 1024 (bge-m3).
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithLimits overrides the default query, listing, and batch limits.
// Zero values keep the defaults (3, 50, 1000, 100).
func WithLimits(defaultQueryLimit, defaultListLimit, maxListLimit, maxBatchSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultQueryLimit = defaultQueryLimit
		c.defaultListLimit = defaultListLimit
		c.maxListLimit = maxListLimit
		c.maxBatchSize = maxBatchSize
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
