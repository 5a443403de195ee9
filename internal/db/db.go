package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	// JSONSetMulti writes all items in one DoMulti round trip and reports a
	// per-item outcome (nil entry = success). The returned slice always has
	// len(items) entries.
	JSONSetMulti(ctx context.Context, items []JSONSetItem) []error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti fetches the given paths for every key in one round trip.
	// Missing keys yield a nil payload rather than an error.
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	Del(ctx context.Context, key string) (bool, error)
	// DelMulti deletes all keys in one round trip and returns the number of
	// keys actually removed plus per-item errors.
	DelMulti(ctx context.Context, keys []string) (int, []error)
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations used for TTL'd markers and caches.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	// Expire sets a TTL on key; with nx=true only when the key has no expiry yet.
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Unlink(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
