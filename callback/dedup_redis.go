package callback

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedupStore is a DedupStore backed by Redis SETNX with a TTL, for
// deployments running more than one receiver instance.
type RedisDedupStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisDedupOption configures a RedisDedupStore.
type RedisDedupOption func(s *RedisDedupStore)

// WithRedisDedupPrefix sets the key prefix.
func WithRedisDedupPrefix(prefix string) RedisDedupOption {
	return func(s *RedisDedupStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithRedisDedupTTL sets how long delivery ids are remembered.
func WithRedisDedupTTL(ttl time.Duration) RedisDedupOption {
	return func(s *RedisDedupStore) { s.ttl = ttl }
}

// NewRedisDedupStore creates a Redis-backed store with a 24h default TTL.
func NewRedisDedupStore(rdb *redis.Client, options ...RedisDedupOption) *RedisDedupStore {
	ret := &RedisDedupStore{
		rdb:    rdb,
		prefix: "threadlink:delivery",
		ttl:    24 * time.Hour,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

func (s *RedisDedupStore) Mark(ctx context.Context, deliveryID string) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+":"+deliveryID, 1, s.ttl).Result()
}

func (s *RedisDedupStore) Close() error { return s.rdb.Close() }
