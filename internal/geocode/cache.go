package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"prospector/internal/platform/metrics"
)

const cacheKeyPrefix = "geocode:"

// Cache is the subset of the go-redis API the cached resolver needs.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedResolver reuses successful lookups. Failures are never cached so a
// later event can still resolve the address once the service recovers.
type CachedResolver struct {
	next    Resolver
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*CachedResolver)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(r *CachedResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(r *CachedResolver) {
		r.metrics = m
	}
}

func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration, opts ...CacheOption) (*CachedResolver, error) {
	if next == nil {
		return nil, errors.New("resolver is required")
	}
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	r := &CachedResolver{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve serves from cache when possible. Cache errors degrade to a direct
// lookup.
func (r *CachedResolver) Resolve(ctx context.Context, address string) (Point, bool) {
	key := cacheKey(address)

	raw, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Point
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			r.metrics.IncGeocodeCache("hit")
			return p, true
		}
		r.metrics.IncGeocodeCache("error")
		r.logger.WarnContext(ctx, "discarding corrupt geocode cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		r.metrics.IncGeocodeCache("miss")
	default:
		r.metrics.IncGeocodeCache("error")
		r.logger.WarnContext(ctx, "geocode cache read failed", "key", key, "error", err)
	}

	p, ok := r.next.Resolve(ctx, address)
	if !ok {
		return Point{}, false
	}

	payload, err := json.Marshal(p)
	if err == nil {
		err = r.cache.Set(ctx, key, payload, r.ttl).Err()
	}
	if err != nil {
		r.logger.WarnContext(ctx, "geocode cache write failed", "key", key, "error", err)
	}
	return p, true
}

func cacheKey(address string) string {
	sum := sha256.Sum256([]byte(address))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
