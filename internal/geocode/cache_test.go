package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	entries map[string]string
	getErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.entries[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.sets++
	switch v := value.(type) {
	case []byte:
		f.entries[key] = string(v)
	case string:
		f.entries[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

type countingResolver struct {
	point Point
	ok    bool
	calls int
}

func (c *countingResolver) Resolve(context.Context, string) (Point, bool) {
	c.calls++
	return c.point, c.ok
}

func TestCachedResolver(t *testing.T) {
	ctx := context.Background()
	want := Point{Latitude: -22.9, Longitude: -43.2}

	t.Run("miss then hit", func(t *testing.T) {
		next := &countingResolver{point: want, ok: true}
		cache := newFakeCache()
		r, err := NewCachedResolver(next, cache, time.Hour)
		require.NoError(t, err)

		p, ok := r.Resolve(ctx, "Av. Atlântica, Rio de Janeiro")
		require.True(t, ok)
		assert.Equal(t, want, p)

		p, ok = r.Resolve(ctx, "Av. Atlântica, Rio de Janeiro")
		require.True(t, ok)
		assert.Equal(t, want, p)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		next := &countingResolver{ok: false}
		cache := newFakeCache()
		r, err := NewCachedResolver(next, cache, time.Hour)
		require.NoError(t, err)

		_, ok := r.Resolve(ctx, "unknown, ")
		assert.False(t, ok)
		_, ok = r.Resolve(ctx, "unknown, ")
		assert.False(t, ok)
		assert.Equal(t, 2, next.calls)
		assert.Zero(t, cache.sets)
	})

	t.Run("cache errors fall through to lookup", func(t *testing.T) {
		next := &countingResolver{point: want, ok: true}
		cache := newFakeCache()
		cache.getErr = errors.New("connection refused")
		r, err := NewCachedResolver(next, cache, time.Hour)
		require.NoError(t, err)

		p, ok := r.Resolve(ctx, "Av. Atlântica, Rio de Janeiro")
		require.True(t, ok)
		assert.Equal(t, want, p)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("corrupt entries are ignored", func(t *testing.T) {
		next := &countingResolver{point: want, ok: true}
		cache := newFakeCache()
		cache.entries[cacheKey("x")] = "{not json"
		r, err := NewCachedResolver(next, cache, time.Hour)
		require.NoError(t, err)

		p, ok := r.Resolve(ctx, "x")
		require.True(t, ok)
		assert.Equal(t, want, p)
		assert.Equal(t, 1, next.calls)
	})
}

func TestNewCachedResolverRequiresCollaborators(t *testing.T) {
	_, err := NewCachedResolver(nil, newFakeCache(), time.Hour)
	assert.Error(t, err)
	_, err = NewCachedResolver(&countingResolver{}, nil, time.Hour)
	assert.Error(t, err)
}
