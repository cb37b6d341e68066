//go:build integration

package geocode_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/internal/geocode"
	"prospector/internal/platform/config"
	redisclient "prospector/internal/platform/redis"
	"prospector/pkg/testutil/containers"
)

type stubResolver struct {
	calls int
}

func (s *stubResolver) Resolve(context.Context, string) (geocode.Point, bool) {
	s.calls++
	return geocode.Point{Latitude: -15.79, Longitude: -47.88}, true
}

func TestCachedResolverAgainstRedis(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	client, err := redisclient.New(ctx, config.RedisConfig{URL: rc.URL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Health(ctx))

	next := &stubResolver{}
	cached, err := geocode.NewCachedResolver(next, client, time.Minute)
	require.NoError(t, err)

	for range 3 {
		point, ok := cached.Resolve(ctx, "Esplanada, Brasília")
		require.True(t, ok)
		assert.Equal(t, -15.79, point.Latitude)
	}
	assert.Equal(t, 1, next.calls)

	keys, err := rc.Client.Keys(ctx, "geocode:*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	ttl, err := rc.Client.TTL(ctx, keys[0]).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, rc.FlushAll(ctx))
	_, ok := cached.Resolve(ctx, "Esplanada, Brasília")
	assert.True(t, ok)
	assert.Equal(t, 2, next.calls)
}
