package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"listing-fraud-detector/models"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := NewRedisCache(context.Background(), mr.Addr(), "", 0, ttl, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.GetVerdict(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	v := &models.Verdict{
		Score:       0.81,
		Label:       models.LabelHighRisk,
		Explanation: []models.Contribution{{Feature: "no_images", Contribution: 0.05}},
	}
	require.NoError(t, cache.SetVerdict(ctx, "abc", v))
	assert.True(t, mr.Exists("verdict:abc"))

	got, ok, err := cache.GetVerdict(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v, got)
}

func TestRedisCacheExpires(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.SetVerdict(ctx, "k", &models.Verdict{Score: 0.1, Label: models.LabelSafe}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.GetVerdict(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDiscardsCorruptEntries(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	require.NoError(t, mr.Set("verdict:bad", "{not json"))

	_, ok, err := cache.GetVerdict(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCacheFailures(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "127.0.0.1:1", "", 0, time.Minute, nil)
	assert.ErrorContains(t, err, "logger is required")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), addr, "", 0, time.Minute, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "redis connection failed")
}
