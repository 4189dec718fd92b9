package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"listing-fraud-detector/models"
)

const verdictKeyPrefix = "verdict:"

// RedisCache stores verdicts by listing fingerprint.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache connects to addr and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("verdict cache initialized",
		zap.String("addr", addr),
		zap.Int("db", db),
		zap.Duration("ttl", ttl))

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

// GetVerdict returns the cached verdict for key, if any.
func (r *RedisCache) GetVerdict(ctx context.Context, key string) (*models.Verdict, bool, error) {
	data, err := r.client.Get(ctx, verdictKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var v models.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Warn("discarding unreadable cached verdict", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return &v, true, nil
}

// SetVerdict caches v under key for the configured TTL.
func (r *RedisCache) SetVerdict(ctx context.Context, key string, v *models.Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis encode verdict: %w", err)
	}
	if err := r.client.Set(ctx, verdictKeyPrefix+key, data, r.ttl).Err(); err != nil {
		r.logger.Error("redis set failed",
			zap.String("key", key),
			zap.Duration("ttl", r.ttl),
			zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether redis is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
