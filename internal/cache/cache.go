// Package cache provides Redis caching of project-scoped listings. Listings
// are the hot path: clients poll them, so they are cached per project and
// invalidated on every write to that project.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/config"
	"github.com/markloop/backend/internal/models"
)

const (
	// Cache key prefixes, keyed per project
	commentsKeyPrefix = "comments:"
	requestsKeyPrefix = "requests:"

	// Default TTL for cached items
	defaultTTL = 5 * time.Minute
)

// Cache defines the interface for caching operations.
type Cache interface {
	// GetComments retrieves the cached comment listing for a project.
	GetComments(ctx context.Context, projectID string) ([]models.Comment, bool, error)

	// SetComments stores the comment listing for a project.
	SetComments(ctx context.Context, projectID string, comments []models.Comment) error

	// InvalidateComments drops the cached comment listing for a project.
	InvalidateComments(ctx context.Context, projectID string) error

	// GetRequests retrieves the cached edit request listing for a project.
	GetRequests(ctx context.Context, projectID string) ([]models.EditRequest, bool, error)

	// SetRequests stores the edit request listing for a project.
	SetRequests(ctx context.Context, projectID string, requests []models.EditRequest) error

	// InvalidateRequests drops the cached edit request listing for a project.
	InvalidateRequests(ctx context.Context, projectID string) error

	// Close closes the cache connection.
	Close() error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(cfg *config.Config, logger *zap.Logger) (Cache, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis cache")

	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    defaultTTL,
	}, nil
}

// get loads and decodes a cached listing. Errors are treated as cache misses.
func (c *RedisCache) get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false // Cache miss
	}
	if err != nil {
		c.logger.Warn("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}

	c.logger.Debug("Cache hit", zap.String("key", key))
	return true
}

// set encodes and stores a listing under key with the configured TTL.
func (c *RedisCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to set cache", zap.String("key", key), zap.Error(err))
		return err
	}

	c.logger.Debug("Cached value", zap.String("key", key))
	return nil
}

// invalidate drops a cached listing.
func (c *RedisCache) invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cache", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// GetComments retrieves the cached comment listing for a project.
func (c *RedisCache) GetComments(ctx context.Context, projectID string) ([]models.Comment, bool, error) {
	var comments []models.Comment
	if !c.get(ctx, commentsKeyPrefix+projectID, &comments) {
		return nil, false, nil
	}
	return comments, true, nil
}

// SetComments stores the comment listing for a project.
func (c *RedisCache) SetComments(ctx context.Context, projectID string, comments []models.Comment) error {
	return c.set(ctx, commentsKeyPrefix+projectID, comments)
}

// InvalidateComments drops the cached comment listing for a project.
func (c *RedisCache) InvalidateComments(ctx context.Context, projectID string) error {
	return c.invalidate(ctx, commentsKeyPrefix+projectID)
}

// GetRequests retrieves the cached edit request listing for a project.
func (c *RedisCache) GetRequests(ctx context.Context, projectID string) ([]models.EditRequest, bool, error) {
	var requests []models.EditRequest
	if !c.get(ctx, requestsKeyPrefix+projectID, &requests) {
		return nil, false, nil
	}
	return requests, true, nil
}

// SetRequests stores the edit request listing for a project.
func (c *RedisCache) SetRequests(ctx context.Context, projectID string, requests []models.EditRequest) error {
	return c.set(ctx, requestsKeyPrefix+projectID, requests)
}

// InvalidateRequests drops the cached edit request listing for a project.
func (c *RedisCache) InvalidateRequests(ctx context.Context, projectID string) error {
	return c.invalidate(ctx, requestsKeyPrefix+projectID)
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.client.Close()
}
