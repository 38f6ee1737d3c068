package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for Redis cache configuration
const (
	decisionKeyPrefix    = "authz:decision:"
	defaultScanBatchSize = 100
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisDecisionCache implements DecisionCache using Redis
// This is suitable for distributed deployments where multiple bridge
// instances should share authorization decisions
type RedisDecisionCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	config     authz.CacheConfig
	logger     *zap.Logger
}

// RedisDecisionCacheOption is a functional option for configuring the cache
type RedisDecisionCacheOption func(*RedisDecisionCache)

// WithCacheConfig sets the cache configuration
func WithCacheConfig(config authz.CacheConfig) RedisDecisionCacheOption {
	return func(c *RedisDecisionCache) {
		c.config = config
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisDecisionCacheOption {
	return func(c *RedisDecisionCache) {
		c.logger = logger
	}
}

// NewRedisDecisionCache creates a new Redis-based decision cache
func NewRedisDecisionCache(cfg RedisConfig, opts ...RedisDecisionCacheOption) (*RedisDecisionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisDecisionCache{
		client:     client,
		ownsClient: true, // We created this client, so we own it
		config:     authz.DefaultCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisDecisionCacheWithClient creates a cache with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisDecisionCacheWithClient(client *redis.Client, opts ...RedisDecisionCacheOption) *RedisDecisionCache {
	cache := &RedisDecisionCache{
		client:     client,
		ownsClient: false, // Client is shared, don't close it
		config:     authz.DefaultCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// decisionKey generates the cache key for a permission query
func (c *RedisDecisionCache) decisionKey(query authz.PermissionQuery) string {
	return decisionKeyPrefix + query.String()
}

// subjectPattern generates the key pattern matching every decision of a subject
func (c *RedisDecisionCache) subjectPattern(subjectID int64) string {
	return fmt.Sprintf("%s%d:*", decisionKeyPrefix, subjectID)
}

// Get retrieves a cached decision for the query
func (c *RedisDecisionCache) Get(ctx context.Context, query authz.PermissionQuery) (*authz.Decision, error) {
	cacheKey := c.decisionKey(query)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		// Cache miss
		c.logger.Debug("Cache miss for authorization decision", zap.String("query", query.String()))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get decision from cache",
			zap.String("query", query.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get decision from cache: %w", err)
	}

	var decision authz.Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		c.logger.Error("Failed to unmarshal cached decision",
			zap.String("query", query.String()),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
	}

	c.logger.Debug("Cache hit for authorization decision",
		zap.String("query", query.String()),
		zap.Bool("authorized", decision.Authorized))
	return &decision, nil
}

// Set stores a decision in cache
func (c *RedisDecisionCache) Set(ctx context.Context, decision authz.Decision, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.TTL
	}

	cacheKey := c.decisionKey(decision.Query)

	data, err := json.Marshal(decision)
	if err != nil {
		c.logger.Error("Failed to marshal decision",
			zap.String("query", decision.Query.String()),
			zap.Error(err))
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set decision in cache",
			zap.String("query", decision.Query.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set decision in cache: %w", err)
	}

	c.logger.Debug("Cached authorization decision",
		zap.String("query", decision.Query.String()),
		zap.Duration("ttl", ttl))
	return nil
}

// DeleteSubject removes every cached decision for a legacy subject
func (c *RedisDecisionCache) DeleteSubject(ctx context.Context, subjectID int64) error {
	deleted, err := c.deleteByPattern(ctx, c.subjectPattern(subjectID))
	if err != nil {
		c.logger.Error("Failed to delete subject decisions from cache",
			zap.Int64("subject_id", subjectID),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Deleted cached decisions for subject",
		zap.Int64("subject_id", subjectID),
		zap.Int64("deleted_count", deleted))
	return nil
}

// InvalidateAll removes all cached decisions
func (c *RedisDecisionCache) InvalidateAll(ctx context.Context) error {
	deleted, err := c.deleteByPattern(ctx, decisionKeyPrefix+"*")
	if err != nil {
		c.logger.Error("Failed to invalidate decision cache", zap.Error(err))
		return err
	}

	c.logger.Info("Invalidated all cached decisions",
		zap.Int64("deleted_count", deleted))
	return nil
}

// deleteByPattern removes all keys matching the pattern
// Uses SCAN to avoid blocking Redis with the KEYS command
func (c *RedisDecisionCache) deleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return deletedCount, fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deletedCount, fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	return deletedCount, nil
}

// Close releases any resources held by the cache
func (c *RedisDecisionCache) Close() error {
	// Only close client if we own it
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisDecisionCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisDecisionCache implements DecisionCache
var _ authz.DecisionCache = (*RedisDecisionCache)(nil)
