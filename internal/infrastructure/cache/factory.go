package cache

import (
	"fmt"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DecisionCacheFactory creates decision caches based on configuration
type DecisionCacheFactory struct {
	redisConfig           config.RedisConfig
	cacheConfig           authz.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DecisionCacheFactoryOption is a functional option for configuring the factory
type DecisionCacheFactoryOption func(*DecisionCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DecisionCacheFactoryOption {
	return func(f *DecisionCacheFactory) {
		f.logger = logger
	}
}

// WithDecisionCacheConfig sets the cache tuning passed to created caches
func WithDecisionCacheConfig(cfg authz.CacheConfig) DecisionCacheFactoryOption {
	return func(f *DecisionCacheFactory) {
		f.cacheConfig = cfg
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) DecisionCacheFactoryOption {
	return func(f *DecisionCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDecisionCacheFactory creates a new factory
func NewDecisionCacheFactory(cfg config.RedisConfig, opts ...DecisionCacheFactoryOption) *DecisionCacheFactory {
	f := &DecisionCacheFactory{
		redisConfig:           cfg,
		cacheConfig:           authz.DefaultCacheConfig(),
		logger:                zap.NewNop(),
		allowInMemoryFallback: true, // Default to allowing fallback
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based decision cache
func (f *DecisionCacheFactory) CreateRedisCache() (authz.DecisionCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisDecisionCache(redisCfg,
		WithCacheConfig(f.cacheConfig),
		WithCacheLogger(f.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis decision cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory decision cache
// This is suitable for single-instance deployments and testing
// WARNING: In-memory caches do not share state across process instances,
// so a revocation only reaches other instances after their entries expire
func (f *DecisionCacheFactory) CreateInMemoryCache() authz.DecisionCache {
	return NewInMemoryDecisionCache(
		WithInMemoryConfig(f.cacheConfig),
		WithInMemoryLogger(f.logger),
	)
}

// CreateCache creates a decision cache based on whether Redis is available
// It tries to create a Redis cache first, and falls back to in-memory if Redis
// is not available and AllowInMemoryFallback is true
func (f *DecisionCacheFactory) CreateCache() (authz.DecisionCache, error) {
	// Try Redis first
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis decision cache")
		return cache, nil
	}

	// Check if fallback is allowed
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for decision cache but unavailable: %w", err)
	}

	// Fall back to in-memory with warning
	f.logger.Warn("Redis unavailable, falling back to in-memory decision cache. "+
		"Revocations will not propagate across instances until entries expire.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
