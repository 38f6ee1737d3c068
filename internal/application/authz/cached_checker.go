package authz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/authz"
)

// CachedChecker wraps a Checker with read-through decision caching:
// 1. Look the query up in the decision cache
// 2. On a miss, ask the wrapped checker
// 3. Cache whatever the legacy system answered
//
// Only answers are cached. When the wrapped checker reports the legacy
// system unavailable, nothing is stored: a stale answer must never mask
// an outage, and an outage must never poison the cache.
type CachedChecker struct {
	inner  authz.Checker
	cache  authz.DecisionCache
	logger *zap.Logger
	config authz.CacheConfig
}

// CachedCheckerOption is a functional option for configuring the cached checker
type CachedCheckerOption func(*CachedChecker)

// WithCachedCheckerLogger sets the logger
func WithCachedCheckerLogger(logger *zap.Logger) CachedCheckerOption {
	return func(c *CachedChecker) {
		c.logger = logger
	}
}

// WithCachedCheckerConfig sets the cache config
func WithCachedCheckerConfig(config authz.CacheConfig) CachedCheckerOption {
	return func(c *CachedChecker) {
		c.config = config
	}
}

// NewCachedChecker creates a new caching decorator around a checker
func NewCachedChecker(inner authz.Checker, cache authz.DecisionCache, opts ...CachedCheckerOption) *CachedChecker {
	c := &CachedChecker{
		inner:  inner,
		cache:  cache,
		logger: zap.NewNop(),
		config: authz.DefaultCacheConfig(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckPermission answers from the cache when possible, otherwise asks the
// wrapped checker and remembers its answer.
func (c *CachedChecker) CheckPermission(ctx context.Context, subjectID int64, operation string) (bool, error) {
	query, err := authz.NewPermissionQuery(subjectID, operation)
	if err != nil {
		return false, err
	}

	cached, err := c.cache.Get(ctx, query)
	if err != nil {
		// A broken cache degrades to a direct check, never to a failure
		c.logger.Warn("Decision cache read failed",
			zap.String("query", query.String()),
			zap.Error(err))
	} else if cached != nil {
		return cached.Authorized, nil
	}

	authorized, err := c.inner.CheckPermission(ctx, subjectID, operation)
	if err != nil {
		return false, err
	}

	decision := authz.Decision{
		Query:      query,
		Authorized: authorized,
		DecidedAt:  time.Now(),
	}
	if err := c.cache.Set(ctx, decision, c.config.TTL); err != nil {
		c.logger.Warn("Decision cache write failed",
			zap.String("query", query.String()),
			zap.Error(err))
	}

	return authorized, nil
}

// InvalidateSubject drops every cached decision for a legacy subject
func (c *CachedChecker) InvalidateSubject(ctx context.Context, subjectID int64) error {
	return c.cache.DeleteSubject(ctx, subjectID)
}

// Interface guard
var _ authz.Checker = (*CachedChecker)(nil)
