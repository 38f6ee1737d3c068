package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/bridge/internal/domain/authz"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryDecisionCache implements DecisionCache using in-memory storage
// This is suitable for single-instance deployments and testing. State is
// not shared across instances, so a revocation only propagates to other
// instances once their entries expire.
type InMemoryDecisionCache struct {
	decisions sync.Map // map[string]*decisionEntry
	config    authz.CacheConfig
	logger    *zap.Logger
	stopCh    chan struct{} // Channel to stop the cleanup goroutine
	stopped   int32         // Atomic flag to track if cache is stopped

	// Stats for monitoring
	hits   int64
	misses int64
}

// decisionEntry wraps a cached decision with expiration time
type decisionEntry struct {
	decision  *authz.Decision
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *decisionEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryDecisionCacheOption is a functional option for configuring the cache
type InMemoryDecisionCacheOption func(*InMemoryDecisionCache)

// WithInMemoryConfig sets the cache configuration
func WithInMemoryConfig(config authz.CacheConfig) InMemoryDecisionCacheOption {
	return func(c *InMemoryDecisionCache) {
		c.config = config
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryDecisionCacheOption {
	return func(c *InMemoryDecisionCache) {
		c.logger = logger
	}
}

// NewInMemoryDecisionCache creates a new in-memory decision cache
func NewInMemoryDecisionCache(opts ...InMemoryDecisionCacheOption) *InMemoryDecisionCache {
	cache := &InMemoryDecisionCache{
		config: authz.DefaultCacheConfig(),
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// subjectKeyPrefix generates the key prefix shared by every decision of a subject
func (c *InMemoryDecisionCache) subjectKeyPrefix(subjectID int64) string {
	return strconv.FormatInt(subjectID, 10) + ":"
}

// Get retrieves a cached decision for the query
func (c *InMemoryDecisionCache) Get(ctx context.Context, query authz.PermissionQuery) (*authz.Decision, error) {
	cacheKey := query.String()

	if value, ok := c.decisions.Load(cacheKey); ok {
		entry := value.(*decisionEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Cache hit for authorization decision", zap.String("query", cacheKey))
			return entry.decision, nil
		}
		// Expired, remove from cache
		c.decisions.Delete(cacheKey)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Cache miss for authorization decision", zap.String("query", cacheKey))
	return nil, nil
}

// Set stores a decision in cache
func (c *InMemoryDecisionCache) Set(ctx context.Context, decision authz.Decision, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.TTL
	}

	cacheKey := decision.Query.String()
	entry := &decisionEntry{
		decision:  &decision,
		expiresAt: time.Now().Add(ttl),
	}

	c.decisions.Store(cacheKey, entry)
	c.logger.Debug("Cached authorization decision",
		zap.String("query", cacheKey),
		zap.Duration("ttl", ttl))
	return nil
}

// DeleteSubject removes every cached decision for a legacy subject
func (c *InMemoryDecisionCache) DeleteSubject(ctx context.Context, subjectID int64) error {
	prefix := c.subjectKeyPrefix(subjectID)
	var removed int

	c.decisions.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			c.decisions.Delete(key)
			removed++
		}
		return true
	})

	c.logger.Debug("Deleted cached decisions for subject",
		zap.Int64("subject_id", subjectID),
		zap.Int("deleted_count", removed))
	return nil
}

// InvalidateAll removes all cached decisions
func (c *InMemoryDecisionCache) InvalidateAll(ctx context.Context) error {
	c.decisions.Range(func(key, _ any) bool {
		c.decisions.Delete(key)
		return true
	})

	c.logger.Info("Invalidated all cached decisions")
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryDecisionCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryDecisionCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// ResetStats resets the cache statistics
func (c *InMemoryDecisionCache) ResetStats() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Count returns the number of entries in the cache
func (c *InMemoryDecisionCache) Count() int {
	var count int
	c.decisions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryDecisionCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup",
							zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemoryDecisionCache) doCleanup() {
	var removed int

	c.decisions.Range(func(key, value any) bool {
		entry := value.(*decisionEntry)
		if entry.isExpired() {
			c.decisions.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired decision cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemoryDecisionCache implements DecisionCache
var _ authz.DecisionCache = (*InMemoryDecisionCache)(nil)
