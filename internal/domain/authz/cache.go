package authz

import (
	"context"
	"time"
)

// Decision is one authorization outcome as the façade reported it. Only
// clean outcomes are cached; legacy unavailability never produces one.
type Decision struct {
	Query      PermissionQuery
	Authorized bool
	DecidedAt  time.Time
}

// DecisionCache stores recent authorization decisions so repeated checks
// for the same subject and operation do not hit the legacy system.
//
// Cache keys follow the pattern authz:decision:{subject_id}:{operation}.
type DecisionCache interface {
	// Get retrieves a cached decision for the query.
	// Returns nil, nil if no decision is cached (cache miss).
	Get(ctx context.Context, query PermissionQuery) (*Decision, error)

	// Set stores a decision with the specified TTL.
	// If ttl is 0, implementations should use a default TTL.
	Set(ctx context.Context, decision Decision, ttl time.Duration) error

	// DeleteSubject removes every cached decision for a legacy subject.
	// Used when a mapping changes or an operator revokes access.
	DeleteSubject(ctx context.Context, subjectID int64) error

	// InvalidateAll removes all cached decisions
	InvalidateAll(ctx context.Context) error

	// Close releases any resources held by the cache
	Close() error
}

// CacheConfig holds decision cache tuning
type CacheConfig struct {
	// TTL bounds how stale a cached decision may get. Legacy permissions
	// change rarely, but revocation must still propagate within this window.
	TTL time.Duration
}

// DefaultCacheConfig returns the default decision cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 30 * time.Second,
	}
}
