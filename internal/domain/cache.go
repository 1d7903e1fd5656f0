package domain

import (
	"context"
	"time"
)

// Cache holds the latest score per customer, the latest audit snapshot and
// the organisation settings, keyed per tenant. Get returns (nil, nil) on a
// miss; callers treat a read error as a miss.
type Cache interface {
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores value for ttl; a ttl of zero keeps it until overwritten.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, tenantID string, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Cache keys. Customer assessments live under CacheKeyRiskPrefix+customerID.
const (
	CacheKeyRiskPrefix  = "risk:"
	CacheKeyAuditLatest = "audit:latest"
	CacheKeySettings    = "settings:risk"
)

// CacheConfig selects and sizes the cache.
type CacheConfig struct {
	// Type is "memory" (default) or "redis".
	Type string

	// LRU size and, in two-phase mode, the L1 entry lifetime.
	LocalMaxSize int
	LocalTTL     time.Duration

	// RedisAddr is host:port or a redis:// URL.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnableTwoPhase puts the LRU in front of Redis.
	EnableTwoPhase bool
}
