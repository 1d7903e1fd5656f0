package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/heron/internal/domain"
)

// New creates the cache named by cfg.Type: "memory" (default) is an LRU;
// "redis" is Redis alone or, with EnableTwoPhase, LRU in front of Redis.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil
	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache reads from a local LRU (L1) before Redis (L2). Writes and
// deletes go to both and are broadcast over Redis pub/sub so other replicas
// drop their L1 copy; a settings update on one replica is seen by all of
// them on the next read.
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
	origin string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &TwoPhaseCache{
		local:  NewLRUCache(cfg.LocalMaxSize),
		remote: remote,
		l1TTL:  l1TTL,
		origin: uuid.New().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.listen(ctx)
	return c, nil
}

// listen evicts L1 entries named by other replicas' invalidations.
func (c *TwoPhaseCache) listen(ctx context.Context) {
	defer close(c.done)

	pubsub := c.remote.subscribeInvalidations(ctx)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			c.applyInvalidation(ctx, m.Payload)
		}
	}
}

func (c *TwoPhaseCache) applyInvalidation(ctx context.Context, payload string) {
	origin, tenantID, key, ok := decodeInvalidation(payload)
	if !ok {
		slog.Warn("ignoring malformed cache invalidation", "payload", payload)
		return
	}
	if origin == c.origin {
		return
	}
	_ = c.local.Delete(ctx, tenantID, key)
}

func (c *TwoPhaseCache) broadcast(ctx context.Context, tenantID, key string) {
	if err := c.remote.publishInvalidation(ctx, c.origin, tenantID, key); err != nil {
		slog.Warn("failed to broadcast cache invalidation",
			"tenant_id", tenantID,
			"key", key,
			"error", err,
		)
	}
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, tenantID, key)
	if err != nil || val != nil {
		return val, err
	}

	val, err = c.remote.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, tenantID, key, val, c.l1TTL)
	}
	return val, nil
}

// Set writes L1 with at most the L1 TTL and L2 with the full TTL.
func (c *TwoPhaseCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, tenantID, key, value, l1TTL); err != nil {
		return err
	}
	if err := c.remote.Set(ctx, tenantID, key, value, ttl); err != nil {
		return err
	}
	c.broadcast(ctx, tenantID, key)
	return nil
}

// Delete removes from both tiers and tells other replicas to drop L1.
func (c *TwoPhaseCache) Delete(ctx context.Context, tenantID string, key string) error {
	if err := c.local.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	if err := c.remote.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	c.broadcast(ctx, tenantID, key)
	return nil
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close stops the invalidation listener and closes both tiers.
func (c *TwoPhaseCache) Close() error {
	c.cancel()
	<-c.done
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
