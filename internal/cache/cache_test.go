package cache

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, tenantID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, tenantID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		ttlCache := NewLRUCache(10)
		ttlCache.now = func() time.Time { return clock }

		_ = ttlCache.Set(ctx, tenantID, "expiring", []byte("temp"), time.Minute)
		_ = ttlCache.Set(ctx, tenantID, "forever", []byte("kept"), 0)

		if val, _ := ttlCache.Get(ctx, tenantID, "expiring"); val == nil {
			t.Error("expected value before expiration")
		}

		clock = clock.Add(2 * time.Minute)

		if val, _ := ttlCache.Get(ctx, tenantID, "expiring"); val != nil {
			t.Error("expected nil after expiration")
		}
		if val, _ := ttlCache.Get(ctx, tenantID, "forever"); string(val) != "kept" {
			t.Errorf("expected entry without ttl to survive, got %q", val)
		}
		if size, _ := ttlCache.Stats(); size != 1 {
			t.Errorf("expected expired entry to be removed, size %d", size)
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, tenantID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, tenantID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, tenantID, "d", []byte("4"), time.Minute)

		// 'b' should be evicted
		val, _ := smallCache.Get(ctx, tenantID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		// 'a' should still be there
		val, _ = smallCache.Get(ctx, tenantID, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		tenant1 := "tenant-001"
		tenant2 := "tenant-002"

		_ = cache.Set(ctx, tenant1, "shared-key", []byte("tenant1-value"), time.Minute)
		_ = cache.Set(ctx, tenant2, "shared-key", []byte("tenant2-value"), time.Minute)

		val1, _ := cache.Get(ctx, tenant1, "shared-key")
		val2, _ := cache.Get(ctx, tenant2, "shared-key")

		if string(val1) != "tenant1-value" {
			t.Errorf("expected 'tenant1-value', got '%s'", string(val1))
		}
		if string(val2) != "tenant2-value" {
			t.Errorf("expected 'tenant2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		err := cache.Set(ctx, "", "key", []byte("value"), time.Minute)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = cache.Get(ctx, "", "key")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		a := domain.RiskAssessment{
			ID:         "ra-001",
			CustomerID: "cust-001",
			Result:     domain.RiskResult{OverallScore: 85, RiskLevel: domain.RiskHigh},
		}

		if err := SetJSON(ctx, cache, tenantID, RiskKey("cust-001"), a, time.Minute); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}

		got, found, err := GetJSON[domain.RiskAssessment](ctx, cache, tenantID, RiskKey("cust-001"))
		if err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if !found {
			t.Fatal("expected cache hit")
		}
		if got.Result.OverallScore != 85 || got.Result.RiskLevel != domain.RiskHigh {
			t.Errorf("unexpected cached assessment %+v", got)
		}

		_, found, err = GetJSON[domain.RiskAssessment](ctx, cache, tenantID, RiskKey("cust-404"))
		if err != nil || found {
			t.Errorf("expected clean miss, got found=%v err=%v", found, err)
		}
	})

	t.Run("JSONDecodeError", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "garbage", []byte("{not json"), time.Minute)

		_, found, err := GetJSON[domain.AuditSnapshot](ctx, cache, tenantID, "garbage")
		if err == nil {
			t.Error("expected decode error")
		}
		if found {
			t.Error("expected found=false on decode error")
		}
	})

	t.Run("RiskKey", func(t *testing.T) {
		if got := RiskKey("cust-001"); got != "risk:cust-001" {
			t.Errorf("unexpected key %q", got)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, tenantID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, tenantID, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, tenantID, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		val, _ := testCache.Get(ctx, tenantID, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("DefaultsToMemory", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for empty type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      domain.CacheConfig
		addr     string
		password string
		db       int
		wantErr  bool
	}{
		{"Default", domain.CacheConfig{}, "localhost:6379", "", 0, false},
		{"HostPort", domain.CacheConfig{RedisAddr: "redis:6380", RedisDB: 2}, "redis:6380", "", 2, false},
		{"URL", domain.CacheConfig{RedisAddr: "redis://:secret@cache.internal:6379/3"}, "cache.internal:6379", "secret", 3, false},
		{"URLWithOverrides", domain.CacheConfig{RedisAddr: "redis://cache.internal:6379/3", RedisPassword: "pw", RedisDB: 5}, "cache.internal:6379", "pw", 5, false},
		{"BadURL", domain.CacheConfig{RedisAddr: "redis://cache.internal:6379/not-a-db"}, "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("redisOptions error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.Addr != tt.addr || opts.Password != tt.password || opts.DB != tt.db {
				t.Errorf("got addr=%s password=%s db=%d", opts.Addr, opts.Password, opts.DB)
			}
		})
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("tenant-001", domain.CacheKeySettings); got != "heron:tenant-001:settings:risk" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestInvalidation(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		origin, tenant, key, ok := decodeInvalidation(encodeInvalidation("node-1", "tenant-001", "risk:a|b"))
		if !ok || origin != "node-1" || tenant != "tenant-001" || key != "risk:a|b" {
			t.Errorf("got %q %q %q %v", origin, tenant, key, ok)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, payload := range []string{"", "node-1", "node-1|tenant", "node-1||key", "node-1|tenant|"} {
			if _, _, _, ok := decodeInvalidation(payload); ok {
				t.Errorf("expected %q to be rejected", payload)
			}
		}
	})

	t.Run("EvictsL1FromOtherReplicas", func(t *testing.T) {
		c := &TwoPhaseCache{local: NewLRUCache(10), origin: "self"}
		_ = c.local.Set(ctx, "tenant-001", domain.CacheKeySettings, []byte("stale"), time.Minute)
		_ = c.local.Set(ctx, "tenant-001", domain.CacheKeyAuditLatest, []byte("mine"), time.Minute)

		c.applyInvalidation(ctx, encodeInvalidation("self", "tenant-001", domain.CacheKeyAuditLatest))
		c.applyInvalidation(ctx, encodeInvalidation("other", "tenant-001", domain.CacheKeySettings))

		if val, _ := c.local.Get(ctx, "tenant-001", domain.CacheKeySettings); val != nil {
			t.Error("expected settings to be evicted by another replica")
		}
		if val, _ := c.local.Get(ctx, "tenant-001", domain.CacheKeyAuditLatest); val == nil {
			t.Error("expected own invalidation to be ignored")
		}
	})
}
