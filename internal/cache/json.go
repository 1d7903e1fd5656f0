package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// GetJSON reads and decodes a cached value. found is false on a miss.
func GetJSON[T any](ctx context.Context, c domain.Cache, tenantID, key string) (v T, found bool, err error) {
	data, err := c.Get(ctx, tenantID, key)
	if err != nil || data == nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return v, true, nil
}

// SetJSON encodes and caches a value.
func SetJSON(ctx context.Context, c domain.Cache, tenantID, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.Set(ctx, tenantID, key, data, ttl)
}

// RiskKey returns the cache key of a customer's latest assessment.
func RiskKey(customerID string) string {
	return domain.CacheKeyRiskPrefix + customerID
}
