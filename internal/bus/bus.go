package bus

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
)

// New returns the event bus named by cfg.Type. An empty type selects the
// in-process channel bus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// deliveryKeys lists the subscription keys a publication on tenantID reaches:
// the tenant's own key and, for a concrete tenant, the global key.
func deliveryKeys(tenantID, topic string) []string {
	keys := []string{subscriptionKey(tenantID, topic)}
	if tenantID != domain.GlobalTenant {
		keys = append(keys, subscriptionKey(domain.GlobalTenant, topic))
	}
	return keys
}

func subscriptionKey(tenantID, topic string) string {
	return tenantID + ":" + topic
}
