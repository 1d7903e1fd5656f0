package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
)

// PublishJSON encodes an event and publishes it on a topic.
func PublishJSON(ctx context.Context, b domain.EventBus, tenantID, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}
	return b.Publish(ctx, tenantID, topic, payload)
}

// Decode unmarshals a message payload into an event.
func Decode[T any](msg *domain.Message) (T, error) {
	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, fmt.Errorf("failed to decode %s event: %w", msg.Topic, err)
	}
	return event, nil
}
