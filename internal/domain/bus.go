package domain

import (
	"context"
)

// GlobalTenant is a subscription-only tenant: a handler subscribed under it
// receives the topic for every tenant. Messages keep the publisher's TenantID.
const GlobalTenant = "_global"

// EventBus carries scoring events between the API, the worker and
// downstream consumers. Go channels back the Community tier, NATS the Pro tier.
// Every call is tenant-scoped.
type EventBus interface {
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a tenant's topic, or for every
	// tenant when tenantID is GlobalTenant.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the envelope around an encoded event.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is "channel" (default) or "nats".
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier). With NATSQueue set, replicas of a
	// subscriber share one queue group and each message is handled once.
	NATSUrl           string
	NATSToken         string
	NATSQueue         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the scoring pipeline.
const (
	TopicCustomerUpdated = "heron.customer.updated"
	TopicAuditRequested  = "heron.audit.requested"
	TopicRiskAssessed    = "heron.risk.assessed"
	TopicRiskAlert       = "heron.risk.alert"
	TopicAuditScored     = "heron.audit.scored"
)

// CustomerUpdatedEvent asks for a customer risk recompute. TenantID
// overrides the subscription tenant, which lets a global worker serve
// every tenant.
type CustomerUpdatedEvent struct {
	TenantID   string       `json:"tenantId,omitempty"`
	CustomerID string       `json:"customerId"`
	TraceID    string       `json:"traceId,omitempty"`
	Customer   CustomerData `json:"customer"`
}

// AuditRequestedEvent asks for an audit readiness recompute.
type AuditRequestedEvent struct {
	TenantID string     `json:"tenantId,omitempty"`
	TraceID  string     `json:"traceId,omitempty"`
	Input    AuditInput `json:"input"`
}

// RiskAlertEvent is published when an assessment requires enhanced due
// diligence.
type RiskAlertEvent struct {
	AssessmentID string    `json:"assessmentId"`
	CustomerID   string    `json:"customerId"`
	TraceID      string    `json:"traceId,omitempty"`
	OverallScore int       `json:"overallScore"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	Reasons      []string  `json:"reasons,omitempty"`
}
