// Package worker recomputes scores asynchronously from EventBus messages.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/heron/internal/assessment"
	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/domain"
)

// GlobalTenantID is the subscription tenant used when no tenants are
// configured. It receives every tenant's events.
const GlobalTenantID = domain.GlobalTenant

// Worker consumes customer and audit events and runs the assessment service.
type Worker struct {
	bus     domain.EventBus
	service *assessment.Service

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = one global subscription)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(b domain.EventBus, service *assessment.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     b,
		service: service,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the inbound topics for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		if err := w.subscribeTenant(GlobalTenantID); err != nil {
			return err
		}
		slog.Info("global worker started")
		return nil
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.subscribeTenant(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

func (w *Worker) subscribeTenant(tenantID string) error {
	handlers := map[string]domain.MessageHandler{
		domain.TopicCustomerUpdated: func(ctx context.Context, msg *domain.Message) error {
			return w.processCustomer(ctx, tenantID, msg)
		},
		domain.TopicAuditRequested: func(ctx context.Context, msg *domain.Message) error {
			return w.processAudit(ctx, tenantID, msg)
		},
	}

	for _, topic := range []string{domain.TopicCustomerUpdated, domain.TopicAuditRequested} {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, topic, handlers[topic])
		if err != nil {
			return err
		}

		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()

		slog.Info("tenant worker subscribed",
			"tenant_id", tenantID,
			"topic", topic,
		)
	}

	return nil
}

// resolveTenant prefers the tenant named in the event over the subscription's.
func resolveTenant(subscribed, eventTenant, msgTenant string) string {
	if eventTenant != "" {
		return eventTenant
	}
	if subscribed == GlobalTenantID && msgTenant != "" {
		return msgTenant
	}
	return subscribed
}

func traceFor(ctx context.Context, eventTrace string, msg *domain.Message) context.Context {
	if eventTrace == "" {
		eventTrace = msg.ID
	}
	return assessment.WithTraceID(ctx, eventTrace)
}

// processCustomer recomputes a customer's risk assessment.
func (w *Worker) processCustomer(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	event, err := bus.Decode[domain.CustomerUpdatedEvent](msg)
	if err != nil {
		slog.Error("failed to parse customer event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	tenantID = resolveTenant(tenantID, event.TenantID, msg.TenantID)

	a, err := w.service.AssessCustomer(traceFor(ctx, event.TraceID, msg), tenantID, event.CustomerID, event.Customer)
	if err != nil {
		slog.Error("customer assessment failed",
			"tenant_id", tenantID,
			"customer_id", event.CustomerID,
			"error", err,
		)
		return err
	}

	slog.Debug("customer event processed",
		"tenant_id", tenantID,
		"customer_id", event.CustomerID,
		"assessment_id", a.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// processAudit recomputes the tenant's audit readiness score.
func (w *Worker) processAudit(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	event, err := bus.Decode[domain.AuditRequestedEvent](msg)
	if err != nil {
		slog.Error("failed to parse audit event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	tenantID = resolveTenant(tenantID, event.TenantID, msg.TenantID)

	snap, err := w.service.ScoreAudit(traceFor(ctx, event.TraceID, msg), tenantID, event.Input)
	if err != nil {
		slog.Error("audit scoring failed",
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	slog.Debug("audit event processed",
		"tenant_id", tenantID,
		"snapshot_id", snap.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
