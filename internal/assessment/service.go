// Package assessment runs the scoring engines for a tenant and handles the
// persistence, caching and publication of their results.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/metrics"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/rules"
	"github.com/opensource-finance/heron/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Errors returned by the service. Repository sentinels are reused so callers
// can test a single value.
var (
	ErrInvalidInput = repository.ErrInvalidInput
	ErrNotFound     = repository.ErrNotFound
	ErrUnavailable  = errors.New("repository not available")
)

// Side effect step names used in logs and metrics.
const (
	stepPersist = "persist"
	stepCache   = "cache"
	stepPublish = "publish"
)

var tracer = otel.Tracer("heron-assessment")

// Service scores customers and audits for tenants.
// Repository, cache, bus and rule engine are all optional.
type Service struct {
	cfg     domain.ScoringConfig
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *rules.Engine
	scorer  *scoring.AuditScorer
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	rulesLoaded map[string]bool
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records scoring metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditScorer replaces the wall-clock audit scorer.
func WithAuditScorer(scorer *scoring.AuditScorer) Option {
	return func(s *Service) { s.scorer = scorer }
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an assessment service.
func NewService(cfg domain.ScoringConfig, repo domain.Repository, c domain.Cache, b domain.EventBus, engine *rules.Engine, opts ...Option) *Service {
	if cfg.DefaultWeights.IsZero() {
		cfg.DefaultWeights = domain.DefaultRiskWeights()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = repository.DefaultListLimit
	}

	s := &Service{
		cfg:         cfg,
		repo:        repo,
		cache:       c,
		bus:         b,
		engine:      engine,
		scorer:      scoring.NewAuditScorer(),
		now:         time.Now,
		rulesLoaded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssessCustomer scores a customer with the tenant's settings, evaluates the
// tenant's escalation rules and stores the result.
func (s *Service) AssessCustomer(ctx context.Context, tenantID, customerID string, data domain.CustomerData) (*domain.RiskAssessment, error) {
	start := time.Now()

	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "assessment.AssessCustomer",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("customer.id", customerID),
		),
	)
	defer span.End()

	settings, err := s.Settings(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settings")
		return nil, err
	}

	scoreStart := time.Now()
	result := scoring.CalculateCustomerRisk(data, settings.Weights, settings.CountryOverrides)
	scoringDur := time.Since(scoreStart)
	s.metrics.EngineDuration(metrics.EngineRisk, scoringDur)

	rulesStart := time.Now()
	flags, err := s.evaluateRules(ctx, tenantID, customerID, data, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rules")
		return nil, err
	}
	rulesDur := time.Since(rulesStart)
	s.metrics.EngineDuration(metrics.EngineRules, rulesDur)

	a := &domain.RiskAssessment{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		CustomerID: customerID,
		Result:     result,
		Weights:    settings.Weights,
		Flags:      flags,
		Timestamp:  s.now().UTC(),
		Metadata: domain.AssessmentMetadata{
			TraceID:        traceID(ctx),
			ScoringMs:      scoringDur.Milliseconds(),
			RulesMs:        rulesDur.Milliseconds(),
			RulesEvaluated: len(flags),
			EngineVersion:  domain.EngineVersion,
		},
	}
	a.Metadata.TotalMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("risk.overall", result.OverallScore),
		attribute.String("risk.level", string(result.RiskLevel)),
	)

	outcomes := make([]string, len(flags))
	for i, f := range flags {
		outcomes[i] = f.Outcome
	}
	s.metrics.Assessment(string(result.RiskLevel), result.OverallScore, outcomes)

	if s.repo != nil {
		if err := s.repo.SaveAssessment(ctx, tenantID, a); err != nil {
			s.sideEffectFailed(stepPersist, "failed to save assessment", "assessment_id", a.ID, "error", err)
		}
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, tenantID, cache.RiskKey(customerID), a, s.cfg.ResultTTL); err != nil {
			s.sideEffectFailed(stepCache, "failed to cache assessment", "assessment_id", a.ID, "error", err)
		}
	}
	s.publishAssessment(ctx, a)

	slog.Info("customer assessed",
		"tenant_id", tenantID,
		"customer_id", customerID,
		"overall_score", result.OverallScore,
		"risk_level", result.RiskLevel,
		"flags", len(flags),
		"requires_edd", a.RequiresEDD(),
		"duration_ms", a.Metadata.TotalMs,
	)

	return a, nil
}

func (s *Service) evaluateRules(ctx context.Context, tenantID, customerID string, data domain.CustomerData, result domain.RiskResult) ([]domain.RuleFlag, error) {
	if s.engine == nil {
		return nil, nil
	}

	s.ensureRules(ctx, tenantID)

	return s.engine.Evaluate(ctx, &rules.EvaluateInput{
		TenantID:   tenantID,
		CustomerID: customerID,
		Customer:   data,
		Result:     result,
	})
}

func (s *Service) publishAssessment(ctx context.Context, a *domain.RiskAssessment) {
	if s.bus == nil {
		return
	}

	if err := bus.PublishJSON(ctx, s.bus, a.TenantID, domain.TopicRiskAssessed, a); err != nil {
		s.sideEffectFailed(stepPublish, "failed to publish assessment", "assessment_id", a.ID, "error", err)
	}

	if !a.RequiresEDD() {
		return
	}

	alert := domain.RiskAlertEvent{
		AssessmentID: a.ID,
		CustomerID:   a.CustomerID,
		TraceID:      a.Metadata.TraceID,
		OverallScore: a.Result.OverallScore,
		RiskLevel:    a.Result.RiskLevel,
		Reasons:      a.Reasons(),
	}
	if err := bus.PublishJSON(ctx, s.bus, a.TenantID, domain.TopicRiskAlert, alert); err != nil {
		s.sideEffectFailed(stepPublish, "failed to publish risk alert", "assessment_id", a.ID, "error", err)
	}
}

// ScoreAudit scores a tenant's audit readiness and stores the snapshot.
func (s *Service) ScoreAudit(ctx context.Context, tenantID string, in domain.AuditInput) (*domain.AuditSnapshot, error) {
	start := time.Now()

	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "assessment.ScoreAudit",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	result := s.scorer.Calculate(in)
	scoringDur := time.Since(start)
	s.metrics.EngineDuration(metrics.EngineAudit, scoringDur)
	s.metrics.Audit(result.Label, result.Total)

	snap := &domain.AuditSnapshot{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Result:    result,
		Timestamp: s.now().UTC(),
		Metadata: domain.AssessmentMetadata{
			TraceID:       traceID(ctx),
			ScoringMs:     scoringDur.Milliseconds(),
			TotalMs:       time.Since(start).Milliseconds(),
			EngineVersion: domain.EngineVersion,
		},
	}

	span.SetAttributes(
		attribute.Int("audit.total", result.Total),
		attribute.String("audit.label", result.Label),
	)

	if s.repo != nil {
		if err := s.repo.SaveAuditSnapshot(ctx, tenantID, snap); err != nil {
			s.sideEffectFailed(stepPersist, "failed to save audit snapshot", "snapshot_id", snap.ID, "error", err)
		}
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, tenantID, domain.CacheKeyAuditLatest, snap, s.cfg.ResultTTL); err != nil {
			s.sideEffectFailed(stepCache, "failed to cache audit snapshot", "snapshot_id", snap.ID, "error", err)
		}
	}
	if s.bus != nil {
		if err := bus.PublishJSON(ctx, s.bus, tenantID, domain.TopicAuditScored, snap); err != nil {
			s.sideEffectFailed(stepPublish, "failed to publish audit snapshot", "snapshot_id", snap.ID, "error", err)
		}
	}

	slog.Info("audit scored",
		"tenant_id", tenantID,
		"total", result.Total,
		"label", result.Label,
	)

	return snap, nil
}

// LatestAssessment returns the most recent assessment of a customer.
func (s *Service) LatestAssessment(ctx context.Context, tenantID, customerID string) (*domain.RiskAssessment, error) {
	if tenantID == "" || customerID == "" {
		return nil, fmt.Errorf("%w: tenantID and customer id are required", ErrInvalidInput)
	}

	key := cache.RiskKey(customerID)
	if a, ok := cachedLookup[domain.RiskAssessment](ctx, s, tenantID, key); ok {
		return a, nil
	}

	if s.repo == nil {
		return nil, ErrUnavailable
	}
	a, err := s.repo.LatestAssessment(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	s.fill(ctx, tenantID, key, a)
	return a, nil
}

// LatestAudit returns the most recent audit snapshot of a tenant.
func (s *Service) LatestAudit(ctx context.Context, tenantID string) (*domain.AuditSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	if snap, ok := cachedLookup[domain.AuditSnapshot](ctx, s, tenantID, domain.CacheKeyAuditLatest); ok {
		return snap, nil
	}

	if s.repo == nil {
		return nil, ErrUnavailable
	}
	snap, err := s.repo.LatestAuditSnapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.fill(ctx, tenantID, domain.CacheKeyAuditLatest, snap)
	return snap, nil
}

// cachedLookup reads a cached value. Cache errors count as misses.
func cachedLookup[T any](ctx context.Context, s *Service, tenantID, key string) (*T, bool) {
	if s.cache == nil {
		return nil, false
	}

	v, found, err := cache.GetJSON[T](ctx, s.cache, tenantID, key)
	if err != nil {
		slog.Warn("cache read failed", "tenant_id", tenantID, "key", key, "error", err)
	}
	if !found {
		s.metrics.CacheMiss()
		return nil, false
	}

	s.metrics.CacheHit()
	return &v, true
}

func (s *Service) fill(ctx context.Context, tenantID, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, tenantID, key, v, s.cfg.ResultTTL); err != nil {
		s.sideEffectFailed(stepCache, "failed to fill cache", "key", key, "error", err)
	}
}

// AssessmentHistory lists a customer's assessments, newest first.
func (s *Service) AssessmentHistory(ctx context.Context, tenantID, customerID string, limit int) ([]*domain.RiskAssessment, error) {
	if tenantID == "" || customerID == "" {
		return nil, fmt.Errorf("%w: tenantID and customer id are required", ErrInvalidInput)
	}
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.ListAssessments(ctx, tenantID, customerID, limit)
}

// AuditHistory lists a tenant's audit snapshots taken at or after since.
func (s *Service) AuditHistory(ctx context.Context, tenantID string, since time.Time) ([]*domain.AuditSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	return s.repo.ListAuditSnapshots(ctx, tenantID, since)
}

func (s *Service) sideEffectFailed(step, msg string, args ...any) {
	s.metrics.SideEffectFailed(step)
	slog.Error(msg, append([]any{"step", step}, args...)...)
}

type traceIDKey struct{}

// WithTraceID attaches a caller-chosen trace id to ctx. It takes precedence
// over the active span's trace id.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey{}, id)
}

// traceID returns the attached trace id, the active span's trace id, or a
// fresh uuid when tracing is disabled.
func traceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.New().String()
}
