// Package domain defines the core interfaces and types for Heron.
package domain

import (
	"context"
	"time"
)

// Repository persists score snapshots, organisation settings and
// escalation rules. Every method is tenant-scoped: an empty tenantID is
// an invalid-input error and rows of other tenants are never visible.
// Lookups of absent rows return a not-found error.
type Repository interface {
	// Customer risk assessments
	SaveAssessment(ctx context.Context, tenantID string, a *RiskAssessment) error
	GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*RiskAssessment, error)
	LatestAssessment(ctx context.Context, tenantID string, customerID string) (*RiskAssessment, error)
	ListAssessments(ctx context.Context, tenantID string, customerID string, limit int) ([]*RiskAssessment, error)

	// Audit readiness snapshots
	SaveAuditSnapshot(ctx context.Context, tenantID string, s *AuditSnapshot) error
	LatestAuditSnapshot(ctx context.Context, tenantID string) (*AuditSnapshot, error)
	ListAuditSnapshots(ctx context.Context, tenantID string, since time.Time) ([]*AuditSnapshot, error)

	// Per-organization scoring settings
	SaveRiskSettings(ctx context.Context, tenantID string, s *RiskSettings) error
	GetRiskSettings(ctx context.Context, tenantID string) (*RiskSettings, error)

	// Escalation rule configuration
	SaveEscalationRule(ctx context.Context, tenantID string, rule *EscalationRule) error
	GetEscalationRule(ctx context.Context, tenantID string, ruleID string) (*EscalationRule, error)
	ListEscalationRules(ctx context.Context, tenantID string) ([]*EscalationRule, error)
	DeleteEscalationRule(ctx context.Context, tenantID string, ruleID string) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig selects the SQL backend.
type RepositoryConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string

	// SQLitePath is a file path or ":memory:".
	SQLitePath string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Pool limits; zero keeps the database/sql defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
