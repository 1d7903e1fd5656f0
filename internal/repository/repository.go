// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultListLimit caps history queries that do not pass a limit.
const DefaultListLimit = 50

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "", "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	repo := &SQLRepository{
		db:     db,
		driver: driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAssessment stores a customer risk assessment with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.RiskAssessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if a == nil || a.ID == "" || a.CustomerID == "" {
		return fmt.Errorf("%w: assessment id and customer id are required", ErrInvalidInput)
	}

	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	weights, _ := json.Marshal(a.Weights)
	flags, _ := json.Marshal(a.Flags)
	metadata, _ := json.Marshal(a.Metadata)

	query := `
		INSERT INTO risk_assessments (
			id, tenant_id, customer_id, overall_score, risk_level, timestamp,
			result, weights, flags, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.CustomerID,
		a.Result.OverallScore, string(a.Result.RiskLevel), a.Timestamp.UTC(),
		string(result), string(weights), string(flags), string(metadata),
	)
	if isDuplicate(err) {
		return fmt.Errorf("%w: assessment %s already exists", ErrInvalidInput, a.ID)
	}
	return err
}

const assessmentColumns = `
	id, tenant_id, customer_id, timestamp, result, weights, flags, metadata
`

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*domain.RiskAssessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT` + assessmentColumns + `
		FROM risk_assessments
		WHERE tenant_id = ? AND id = ?
	`

	return scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, assessmentID))
}

// LatestAssessment retrieves the most recent assessment of a customer.
func (r *SQLRepository) LatestAssessment(ctx context.Context, tenantID string, customerID string) (*domain.RiskAssessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT` + assessmentColumns + `
		FROM risk_assessments
		WHERE tenant_id = ? AND customer_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	return scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID))
}

// ListAssessments retrieves a customer's assessment history, newest first.
func (r *SQLRepository) ListAssessments(ctx context.Context, tenantID string, customerID string, limit int) ([]*domain.RiskAssessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT` + assessmentColumns + `
		FROM risk_assessments
		WHERE tenant_id = ? AND customer_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.RiskAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*domain.RiskAssessment, error) {
	var a domain.RiskAssessment
	var result, weights, metadata string
	var flags sql.NullString

	err := row.Scan(
		&a.ID, &a.TenantID, &a.CustomerID, &a.Timestamp,
		&result, &weights, &flags, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(result), &a.Result); err != nil {
		return nil, fmt.Errorf("failed to parse result of assessment %s: %w", a.ID, err)
	}
	json.Unmarshal([]byte(weights), &a.Weights)
	if flags.Valid && flags.String != "" {
		json.Unmarshal([]byte(flags.String), &a.Flags)
	}
	json.Unmarshal([]byte(metadata), &a.Metadata)

	return &a, nil
}

// SaveAuditSnapshot stores an audit readiness result with tenant isolation.
func (r *SQLRepository) SaveAuditSnapshot(ctx context.Context, tenantID string, s *domain.AuditSnapshot) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if s == nil || s.ID == "" {
		return fmt.Errorf("%w: snapshot id is required", ErrInvalidInput)
	}

	result, err := json.Marshal(s.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	metadata, _ := json.Marshal(s.Metadata)

	query := `
		INSERT INTO audit_snapshots (
			id, tenant_id, total, label, timestamp, result, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		s.ID, tenantID, s.Result.Total, s.Result.Label, s.Timestamp.UTC(),
		string(result), string(metadata),
	)
	if isDuplicate(err) {
		return fmt.Errorf("%w: snapshot %s already exists", ErrInvalidInput, s.ID)
	}
	return err
}

// LatestAuditSnapshot retrieves the most recent audit snapshot of a tenant.
func (r *SQLRepository) LatestAuditSnapshot(ctx context.Context, tenantID string) (*domain.AuditSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, timestamp, result, metadata
		FROM audit_snapshots
		WHERE tenant_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	return scanSnapshot(r.db.QueryRowContext(ctx, r.rebind(query), tenantID))
}

// ListAuditSnapshots retrieves snapshots taken at or after since, newest first.
func (r *SQLRepository) ListAuditSnapshots(ctx context.Context, tenantID string, since time.Time) ([]*domain.AuditSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, timestamp, result, metadata
		FROM audit_snapshots
		WHERE tenant_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.AuditSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func scanSnapshot(row rowScanner) (*domain.AuditSnapshot, error) {
	var s domain.AuditSnapshot
	var result, metadata string

	err := row.Scan(&s.ID, &s.TenantID, &s.Timestamp, &result, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(result), &s.Result); err != nil {
		return nil, fmt.Errorf("failed to parse result of snapshot %s: %w", s.ID, err)
	}
	json.Unmarshal([]byte(metadata), &s.Metadata)

	return &s, nil
}

// SaveRiskSettings upserts the scoring settings of a tenant.
func (r *SQLRepository) SaveRiskSettings(ctx context.Context, tenantID string, s *domain.RiskSettings) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if s == nil {
		return fmt.Errorf("%w: settings are required", ErrInvalidInput)
	}

	weights, _ := json.Marshal(s.Weights)
	overrides, _ := json.Marshal(s.CountryOverrides)

	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO risk_settings (tenant_id, weights, country_overrides, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			weights = excluded.weights,
			country_overrides = excluded.country_overrides,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, string(weights), string(overrides), updatedAt.UTC(),
	)
	return err
}

// GetRiskSettings retrieves the scoring settings of a tenant.
func (r *SQLRepository) GetRiskSettings(ctx context.Context, tenantID string) (*domain.RiskSettings, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, weights, country_overrides, updated_at
		FROM risk_settings
		WHERE tenant_id = ?
	`

	var s domain.RiskSettings
	var weights string
	var overrides sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(
		&s.TenantID, &weights, &overrides, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(weights), &s.Weights); err != nil {
		return nil, fmt.Errorf("failed to parse weights: %w", err)
	}
	if overrides.Valid && overrides.String != "" {
		json.Unmarshal([]byte(overrides.String), &s.CountryOverrides)
	}

	return &s, nil
}

// SaveEscalationRule stores an escalation rule with tenant isolation.
func (r *SQLRepository) SaveEscalationRule(ctx context.Context, tenantID string, rule *domain.EscalationRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	bands, _ := json.Marshal(rule.Bands)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO escalation_rules (
			id, tenant_id, name, description, version, expression, bands, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), enabled,
		now, now,
	)
	return err
}

// GetEscalationRule retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetEscalationRule(ctx context.Context, tenantID string, ruleID string) (*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, enabled
		FROM escalation_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListEscalationRules retrieves the active rules of a tenant. When a rule has
// several enabled versions only the most recently updated one is returned.
func (r *SQLRepository) ListEscalationRules(ctx context.Context, tenantID string) ([]*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, enabled
		FROM escalation_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY id, updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.EscalationRule
	seen := make(map[string]bool)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			continue
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// DeleteEscalationRule soft-deletes every version of a rule by setting enabled = 0.
func (r *SQLRepository) DeleteEscalationRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE escalation_rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND enabled = 1
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func scanRule(row rowScanner) (*domain.EscalationRule, error) {
	var rule domain.EscalationRule
	var description sql.NullString
	var bands string
	var enabled int

	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &description,
		&rule.Version, &rule.Expression, &bands, &enabled,
	); err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Enabled = enabled == 1
	if err := json.Unmarshal([]byte(bands), &rule.Bands); err != nil {
		return nil, fmt.Errorf("failed to parse bands for rule %s: %w", rule.ID, err)
	}

	return &rule, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func isDuplicate(err error) bool {
	return err != nil && (isUniqueViolation(err) || isConstraintViolation(err))
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
