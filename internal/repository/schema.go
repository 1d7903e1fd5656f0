package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.

const schemaRiskAssessments = `
CREATE TABLE IF NOT EXISTS risk_assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    overall_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    result TEXT NOT NULL,
    weights TEXT NOT NULL,
    flags TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_assessments_tenant ON risk_assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_risk_assessments_customer ON risk_assessments(tenant_id, customer_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_risk_assessments_level ON risk_assessments(tenant_id, risk_level);
`

const schemaAuditSnapshots = `
CREATE TABLE IF NOT EXISTS audit_snapshots (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    total INTEGER NOT NULL,
    label TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    result TEXT NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_snapshots_tenant ON audit_snapshots(tenant_id, timestamp);
`

const schemaRiskSettings = `
CREATE TABLE IF NOT EXISTS risk_settings (
    tenant_id TEXT PRIMARY KEY,
    weights TEXT NOT NULL,
    country_overrides TEXT,
    updated_at TIMESTAMP NOT NULL
);
`

// schemaEscalationRules defines the escalation_rules table.
// Rules are versioned; the latest enabled version is active.
const schemaEscalationRules = `
CREATE TABLE IF NOT EXISTS escalation_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_escalation_rules_tenant ON escalation_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_escalation_rules_enabled ON escalation_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRiskAssessments,
		schemaAuditSnapshots,
		schemaRiskSettings,
		schemaEscalationRules,
	}
}
