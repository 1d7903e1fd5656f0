package domain

import "time"

// RiskAssessment is a persisted customer risk result with its audit trail.
type RiskAssessment struct {
	ID         string             `json:"id"`
	TenantID   string             `json:"tenantId"`
	CustomerID string             `json:"customerId"`
	Result     RiskResult         `json:"result"`
	Weights    RiskWeights        `json:"weights"`
	Flags      []RuleFlag         `json:"flags,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Metadata   AssessmentMetadata `json:"metadata"`
}

// RequiresEDD reports whether the assessment calls for enhanced due diligence.
func (a *RiskAssessment) RequiresEDD() bool {
	if a.Result.RiskLevel == RiskHigh {
		return true
	}
	for _, f := range a.Flags {
		if f.Outcome == OutcomeEDD {
			return true
		}
	}
	return false
}

// Reasons returns the reasons of all escalating flags.
func (a *RiskAssessment) Reasons() []string {
	var reasons []string
	for _, f := range a.Flags {
		if f.Escalates() && f.Reason != "" {
			reasons = append(reasons, f.Reason)
		}
	}
	return reasons
}

// AuditSnapshot is a persisted audit readiness result.
type AuditSnapshot struct {
	ID        string             `json:"id"`
	TenantID  string             `json:"tenantId"`
	Result    AuditScoreResult   `json:"result"`
	Timestamp time.Time          `json:"timestamp"`
	Metadata  AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId"`
	ScoringMs      int64  `json:"scoringMs"`
	RulesMs        int64  `json:"rulesMs"`
	TotalMs        int64  `json:"totalMs"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	EngineVersion  string `json:"engineVersion"`
}

// RiskSettings are the per-organization scoring overrides.
type RiskSettings struct {
	TenantID         string         `json:"tenantId"`
	Weights          RiskWeights    `json:"weights"`
	CountryOverrides map[string]int `json:"countryOverrides,omitempty"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// EngineVersion identifies the scoring tables and algorithms.
const EngineVersion = "heron-1.0"
