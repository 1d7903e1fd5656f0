package domain

// EscalationRule is an organization-defined CEL rule evaluated over a
// computed risk result. Rules never change the score; they attach flags.
type EscalationRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression to evaluate
	Expression string `json:"expression"`

	// Outcome bands for value-to-outcome mapping
	Bands []RuleBand `json:"bands"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// RuleBand maps a value range to an outcome.
type RuleBand struct {
	LowerLimit *float64 `json:"lowerLimit,omitempty"`
	UpperLimit *float64 `json:"upperLimit,omitempty"`
	Outcome    string   `json:"outcome"` // ".none", ".review", ".edd"
	Reason     string   `json:"reason"`
}

// RuleFlag is the output of one escalation rule evaluation.
type RuleFlag struct {
	RuleID    string  `json:"ruleId"`
	Outcome   string  `json:"outcome"`
	Value     float64 `json:"value"`
	Reason    string  `json:"reason"`
	ProcessMs int64   `json:"processMs"`
}

// Predefined rule outcomes
const (
	OutcomeNone   = ".none"
	OutcomeReview = ".review"
	OutcomeEDD    = ".edd" // enhanced due diligence
	OutcomeError  = ".err"
)

// Escalates reports whether the flag requires follow-up.
func (f RuleFlag) Escalates() bool {
	return f.Outcome == OutcomeReview || f.Outcome == OutcomeEDD
}
