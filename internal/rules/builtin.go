package rules

import "github.com/opensource-finance/heron/internal/domain"

// DefaultRules returns the escalation rules seeded for a tenant that has
// none configured yet.
func DefaultRules(tenantID string) []*domain.EscalationRule {
	zero := 0.0
	one := 1.0
	review := 51.0
	edd := 76.0

	return []*domain.EscalationRule{
		{
			ID:          "pep-edd",
			TenantID:    tenantID,
			Name:        "PEP",
			Description: "Politically exposed persons require enhanced due diligence",
			Version:     "1.0.0",
			Expression:  "pep >= 90",
			Bands: []domain.RuleBand{
				{LowerLimit: &zero, UpperLimit: &one, Outcome: domain.OutcomeNone, Reason: "Keine PEP"},
				{LowerLimit: &one, Outcome: domain.OutcomeEDD, Reason: "PEP: verstärkte Sorgfaltspflichten"},
			},
			Enabled: true,
		},
		{
			ID:          "high-risk-country",
			TenantID:    tenantID,
			Name:        "High-risk country",
			Description: "Links to high-risk or sanctioned jurisdictions need review",
			Version:     "1.0.0",
			Expression:  "country",
			Bands: []domain.RuleBand{
				{LowerLimit: &zero, UpperLimit: &review, Outcome: domain.OutcomeNone, Reason: "Länderrisiko unauffällig"},
				{LowerLimit: &review, UpperLimit: &edd, Outcome: domain.OutcomeReview, Reason: "Erhöhtes Länderrisiko"},
				{LowerLimit: &edd, Outcome: domain.OutcomeEDD, Reason: "Hochrisikoland"},
			},
			Enabled: true,
		},
		{
			ID:          "overall-band",
			TenantID:    tenantID,
			Name:        "Overall risk band",
			Description: "Elevated customers are reviewed, high-risk customers get enhanced due diligence",
			Version:     "1.0.0",
			Expression:  "overall",
			Bands: []domain.RuleBand{
				{LowerLimit: &zero, UpperLimit: &review, Outcome: domain.OutcomeNone, Reason: "Standardrisiko"},
				{LowerLimit: &review, UpperLimit: &edd, Outcome: domain.OutcomeReview, Reason: "Erhöhtes Risiko"},
				{LowerLimit: &edd, Outcome: domain.OutcomeEDD, Reason: "Hohes Risiko"},
			},
			Enabled: true,
		},
	}
}
