// Package scoring implements the customer risk and audit readiness engines.
//
// Both engines are pure: they perform no I/O, hold no state between calls
// and never fail. Every missing or malformed input degrades to a defined
// numeric fallback.
package scoring

import (
	"math"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/risktables"
)

// PEP factor scores. PEP is a declaration, not an estimate: anything other
// than an explicit yes is "not a PEP".
const (
	PEPScore    = 90
	NonPEPScore = 5
)

// CalculateCustomerRisk computes the weighted 0-100 risk score of a customer.
//
// Weights are normalized so they need not sum to 100; a zero or negative sum
// leaves them unscaled. overrides replaces country scores for this call only
// and may be nil.
func CalculateCustomerRisk(c domain.CustomerData, w domain.RiskWeights, overrides map[string]int) domain.RiskResult {
	factors := CustomerFactors(c, overrides)

	norm := 1.0
	if sum := w.Sum(); sum > 0 {
		norm = 100 / sum
	}

	breakdown := make([]domain.FactorContribution, 0, len(domain.FactorOrder))
	var total float64

	for _, name := range domain.FactorOrder {
		weight := w.Get(name)
		if weight < 0 {
			weight = 0
		}
		score := factors.Get(name)
		contribution := float64(score) * weight * norm / 100
		total += contribution

		breakdown = append(breakdown, domain.FactorContribution{
			Factor:   name,
			Weight:   weight,
			Score:    score,
			Weighted: contribution,
		})
	}

	overall := clamp(int(math.Round(total)))

	return domain.RiskResult{
		OverallScore: overall,
		RiskLevel:    risktables.Category(overall),
		Factors:      factors,
		Breakdown:    breakdown,
	}
}

// CustomerFactors computes the six raw factor scores of a customer.
func CustomerFactors(c domain.CustomerData, overrides map[string]int) domain.RiskFactors {
	return domain.RiskFactors{
		Country:       countryFactor(c, overrides),
		Industry:      risktables.IndustryRisk(c.Industry),
		PEP:           pepFactor(c.PEPStatus),
		Products:      risktables.MaxProductRisk(c.Products.Values()),
		Volume:        risktables.VolumeRisk(c.TxVolume),
		SourceOfFunds: risktables.SourceOfFundsRisk(c.SourceOfFunds),
	}
}

// CountryCandidates returns every country a customer is linked to:
// nationality, domicile and each geo_focus entry.
func CountryCandidates(c domain.CustomerData) []string {
	return domain.Normalize(append([]string{c.Nationality, c.Country}, c.GeoFocus...)...)
}

func countryFactor(c domain.CustomerData, overrides map[string]int) int {
	return risktables.MaxCountryRisk(CountryCandidates(c), overrides)
}

func pepFactor(p domain.PEPStatus) int {
	if p.IsPEP() {
		return PEPScore
	}
	return NonPEPScore
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
