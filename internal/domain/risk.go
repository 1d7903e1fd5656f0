package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel is the four-tier customer risk category.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskStandard RiskLevel = "standard"
	RiskElevated RiskLevel = "elevated"
	RiskHigh     RiskLevel = "high"
)

// Factor names, in breakdown order.
const (
	FactorCountry       = "country"
	FactorIndustry      = "industry"
	FactorPEP           = "pep"
	FactorProducts      = "products"
	FactorVolume        = "volume"
	FactorSourceOfFunds = "source_of_funds"
)

// FactorOrder is the fixed order of the customer risk breakdown.
var FactorOrder = []string{
	FactorCountry,
	FactorIndustry,
	FactorPEP,
	FactorProducts,
	FactorVolume,
	FactorSourceOfFunds,
}

// RiskWeights holds the six customer risk factor weights.
// Weights need not sum to 100; the engine normalizes them.
type RiskWeights struct {
	Country       float64 `json:"country"`
	Industry      float64 `json:"industry"`
	PEP           float64 `json:"pep"`
	Products      float64 `json:"products"`
	Volume        float64 `json:"volume"`
	SourceOfFunds float64 `json:"source_of_funds"`
}

// DefaultRiskWeights returns the standard weighting. Each call returns a new
// value, so callers can adjust it per organization without affecting others.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Country:       25,
		Industry:      15,
		PEP:           20,
		Products:      15,
		Volume:        10,
		SourceOfFunds: 15,
	}
}

// Get returns the weight for a factor name. Unknown names return 0.
func (w RiskWeights) Get(factor string) float64 {
	switch factor {
	case FactorCountry:
		return w.Country
	case FactorIndustry:
		return w.Industry
	case FactorPEP:
		return w.PEP
	case FactorProducts:
		return w.Products
	case FactorVolume:
		return w.Volume
	case FactorSourceOfFunds:
		return w.SourceOfFunds
	}
	return 0
}

// Sum returns the total of all non-negative weights.
func (w RiskWeights) Sum() float64 {
	var total float64
	for _, f := range FactorOrder {
		if v := w.Get(f); v > 0 {
			total += v
		}
	}
	return total
}

// IsZero reports whether no weight is set.
func (w RiskWeights) IsZero() bool {
	return w == RiskWeights{}
}

// CustomerData is the loosely-typed customer record scored by the risk engine.
// Every field is optional.
type CustomerData struct {
	Nationality   string     `json:"nationality,omitempty"`
	Country       string     `json:"country,omitempty"`
	GeoFocus      StringList `json:"geo_focus,omitempty"`
	Industry      string     `json:"industry,omitempty"`
	PEPStatus     PEPStatus  `json:"pep_status,omitempty"`
	Products      StringList `json:"products,omitempty"`
	TxVolume      string     `json:"tx_volume,omitempty"`
	SourceOfFunds string     `json:"source_of_funds,omitempty"`
}

// StringList is a field that arrives as a single value, a list, or a
// comma-joined string. It always holds the raw entries; use Normalize to get
// the flat, trimmed sequence.
type StringList []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*l = nil
		return nil
	}

	if trimmed[0] == '[' {
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			switch s := v.(type) {
			case string:
				out = append(out, s)
			case nil:
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		*l = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = StringList{s}
	return nil
}

// Normalize flattens values into an ordered sequence: every entry is split on
// commas, trimmed, and empty parts are dropped.
func Normalize(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Values returns the normalized entries of the list.
func (l StringList) Values() []string {
	return Normalize(l...)
}

// PEPStatus is a boolean declaration that may arrive as a JSON bool or a
// boolean-like string. Only true, "yes" and "true" mark a PEP.
type PEPStatus struct {
	Set   bool
	Value string
}

// PEP returns a PEPStatus for a boolean declaration.
func PEP(v bool) PEPStatus {
	if v {
		return PEPStatus{Set: true, Value: "true"}
	}
	return PEPStatus{Set: true, Value: "false"}
}

// PEPString returns a PEPStatus for a string declaration.
func PEPString(v string) PEPStatus {
	return PEPStatus{Set: true, Value: v}
}

// IsPEP reports whether the declaration marks a politically exposed person.
func (p PEPStatus) IsPEP() bool {
	if !p.Set {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(p.Value)) {
	case "true", "yes":
		return true
	}
	return false
}

// UnmarshalJSON accepts a bool, a string, or null.
func (p *PEPStatus) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch trimmed {
	case "null", "":
		*p = PEPStatus{}
		return nil
	case "true", "false":
		*p = PEPStatus{Set: true, Value: trimmed}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Numbers and other shapes are not a PEP declaration.
		*p = PEPStatus{Set: true, Value: trimmed}
		return nil
	}
	*p = PEPStatus{Set: true, Value: s}
	return nil
}

// MarshalJSON writes the declaration back as a bool when it is one.
func (p PEPStatus) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	switch p.Value {
	case "true", "false":
		return []byte(p.Value), nil
	}
	return json.Marshal(p.Value)
}

// RiskFactors holds the six raw factor scores (0-100).
type RiskFactors struct {
	Country       int `json:"country"`
	Industry      int `json:"industry"`
	PEP           int `json:"pep"`
	Products      int `json:"products"`
	Volume        int `json:"volume"`
	SourceOfFunds int `json:"source_of_funds"`
}

// Get returns the score for a factor name.
func (f RiskFactors) Get(factor string) int {
	switch factor {
	case FactorCountry:
		return f.Country
	case FactorIndustry:
		return f.Industry
	case FactorPEP:
		return f.PEP
	case FactorProducts:
		return f.Products
	case FactorVolume:
		return f.Volume
	case FactorSourceOfFunds:
		return f.SourceOfFunds
	}
	return 0
}

// FactorContribution shows how one factor contributed to the overall score.
type FactorContribution struct {
	Factor   string  `json:"factor"`
	Weight   float64 `json:"weight"`
	Score    int     `json:"score"`
	Weighted float64 `json:"weighted"` // score * weight * norm / 100
}

// RiskResult is the output of the customer risk engine.
type RiskResult struct {
	OverallScore int                  `json:"overallScore"`
	RiskLevel    RiskLevel            `json:"riskLevel"`
	Factors      RiskFactors          `json:"factors"`
	Breakdown    []FactorContribution `json:"breakdown"`
}
