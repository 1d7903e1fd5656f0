package risktables

import (
	"sort"

	"github.com/opensource-finance/heron/internal/domain"
)

// Industry is a customer industry category. Values are the German labels
// used throughout the compliance console.
type Industry string

const (
	IndustryCrypto        Industry = "Krypto / Blockchain / DLT"
	IndustryGambling      Industry = "Glücksspiel / Casino"
	IndustryPreciousMetal Industry = "Edelmetalle / Rohstoffhandel"
	IndustryArt           Industry = "Kunst / Antiquitäten"
	IndustryTrust         Industry = "Treuhand / Trust"
	IndustryRealEstate    Industry = "Immobilien"
	IndustryNonProfit     Industry = "NGO / Stiftung"
	IndustryAssetMgmt     Industry = "Vermögensverwaltung"
	IndustryCarDealer     Industry = "Autohandel"
	IndustryFinance       Industry = "Finanzdienstleistungen"
	IndustryConstruction  Industry = "Bau / Baugewerbe"
	IndustryHospitality   Industry = "Gastronomie / Hotellerie"
	IndustryLegal         Industry = "Rechts- / Steuerberatung"
	IndustryTrade         Industry = "Handel / E-Commerce"
	IndustryConsulting    Industry = "Beratung"
	IndustryIT            Industry = "IT / Software"
	IndustryHealthcare    Industry = "Gesundheitswesen"
	IndustryManufacturing Industry = "Industrie / Produktion"
	IndustryPublic        Industry = "Öffentliche Verwaltung"
	IndustryOther         Industry = "Andere"
)

var industryRisk = map[Industry]int{
	IndustryCrypto:        85,
	IndustryGambling:      85,
	IndustryPreciousMetal: 75,
	IndustryArt:           70,
	IndustryTrust:         65,
	IndustryRealEstate:    60,
	IndustryNonProfit:     60,
	IndustryAssetMgmt:     55,
	IndustryCarDealer:     55,
	IndustryFinance:       50,
	IndustryConstruction:  50,
	IndustryHospitality:   45,
	IndustryLegal:         40,
	IndustryTrade:         35,
	IndustryConsulting:    30,
	IndustryIT:            20,
	IndustryHealthcare:    20,
	IndustryManufacturing: 20,
	IndustryPublic:        10,
	IndustryOther:         30,
}

// Score returns the industry risk, DefaultScore when unknown.
func (i Industry) Score() int {
	if score, ok := industryRisk[i]; ok {
		return score
	}
	return DefaultScore
}

// Known reports whether the label is part of the industry taxonomy.
func (i Industry) Known() bool {
	_, ok := industryRisk[i]
	return ok
}

// IndustryRisk looks up an industry label by exact match.
// Empty or unmatched labels return DefaultScore.
func IndustryRisk(label string) int {
	return Industry(label).Score()
}

// Industries returns the known industry labels with their scores, sorted by
// label.
func Industries() []Entry {
	out := make([]Entry, 0, len(industryRisk))
	for k, v := range industryRisk {
		out = append(out, Entry{Label: string(k), Score: v, Category: Category(v)})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Label < out[b].Label })
	return out
}

// Entry is one label/score pair of a reference table.
type Entry struct {
	Label    string           `json:"label"`
	Score    int              `json:"score"`
	Category domain.RiskLevel `json:"category"`
}
