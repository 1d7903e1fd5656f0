// Package risktables holds the static risk reference tables used by the
// scoring engines: country, industry, product, transaction volume and
// source-of-funds risk.
package risktables

import "strings"

// DefaultScore is the "standard" fallback for any unknown or missing value.
const DefaultScore = 30

// LowRiskScore is the fixed score of every country on the low-risk list.
const LowRiskScore = 10

// highRiskCountries are FATF "call for action" jurisdictions.
var highRiskCountries = map[string]int{
	"KP": 95, // North Korea
	"IR": 90, // Iran
	"MM": 90, // Myanmar
}

// sanctionedCountries are jurisdictions under Swiss (SECO) sanctions
// programmes. KP, IR and MM are listed here as well; the high-risk list
// takes precedence.
var sanctionedCountries = map[string]int{
	"KP": 65,
	"IR": 65,
	"MM": 60,
	"RU": 65,
	"BY": 65,
	"AF": 60,
	"CU": 55,
	"LY": 60,
	"SD": 60,
	"SO": 60,
	"IQ": 55,
	"CF": 55,
	"ZW": 50,
	"NI": 50,
}

// greyListCountries are FATF jurisdictions under increased monitoring.
var greyListCountries = map[string]int{
	"DZ": 70, // Algeria
	"AO": 65, // Angola
	"BG": 50, // Bulgaria
	"BF": 75, // Burkina Faso
	"CM": 70, // Cameroon
	"CI": 65, // Côte d'Ivoire
	"CD": 80, // DR Congo
	"HT": 80, // Haiti
	"KE": 65, // Kenya
	"LA": 70, // Laos
	"LB": 75, // Lebanon
	"MC": 40, // Monaco
	"ML": 75, // Mali
	"MZ": 70, // Mozambique
	"NA": 60, // Namibia
	"NG": 75, // Nigeria
	"NP": 65, // Nepal
	"PH": 55, // Philippines
	"ZA": 60, // South Africa
	"SS": 85, // South Sudan
	"SY": 85, // Syria
	"TZ": 65, // Tanzania
	"VE": 80, // Venezuela
	"VN": 65, // Vietnam
	"YE": 85, // Yemen
	"VG": 50, // British Virgin Islands
}

// lowRiskCountries is the explicit allow-list scored at LowRiskScore.
// Countries not listed anywhere score DefaultScore.
var lowRiskCountries = map[string]bool{
	"CH": true, // Switzerland
	"LI": true, // Liechtenstein
	"DK": true,
	"FI": true,
	"IS": true,
	"NO": true,
	"SE": true,
	"NZ": true,
	"EE": true,
}

// NormalizeCountry upper-cases and trims a country code.
func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CountryRisk returns the risk score of an ISO country code.
//
// Lookup precedence, highest first: overrides, high-risk list, sanctions
// list, grey list, low-risk list, DefaultScore. Codes are case-insensitive.
// An empty code returns DefaultScore, not the low-risk score.
func CountryRisk(code string, overrides map[string]int) int {
	c := NormalizeCountry(code)
	if c == "" {
		return DefaultScore
	}

	if score, ok := lookupOverride(c, overrides); ok {
		return score
	}
	if score, ok := highRiskCountries[c]; ok {
		return score
	}
	if score, ok := sanctionedCountries[c]; ok {
		return score
	}
	if score, ok := greyListCountries[c]; ok {
		return score
	}
	if lowRiskCountries[c] {
		return LowRiskScore
	}
	return DefaultScore
}

// MaxCountryRisk returns the highest risk among codes. Risk scoring is
// conservative: several countries resolve to the maximum, never an average.
// No codes returns DefaultScore.
func MaxCountryRisk(codes []string, overrides map[string]int) int {
	if len(codes) == 0 {
		return DefaultScore
	}
	highest := 0
	for _, c := range codes {
		if score := CountryRisk(c, overrides); score > highest {
			highest = score
		}
	}
	return highest
}

// CountryList names the list a code resolves from.
type CountryList string

const (
	ListOverride  CountryList = "override"
	ListHighRisk  CountryList = "high_risk"
	ListSanctions CountryList = "sanctions"
	ListGrey      CountryList = "grey"
	ListLowRisk   CountryList = "low_risk"
	ListStandard  CountryList = "standard"
)

// CountryListOf reports which list a code resolves from, using the same
// precedence as CountryRisk.
func CountryListOf(code string, overrides map[string]int) CountryList {
	c := NormalizeCountry(code)
	if c == "" {
		return ListStandard
	}
	if _, ok := lookupOverride(c, overrides); ok {
		return ListOverride
	}
	if _, ok := highRiskCountries[c]; ok {
		return ListHighRisk
	}
	if _, ok := sanctionedCountries[c]; ok {
		return ListSanctions
	}
	if _, ok := greyListCountries[c]; ok {
		return ListGrey
	}
	if lowRiskCountries[c] {
		return ListLowRisk
	}
	return ListStandard
}

// lookupOverride finds a normalized code in a caller-supplied override map.
// An exact key wins; otherwise keys differing only in case or whitespace
// match, and the highest of them is used.
func lookupOverride(code string, overrides map[string]int) (int, bool) {
	if len(overrides) == 0 {
		return 0, false
	}
	if v, ok := overrides[code]; ok {
		return clampScore(v), true
	}
	found := false
	best := 0
	for k, v := range overrides {
		if NormalizeCountry(k) != code {
			continue
		}
		if !found || v > best {
			best = v
		}
		found = true
	}
	return clampScore(best), found
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
