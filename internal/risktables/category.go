package risktables

import "github.com/opensource-finance/heron/internal/domain"

// Category maps a 0-100 score to a risk level.
//
//	<= 25 low, <= 50 standard, <= 75 elevated, else high
func Category(score int) domain.RiskLevel {
	switch {
	case score <= 25:
		return domain.RiskLow
	case score <= 50:
		return domain.RiskStandard
	case score <= 75:
		return domain.RiskElevated
	default:
		return domain.RiskHigh
	}
}

// Display is the color/background/label triple used by UI badges.
type Display struct {
	Color string `json:"color"`
	Bg    string `json:"bg"`
	Label string `json:"label"`
}

var riskDisplays = map[domain.RiskLevel]Display{
	domain.RiskLow:      {Color: "#16a34a", Bg: "#dcfce7", Label: "Gering"},
	domain.RiskStandard: {Color: "#2563eb", Bg: "#dbeafe", Label: "Standard"},
	domain.RiskElevated: {Color: "#d97706", Bg: "#fef3c7", Label: "Erhöht"},
	domain.RiskHigh:     {Color: "#dc2626", Bg: "#fee2e2", Label: "Hoch"},
}

// RiskDisplay returns the badge styling of a risk level. Unknown levels get
// the standard styling.
func RiskDisplay(level domain.RiskLevel) Display {
	if d, ok := riskDisplays[level]; ok {
		return d
	}
	return riskDisplays[domain.RiskStandard]
}
