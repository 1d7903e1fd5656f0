package scoring

import "github.com/opensource-finance/heron/internal/risktables"

// Audit readiness labels.
const (
	LabelReady    = "Bereit"
	LabelPartial  = "Teilweise"
	LabelCritical = "Kritisch"
)

// AuditDisplay maps an audit total to its badge styling.
//
//	>= 80 Bereit, >= 50 Teilweise, else Kritisch
func AuditDisplay(total int) risktables.Display {
	switch {
	case total >= 80:
		return risktables.Display{Color: "#16a34a", Bg: "#dcfce7", Label: LabelReady}
	case total >= 50:
		return risktables.Display{Color: "#d97706", Bg: "#fef3c7", Label: LabelPartial}
	default:
		return risktables.Display{Color: "#dc2626", Bg: "#fee2e2", Label: LabelCritical}
	}
}
