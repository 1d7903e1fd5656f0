package scoring

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// RequiredDocument is a document type every organization must hold.
type RequiredDocument struct {
	Type  string
	Label string
}

// RequiredDocuments is the fixed list averaged by the documents category.
var RequiredDocuments = []RequiredDocument{
	{Type: "aml_policy", Label: "AML-Richtlinie"},
	{Type: "kyc_checklist", Label: "KYC-Checkliste"},
	{Type: "risk_assessment", Label: "Risikoanalyse"},
	{Type: "kyt_policy", Label: "KYT-Richtlinie"},
	{Type: "annual_report", Label: "Jahresbericht"},
}

// Document statuses.
const (
	StatusCurrent  = "current"
	StatusReview   = "review"
	StatusDraft    = "draft"
	StatusOutdated = "outdated"
)

var statusScores = map[string]int{
	StatusCurrent:  100,
	StatusReview:   40,
	StatusDraft:    20,
	StatusOutdated: 10,
}

const maxMissingLabels = 3

// Option configures an AuditScorer.
type Option func(*AuditScorer)

// WithClock sets the reference clock used for review-expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *AuditScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// AuditScorer computes audit readiness scores. The zero value is not usable;
// use NewAuditScorer.
type AuditScorer struct {
	now func() time.Time
}

// NewAuditScorer creates a scorer. Without options it uses the wall clock.
func NewAuditScorer(opts ...Option) *AuditScorer {
	s := &AuditScorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateAuditScore scores an organization against the wall clock.
func CalculateAuditScore(in domain.AuditInput) domain.AuditScoreResult {
	return NewAuditScorer().Calculate(in)
}

// Calculate scores the five audit categories and their weighted total.
func (s *AuditScorer) Calculate(in domain.AuditInput) domain.AuditScoreResult {
	now := s.now()

	categories := domain.AuditCategories{
		Documents: weigh(documentsScore(in.Documents), domain.WeightDocuments),
		Profile:   weigh(profileScore(in.ProfileData, in.ProfileFields), domain.WeightProfile),
		Customers: weigh(customersScore(in.Customers, now), domain.WeightCustomers),
		Actions:   weigh(actionsScore(in.OpenActionCount, in.OverdueActionCount), domain.WeightActions),
		Training:  weigh(trainingScore(in.HasAnnualReport, in.LastDocUpdateDays, in.DocTypeCount), domain.WeightTraining),
	}

	var sum float64
	for _, c := range categories.All() {
		sum += c.Weighted
	}
	total := clamp(int(math.Round(sum)))

	display := AuditDisplay(total)
	return domain.AuditScoreResult{
		Total:      total,
		Categories: categories,
		Color:      display.Color,
		Bg:         display.Bg,
		Label:      display.Label,
	}
}

func weigh(c domain.CategoryScore, weight float64) domain.CategoryScore {
	c.Score = clamp(c.Score)
	c.Weight = weight
	c.Weighted = float64(c.Score) * weight
	if c.Details == nil {
		c.Details = []string{}
	}
	return c
}

func documentsScore(docs []domain.AuditDocument) domain.CategoryScore {
	var out domain.CategoryScore
	var sum int

	for _, req := range RequiredDocuments {
		best, status, found := -1, "", false
		for _, d := range docs {
			if !strings.EqualFold(strings.TrimSpace(d.DocType), req.Type) {
				continue
			}
			found = true
			st := strings.ToLower(strings.TrimSpace(d.Status))
			if score := statusScores[st]; score > best {
				best, status = score, st
			}
		}

		switch {
		case !found:
			out.Details = append(out.Details, req.Label+" fehlt")
		case status != StatusCurrent:
			out.Details = append(out.Details, fmt.Sprintf("%s: %s", req.Label, statusLabel(status)))
			sum += best
		default:
			sum += best
		}
	}

	out.Score = int(math.Round(float64(sum) / float64(len(RequiredDocuments))))
	return out
}

func statusLabel(status string) string {
	if status == "" {
		return "unbekannt"
	}
	return status
}

func profileScore(data map[string]any, fields []domain.ProfileField) domain.CategoryScore {
	if data == nil {
		return domain.CategoryScore{Score: 0, Details: []string{"Kein Firmenprofil erfasst"}}
	}

	var total, filled int
	var missing []string
	for _, f := range fields {
		if !f.IsRequired() {
			continue
		}
		total++
		if isFilled(data[f.Key]) {
			filled++
			continue
		}
		label := f.Label
		if label == "" {
			label = f.Key
		}
		missing = append(missing, label)
	}

	if total == 0 {
		return domain.CategoryScore{Score: 100}
	}

	var out domain.CategoryScore
	out.Score = int(math.Round(float64(filled) / float64(total) * 100))
	if len(missing) > 0 {
		shown := missing
		if len(shown) > maxMissingLabels {
			shown = shown[:maxMissingLabels]
		}
		detail := "Fehlende Angaben: " + strings.Join(shown, ", ")
		if len(missing) > maxMissingLabels {
			detail += " …"
		}
		out.Details = append(out.Details, detail)
	}
	return out
}

// isFilled reports whether a profile value counts as provided. nil, the empty
// string and empty slices or maps do not.
func isFilled(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func customersScore(customers []domain.AuditCustomer, now time.Time) domain.CategoryScore {
	if len(customers) == 0 {
		return domain.CategoryScore{Score: 100, Details: []string{"Keine Kunden erfasst"}}
	}

	var active, fresh, withDoc int
	for _, c := range customers {
		if c.HasKYCDoc {
			withDoc++
		}
		if !strings.EqualFold(strings.TrimSpace(c.Status), "active") {
			continue
		}
		active++
		if c.NextReview == nil || !c.NextReview.Before(now) {
			fresh++
		}
	}

	freshness := 100.0
	if active > 0 {
		freshness = float64(fresh) / float64(active) * 100
	}
	coverage := float64(withDoc) / float64(len(customers)) * 100

	var out domain.CategoryScore
	out.Score = int(math.Round(freshness*0.5 + coverage*0.5))
	if expired := active - fresh; expired > 0 {
		out.Details = append(out.Details, fmt.Sprintf("%d Kundenprüfung(en) überfällig", expired))
	}
	if missing := len(customers) - withDoc; missing > 0 {
		out.Details = append(out.Details, fmt.Sprintf("%d Kunde(n) ohne KYC-Dokument", missing))
	}
	return out
}

func actionsScore(open, overdue int) domain.CategoryScore {
	open = max(open, 0)
	overdue = max(overdue, 0)

	var score int
	switch {
	case open == 0:
		score = 100
	case open <= 2:
		score = 80
	case open <= 5:
		score = 60
	case open <= 10:
		score = 40
	default:
		score = 20
	}
	score = max(score-overdue*5, 0)

	var out domain.CategoryScore
	out.Score = score
	if open > 0 {
		out.Details = append(out.Details, fmt.Sprintf("%d offene Massnahme(n)", open))
	}
	if overdue > 0 {
		out.Details = append(out.Details, fmt.Sprintf("%d überfällige Massnahme(n)", overdue))
	}
	return out
}

func trainingScore(hasAnnualReport bool, lastUpdateDays *int, docTypes int) domain.CategoryScore {
	annual := 0
	if hasAnnualReport {
		annual = 100
	}

	recency := 50
	if lastUpdateDays != nil {
		switch d := *lastUpdateDays; {
		case d <= 30:
			recency = 100
		case d <= 90:
			recency = 70
		case d <= 180:
			recency = 40
		default:
			recency = 10
		}
	}

	var diversity int
	switch {
	case docTypes >= 5:
		diversity = 100
	case docTypes >= 3:
		diversity = 70
	case docTypes >= 1:
		diversity = 40
	}

	var out domain.CategoryScore
	out.Score = int(math.Round(float64(annual)*0.4 + float64(recency)*0.3 + float64(diversity)*0.3))
	if !hasAnnualReport {
		out.Details = append(out.Details, "Kein Jahresbericht vorhanden")
	}
	if lastUpdateDays == nil {
		out.Details = append(out.Details, "Letzte Dokumentaktualisierung unbekannt")
	} else if *lastUpdateDays > 180 {
		out.Details = append(out.Details, fmt.Sprintf("Letzte Dokumentaktualisierung vor %d Tagen", *lastUpdateDays))
	}
	return out
}
