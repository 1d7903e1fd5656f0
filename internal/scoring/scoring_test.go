package scoring

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

var refTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedScorer() *AuditScorer {
	return NewAuditScorer(WithClock(func() time.Time { return refTime }))
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestCalculateCustomerRisk_HighRiskCustomer(t *testing.T) {
	c := domain.CustomerData{
		Nationality:   "IR",
		Industry:      "Krypto / Blockchain / DLT",
		PEPStatus:     domain.PEP(true),
		Products:      domain.StringList{"Crypto Trading"},
		TxVolume:      "sehr hoch",
		SourceOfFunds: "bar",
	}

	result := CalculateCustomerRisk(c, domain.DefaultRiskWeights(), nil)

	if result.OverallScore != 85 {
		t.Errorf("expected overall score 85, got %d", result.OverallScore)
	}
	if result.RiskLevel != domain.RiskHigh {
		t.Errorf("expected level high, got %s", result.RiskLevel)
	}

	want := domain.RiskFactors{Country: 90, Industry: 85, PEP: 90, Products: 80, Volume: 80, SourceOfFunds: 75}
	if result.Factors != want {
		t.Errorf("unexpected factors: got %+v, want %+v", result.Factors, want)
	}
}

func TestCalculateCustomerRisk_Breakdown(t *testing.T) {
	result := CalculateCustomerRisk(domain.CustomerData{Nationality: "CH"}, domain.DefaultRiskWeights(), nil)

	if len(result.Breakdown) != len(domain.FactorOrder) {
		t.Fatalf("expected %d breakdown entries, got %d", len(domain.FactorOrder), len(result.Breakdown))
	}

	var sum float64
	for i, entry := range result.Breakdown {
		if entry.Factor != domain.FactorOrder[i] {
			t.Errorf("breakdown[%d] = %s, want %s", i, entry.Factor, domain.FactorOrder[i])
		}
		sum += entry.Weighted
	}
	if got := int(math.Round(sum)); got != result.OverallScore {
		t.Errorf("breakdown sums to %d, overall is %d", got, result.OverallScore)
	}
}

func TestCalculateCustomerRisk_PEPStrictness(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.PEPStatus
		expected int
	}{
		{"Absent", domain.PEPStatus{}, NonPEPScore},
		{"False", domain.PEP(false), NonPEPScore},
		{"True", domain.PEP(true), PEPScore},
		{"Yes", domain.PEPString("yes"), PEPScore},
		{"YesUpper", domain.PEPString(" YES "), PEPScore},
		{"TrueString", domain.PEPString("true"), PEPScore},
		{"No", domain.PEPString("no"), NonPEPScore},
		{"Garbage", domain.PEPString("vielleicht"), NonPEPScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors := CustomerFactors(domain.CustomerData{PEPStatus: tt.status}, nil)
			if factors.PEP != tt.expected {
				t.Errorf("expected pep factor %d, got %d", tt.expected, factors.PEP)
			}
		})
	}
}

func TestCalculateCustomerRisk_CountryMax(t *testing.T) {
	c := domain.CustomerData{
		Nationality: "CH",
		GeoFocus:    domain.StringList{"IR, DE"},
	}

	factors := CustomerFactors(c, nil)
	if factors.Country != 90 {
		t.Errorf("expected country factor 90 (max), got %d", factors.Country)
	}

	if got := CustomerFactors(domain.CustomerData{}, nil).Country; got != 30 {
		t.Errorf("expected fallback 30 with no countries, got %d", got)
	}
}

func TestCalculateCustomerRisk_CountryOverrides(t *testing.T) {
	c := domain.CustomerData{Nationality: "IR"}

	factors := CustomerFactors(c, map[string]int{"IR": 40})
	if factors.Country != 40 {
		t.Errorf("expected overridden country factor 40, got %d", factors.Country)
	}
}

func TestCalculateCustomerRisk_Weights(t *testing.T) {
	c := domain.CustomerData{
		Nationality:   "IR",
		Industry:      "IT / Software",
		TxVolume:      "gering",
		SourceOfFunds: "Lohn",
	}

	t.Run("ZeroSum", func(t *testing.T) {
		result := CalculateCustomerRisk(c, domain.RiskWeights{}, nil)
		if result.OverallScore != 0 {
			t.Errorf("expected 0 with zero weights, got %d", result.OverallScore)
		}
		if result.RiskLevel != domain.RiskLow {
			t.Errorf("expected low, got %s", result.RiskLevel)
		}
	})

	t.Run("Normalized", func(t *testing.T) {
		// country only, at any scale, yields the country factor
		for _, w := range []float64{1, 25, 400} {
			result := CalculateCustomerRisk(c, domain.RiskWeights{Country: w}, nil)
			if result.OverallScore != 90 {
				t.Errorf("weight %.0f: expected 90, got %d", w, result.OverallScore)
			}
		}
	})

	t.Run("NegativeIgnored", func(t *testing.T) {
		result := CalculateCustomerRisk(c, domain.RiskWeights{Country: 50, Industry: -50}, nil)
		if result.OverallScore != 90 {
			t.Errorf("expected 90, got %d", result.OverallScore)
		}
		if result.Breakdown[1].Weight != 0 {
			t.Errorf("expected negative weight reported as 0, got %v", result.Breakdown[1].Weight)
		}
	})
}

func TestCalculateCustomerRisk_FromJSON(t *testing.T) {
	payload := `{
		"nationality": "ch",
		"geo_focus": ["DE", "SY"],
		"industry": "Treuhand / Trust",
		"pep_status": "Yes",
		"products": "Sparkonto, Crypto Trading",
		"tx_volume": "1-5 Mio",
		"source_of_funds": "Erbschaft"
	}`

	var c domain.CustomerData
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	factors := CustomerFactors(c, nil)
	if factors.Country != 85 {
		t.Errorf("expected country 85, got %d", factors.Country)
	}
	if factors.Industry != 65 {
		t.Errorf("expected industry 65, got %d", factors.Industry)
	}
	if factors.PEP != PEPScore {
		t.Errorf("expected pep %d, got %d", PEPScore, factors.PEP)
	}
	if factors.Products != 80 {
		t.Errorf("expected products 80, got %d", factors.Products)
	}
	if factors.Volume != 40 {
		t.Errorf("expected volume 40, got %d", factors.Volume)
	}
	if factors.SourceOfFunds != 40 {
		t.Errorf("expected source of funds 40, got %d", factors.SourceOfFunds)
	}
}

func TestCalculateCustomerRisk_Bounds(t *testing.T) {
	inputs := []domain.CustomerData{
		{},
		{Nationality: "KP", Industry: "Glücksspiel / Casino", PEPStatus: domain.PEP(true), Products: domain.StringList{"Bargeldtransaktionen"}, TxVolume: "sehr hoch", SourceOfFunds: "Bargeld"},
		{Products: domain.StringList{"", " , "}},
	}
	weights := []domain.RiskWeights{
		domain.DefaultRiskWeights(),
		{},
		{Country: -10},
		{Country: 1e9, PEP: 1e-9},
	}

	for _, c := range inputs {
		for _, w := range weights {
			result := CalculateCustomerRisk(c, w, nil)
			if result.OverallScore < 0 || result.OverallScore > 100 {
				t.Errorf("score out of bounds: %d (customer %+v, weights %+v)", result.OverallScore, c, w)
			}
		}
	}
}

func perfectInput() domain.AuditInput {
	docs := make([]domain.AuditDocument, 0, len(RequiredDocuments))
	for _, d := range RequiredDocuments {
		docs = append(docs, domain.AuditDocument{DocType: d.Type, Status: StatusCurrent})
	}
	return domain.AuditInput{
		Documents: docs,
		ProfileData: map[string]any{
			"company_name": "Muster AG",
			"uid":          "CHE-123.456.789",
			"sro":          "VQF",
		},
		ProfileFields: []domain.ProfileField{
			{Key: "company_name", Label: "Firmenname"},
			{Key: "uid", Label: "UID"},
			{Key: "sro", Label: "SRO"},
		},
		HasAnnualReport:   true,
		DocTypeCount:      5,
		LastDocUpdateDays: intPtr(10),
	}
}

func TestCalculateAuditScore_PerfectOrganization(t *testing.T) {
	result := fixedScorer().Calculate(perfectInput())

	if result.Total < 95 || result.Total > 100 {
		t.Errorf("expected total in [95,100], got %d", result.Total)
	}
	if result.Label != LabelReady {
		t.Errorf("expected label %s, got %s", LabelReady, result.Label)
	}
	if result.Categories.Documents.Score != 100 {
		t.Errorf("expected documents 100, got %d", result.Categories.Documents.Score)
	}
	if len(result.Categories.Documents.Details) != 0 {
		t.Errorf("expected no document details, got %v", result.Categories.Documents.Details)
	}
	if result.Categories.Customers.Score != 100 {
		t.Errorf("expected customers 100 with no customers, got %d", result.Categories.Customers.Score)
	}
	if len(result.Categories.Customers.Details) != 1 {
		t.Errorf("expected the no-customers detail, got %v", result.Categories.Customers.Details)
	}
}

func TestCalculateAuditScore_EmptyOrganization(t *testing.T) {
	in := domain.AuditInput{
		OpenActionCount:    15,
		OverdueActionCount: 5,
		LastDocUpdateDays:  intPtr(365),
	}

	result := fixedScorer().Calculate(in)

	if result.Total >= 50 {
		t.Errorf("expected total < 50, got %d", result.Total)
	}
	if result.Label != LabelCritical {
		t.Errorf("expected label %s, got %s", LabelCritical, result.Label)
	}
	if result.Color != "#dc2626" || result.Bg != "#fee2e2" {
		t.Errorf("unexpected colours %s/%s", result.Color, result.Bg)
	}
	if result.Categories.Profile.Score != 0 {
		t.Errorf("expected profile 0 without profile, got %d", result.Categories.Profile.Score)
	}
	if got := len(result.Categories.Documents.Details); got != len(RequiredDocuments) {
		t.Errorf("expected %d missing details, got %d", len(RequiredDocuments), got)
	}
}

func TestCalculateAuditScore_WeightedSum(t *testing.T) {
	inputs := []domain.AuditInput{
		perfectInput(),
		{},
		{OpenActionCount: 4, OverdueActionCount: 1, DocTypeCount: 2},
		{
			Documents: []domain.AuditDocument{{DocType: "aml_policy", Status: "review"}},
			Customers: []domain.AuditCustomer{{Status: "active", HasKYCDoc: true}, {Status: "inactive"}},
		},
	}

	weights := map[string]float64{
		domain.CategoryDocuments: domain.WeightDocuments,
		domain.CategoryProfile:   domain.WeightProfile,
		domain.CategoryCustomers: domain.WeightCustomers,
		domain.CategoryActions:   domain.WeightActions,
		domain.CategoryTraining:  domain.WeightTraining,
	}

	for i, in := range inputs {
		result := fixedScorer().Calculate(in)

		var sum float64
		for _, c := range result.Categories.All() {
			sum += c.Weighted
		}
		if int(math.Round(sum)) != result.Total {
			t.Errorf("input %d: round(sum)=%d, total=%d", i, int(math.Round(sum)), result.Total)
		}

		got := map[string]float64{
			domain.CategoryDocuments: result.Categories.Documents.Weight,
			domain.CategoryProfile:   result.Categories.Profile.Weight,
			domain.CategoryCustomers: result.Categories.Customers.Weight,
			domain.CategoryActions:   result.Categories.Actions.Weight,
			domain.CategoryTraining:  result.Categories.Training.Weight,
		}
		for name, w := range weights {
			if got[name] != w {
				t.Errorf("input %d: %s weight = %v, want %v", i, name, got[name], w)
			}
		}

		if result.Total < 0 || result.Total > 100 {
			t.Errorf("input %d: total out of bounds: %d", i, result.Total)
		}
	}
}

func TestDocumentsScore(t *testing.T) {
	t.Run("ExtraTypesIgnored", func(t *testing.T) {
		in := perfectInput()
		for i := 0; i < 10; i++ {
			in.Documents = append(in.Documents, domain.AuditDocument{DocType: "misc", Status: StatusDraft})
		}
		if got := documentsScore(in.Documents).Score; got != 100 {
			t.Errorf("expected 100, got %d", got)
		}
	})

	t.Run("AllMissing", func(t *testing.T) {
		docs := []domain.AuditDocument{{DocType: "misc", Status: StatusCurrent}}
		if got := documentsScore(docs).Score; got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("BestStatusWins", func(t *testing.T) {
		docs := []domain.AuditDocument{
			{DocType: "aml_policy", Status: StatusOutdated},
			{DocType: "aml_policy", Status: StatusReview},
			{DocType: "aml_policy", Status: StatusDraft},
		}
		// (40 + 0*4) / 5
		if got := documentsScore(docs).Score; got != 8 {
			t.Errorf("expected 8, got %d", got)
		}
	})

	t.Run("StatusScores", func(t *testing.T) {
		tests := []struct {
			status   string
			expected int
		}{
			{StatusCurrent, 20},
			{StatusReview, 8},
			{StatusDraft, 4},
			{StatusOutdated, 2},
			{"archived", 0},
		}
		for _, tt := range tests {
			docs := []domain.AuditDocument{{DocType: "kyc_checklist", Status: tt.status}}
			if got := documentsScore(docs).Score; got != tt.expected {
				t.Errorf("status %q: expected %d, got %d", tt.status, tt.expected, got)
			}
		}
	})

	t.Run("Details", func(t *testing.T) {
		docs := []domain.AuditDocument{
			{DocType: "aml_policy", Status: StatusDraft},
			{DocType: "kyc_checklist", Status: StatusCurrent},
		}
		details := documentsScore(docs).Details
		if len(details) != 4 {
			t.Fatalf("expected 4 details, got %v", details)
		}
		if details[0] != "AML-Richtlinie: draft" {
			t.Errorf("unexpected first detail %q", details[0])
		}
		if details[1] != "Risikoanalyse fehlt" {
			t.Errorf("unexpected second detail %q", details[1])
		}
	})
}

func TestProfileScore(t *testing.T) {
	fields := []domain.ProfileField{
		{Key: "name", Label: "Name"},
		{Key: "uid", Label: "UID"},
		{Key: "address", Label: "Adresse"},
		{Key: "owners", Label: "Inhaber"},
		{Key: "sro", Label: "SRO"},
		{Key: "website", Label: "Website", Required: boolPtr(false)},
	}

	t.Run("NoProfile", func(t *testing.T) {
		out := profileScore(nil, fields)
		if out.Score != 0 || len(out.Details) != 1 {
			t.Errorf("unexpected result %+v", out)
		}
	})

	t.Run("EmptyValuesNotFilled", func(t *testing.T) {
		data := map[string]any{
			"name":    "Muster AG",
			"uid":     "",
			"address": nil,
			"owners":  []any{},
			"website": "https://example.ch",
		}
		out := profileScore(data, fields)
		// 1 of 5 required
		if out.Score != 20 {
			t.Errorf("expected 20, got %d", out.Score)
		}
		if len(out.Details) != 1 {
			t.Fatalf("expected one detail, got %v", out.Details)
		}
		if want := "Fehlende Angaben: UID, Adresse, Inhaber …"; out.Details[0] != want {
			t.Errorf("detail = %q, want %q", out.Details[0], want)
		}
	})

	t.Run("NoRequiredFields", func(t *testing.T) {
		out := profileScore(map[string]any{}, []domain.ProfileField{{Key: "x", Required: boolPtr(false)}})
		if out.Score != 100 {
			t.Errorf("expected vacuous 100, got %d", out.Score)
		}
	})

	t.Run("Rounding", func(t *testing.T) {
		data := map[string]any{"name": "A", "uid": "B"}
		out := profileScore(data, fields[:3])
		// 2/3 -> 66.67
		if out.Score != 67 {
			t.Errorf("expected 67, got %d", out.Score)
		}
		if out.Details[0] != "Fehlende Angaben: Adresse" {
			t.Errorf("unexpected detail %q", out.Details[0])
		}
	})
}

func TestCustomersScore(t *testing.T) {
	past := timePtr(refTime.AddDate(0, -1, 0))
	future := timePtr(refTime.AddDate(1, 0, 0))

	tests := []struct {
		name      string
		customers []domain.AuditCustomer
		expected  int
	}{
		{"None", nil, 100},
		{"AllFreshAllDocs", []domain.AuditCustomer{
			{Status: "active", NextReview: future, HasKYCDoc: true},
			{Status: "active", HasKYCDoc: true},
		}, 100},
		{"HalfExpired", []domain.AuditCustomer{
			{Status: "active", NextReview: past, HasKYCDoc: true},
			{Status: "active", NextReview: future, HasKYCDoc: true},
		}, 75},
		{"NoActive", []domain.AuditCustomer{
			{Status: "inactive", NextReview: past, HasKYCDoc: false},
			{Status: "archived", HasKYCDoc: true},
		}, 75},
		{"NoDocs", []domain.AuditCustomer{
			{Status: "Active", NextReview: past},
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := customersScore(tt.customers, refTime).Score; got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCustomersScore_ClockInjection(t *testing.T) {
	review := refTime.AddDate(0, 0, 10)
	in := domain.AuditInput{Customers: []domain.AuditCustomer{{Status: "active", NextReview: &review, HasKYCDoc: true}}}

	before := NewAuditScorer(WithClock(func() time.Time { return refTime })).Calculate(in)
	after := NewAuditScorer(WithClock(func() time.Time { return refTime.AddDate(0, 1, 0) })).Calculate(in)

	if before.Categories.Customers.Score != 100 {
		t.Errorf("expected 100 before review date, got %d", before.Categories.Customers.Score)
	}
	if after.Categories.Customers.Score != 50 {
		t.Errorf("expected 50 after review date, got %d", after.Categories.Customers.Score)
	}
}

func TestActionsScore(t *testing.T) {
	tests := []struct {
		open, overdue int
		expected      int
	}{
		{0, 0, 100},
		{1, 0, 80},
		{2, 0, 80},
		{3, 0, 60},
		{5, 0, 60},
		{6, 0, 40},
		{10, 0, 40},
		{11, 0, 20},
		{3, 3, 45},
		{15, 5, 0},
		{-4, -2, 100},
	}

	for _, tt := range tests {
		if got := actionsScore(tt.open, tt.overdue).Score; got != tt.expected {
			t.Errorf("actionsScore(%d, %d) = %d, want %d", tt.open, tt.overdue, got, tt.expected)
		}
	}
}

func TestTrainingScore(t *testing.T) {
	tests := []struct {
		name     string
		annual   bool
		days     *int
		types    int
		expected int
	}{
		{"Perfect", true, intPtr(10), 5, 100},
		{"Nothing", false, nil, 0, 15},
		{"Stale", false, intPtr(365), 0, 3},
		{"Ninety", true, intPtr(90), 3, 82},
		{"HalfYear", false, intPtr(180), 1, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trainingScore(tt.annual, tt.days, tt.types).Score; got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestAuditDisplay(t *testing.T) {
	tests := []struct {
		total int
		label string
	}{
		{100, LabelReady},
		{80, LabelReady},
		{79, LabelPartial},
		{50, LabelPartial},
		{49, LabelCritical},
		{0, LabelCritical},
	}

	for _, tt := range tests {
		if got := AuditDisplay(tt.total).Label; got != tt.label {
			t.Errorf("AuditDisplay(%d) = %s, want %s", tt.total, got, tt.label)
		}
	}
}

func TestCalculateAuditScore_Deterministic(t *testing.T) {
	in := perfectInput()
	in.Customers = []domain.AuditCustomer{{Status: "active", NextReview: timePtr(refTime.AddDate(0, 0, -1))}}

	s := fixedScorer()
	a, b := s.Calculate(in), s.Calculate(in)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("results differ:\n%s\n%s", ja, jb)
	}
}
