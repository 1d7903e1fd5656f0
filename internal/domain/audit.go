package domain

import "time"

// Audit categories.
const (
	CategoryDocuments = "documents"
	CategoryProfile   = "profile"
	CategoryCustomers = "customers"
	CategoryActions   = "actions"
	CategoryTraining  = "training"
)

// Fixed audit category weights.
const (
	WeightDocuments = 0.30
	WeightProfile   = 0.15
	WeightCustomers = 0.25
	WeightActions   = 0.15
	WeightTraining  = 0.15
)

// AuditDocument is one organization document as seen by the audit engine.
type AuditDocument struct {
	DocType    string     `json:"doc_type"`
	Status     string     `json:"status"`
	NextReview *time.Time `json:"next_review,omitempty"`
}

// AuditCustomer is the per-customer aggregate the audit engine needs.
// HasKYCDoc is computed by the caller, e.g. from an approved customer document.
type AuditCustomer struct {
	Status     string     `json:"status"`
	NextReview *time.Time `json:"next_review,omitempty"`
	HasKYCDoc  bool       `json:"has_kyc_doc"`
}

// ProfileField describes one company-profile field. Required is optional:
// only an explicit false makes a field optional.
type ProfileField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required *bool  `json:"required,omitempty"`
}

// IsRequired reports whether the field counts toward profile completeness.
func (f ProfileField) IsRequired() bool {
	return f.Required == nil || *f.Required
}

// AuditInput holds the organization-level aggregates assembled by the caller.
type AuditInput struct {
	Documents          []AuditDocument `json:"documents"`
	ProfileData        map[string]any  `json:"profileData"`
	ProfileFields      []ProfileField  `json:"profileFields"`
	Customers          []AuditCustomer `json:"customers"`
	OpenActionCount    int             `json:"openActionCount"`
	OverdueActionCount int             `json:"overdueActionCount"`
	HasAnnualReport    bool            `json:"hasAnnualReport"`
	DocTypeCount       int             `json:"docTypeCount"`
	LastDocUpdateDays  *int            `json:"lastDocUpdateDays"`
}

// CategoryScore is the result of one audit category.
type CategoryScore struct {
	Score    int      `json:"score"`
	Weight   float64  `json:"weight"`
	Weighted float64  `json:"weighted"`
	Details  []string `json:"details"`
}

// AuditCategories holds the five category scores.
type AuditCategories struct {
	Documents CategoryScore `json:"documents"`
	Profile   CategoryScore `json:"profile"`
	Customers CategoryScore `json:"customers"`
	Actions   CategoryScore `json:"actions"`
	Training  CategoryScore `json:"training"`
}

// All returns the categories in a fixed order.
func (c AuditCategories) All() []CategoryScore {
	return []CategoryScore{c.Documents, c.Profile, c.Customers, c.Actions, c.Training}
}

// AuditScoreResult is the output of the audit readiness engine.
type AuditScoreResult struct {
	Total      int             `json:"total"`
	Categories AuditCategories `json:"categories"`
	Color      string          `json:"color"`
	Bg         string          `json:"bg"`
	Label      string          `json:"label"`
}
