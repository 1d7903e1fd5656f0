package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/heron/internal/assessment"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/risktables"
	"github.com/opensource-finance/heron/internal/scoring"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	service *assessment.Service
	repo    domain.Repository
	cache   domain.Cache
	weights domain.RiskWeights
	version string
}

// NewHandler creates a new API handler. repo and cache are only used for
// health checks; all scoring goes through the service.
func NewHandler(service *assessment.Service, repo domain.Repository, cache domain.Cache, defaultWeights domain.RiskWeights, version string) *Handler {
	if defaultWeights.IsZero() {
		defaultWeights = domain.DefaultRiskWeights()
	}
	return &Handler{
		service: service,
		repo:    repo,
		cache:   cache,
		weights: defaultWeights,
		version: version,
	}
}

// CalculateRiskRequest is the request body for POST /risk/calculate.
type CalculateRiskRequest struct {
	Customer         domain.CustomerData `json:"customer"`
	Weights          *domain.RiskWeights `json:"weights,omitempty"`
	CountryOverrides map[string]int      `json:"countryOverrides,omitempty"`
}

// RiskResponse is a risk result with its badge styling.
type RiskResponse struct {
	domain.RiskResult
	Display risktables.Display `json:"display"`
}

// AssessmentResponse is the response for customer assessment endpoints.
type AssessmentResponse struct {
	*domain.RiskAssessment
	RequiresEDD bool               `json:"requiresEdd"`
	Reasons     []string           `json:"reasons,omitempty"`
	Display     risktables.Display `json:"display"`
}

func assessmentResponse(a *domain.RiskAssessment) AssessmentResponse {
	return AssessmentResponse{
		RiskAssessment: a,
		RequiresEDD:    a.RequiresEDD(),
		Reasons:        a.Reasons(),
		Display:        risktables.RiskDisplay(a.Result.RiskLevel),
	}
}

// CalculateRisk handles POST /risk/calculate. Nothing is stored.
func (h *Handler) CalculateRisk(w http.ResponseWriter, r *http.Request) {
	var req CalculateRiskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	weights := h.weights
	if req.Weights != nil {
		weights = *req.Weights
	}

	result := scoring.CalculateCustomerRisk(req.Customer, weights, req.CountryOverrides)

	writeJSON(w, http.StatusOK, RiskResponse{
		RiskResult: result,
		Display:    risktables.RiskDisplay(result.RiskLevel),
	})
}

// AssessCustomer handles POST /customers/{id}/risk.
func (h *Handler) AssessCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "id")

	var data domain.CustomerData
	if !decodeJSON(w, r, &data) {
		return
	}

	a, err := h.service.AssessCustomer(ctx, GetTenantID(ctx), customerID, data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assessmentResponse(a))
}

// LatestAssessment handles GET /customers/{id}/risk.
func (h *Handler) LatestAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := h.service.LatestAssessment(ctx, GetTenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assessmentResponse(a))
}

// AssessmentHistory handles GET /customers/{id}/risk/history?limit=n.
func (h *Handler) AssessmentHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	history, err := h.service.AssessmentHistory(ctx, GetTenantID(ctx), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": history,
		"count":       len(history),
	})
}

// CalculateAudit handles POST /audit/calculate. Nothing is stored.
func (h *Handler) CalculateAudit(w http.ResponseWriter, r *http.Request) {
	var in domain.AuditInput
	if !decodeJSON(w, r, &in) {
		return
	}

	writeJSON(w, http.StatusOK, scoring.CalculateAuditScore(in))
}

// ScoreAudit handles POST /audit/score.
func (h *Handler) ScoreAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in domain.AuditInput
	if !decodeJSON(w, r, &in) {
		return
	}

	snap, err := h.service.ScoreAudit(ctx, GetTenantID(ctx), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// LatestAudit handles GET /audit/score.
func (h *Handler) LatestAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.service.LatestAudit(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// AuditHistory handles GET /audit/history?since=RFC3339.
func (h *Handler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be an RFC3339 timestamp",
			})
			return
		}
		since = t
	}

	history, err := h.service.AuditHistory(ctx, GetTenantID(ctx), since)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": history,
		"count":     len(history),
	})
}

// GetSettings handles GET /settings/risk.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.service.Settings(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// SaveSettings handles PUT /settings/risk.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var settings domain.RiskSettings
	if !decodeJSON(w, r, &settings) {
		return
	}

	saved, err := h.service.SaveSettings(ctx, GetTenantID(ctx), &settings)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// CountryResponse describes the risk of one country code.
type CountryResponse struct {
	Code     string                 `json:"code"`
	Score    int                    `json:"score"`
	List     risktables.CountryList `json:"list"`
	Category domain.RiskLevel       `json:"category"`
	Display  risktables.Display     `json:"display"`
}

// GetCountry handles GET /reference/countries/{code}. When X-Tenant-ID is
// sent, the tenant's country overrides apply.
func (h *Handler) GetCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := risktables.NormalizeCountry(chi.URLParam(r, "code"))

	var overrides map[string]int
	if tenantID := strings.TrimSpace(r.Header.Get(TenantIDHeader)); tenantID != "" {
		if !tenantIDPattern.MatchString(tenantID) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid X-Tenant-ID"})
			return
		}
		settings, err := h.service.Settings(ctx, tenantID)
		if err != nil {
			writeError(w, err)
			return
		}
		overrides = settings.CountryOverrides
	}

	score := risktables.CountryRisk(code, overrides)
	category := risktables.Category(score)

	writeJSON(w, http.StatusOK, CountryResponse{
		Code:     code,
		Score:    score,
		List:     risktables.CountryListOf(code, overrides),
		Category: category,
		Display:  risktables.RiskDisplay(category),
	})
}

// ListIndustries handles GET /reference/industries.
func (h *Handler) ListIndustries(w http.ResponseWriter, r *http.Request) {
	industries := risktables.Industries()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"industries": industries,
		"count":      len(industries),
	})
}

// ListProducts handles GET /reference/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := risktables.Products()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// ListRules returns the escalation rules active for the tenant.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loaded, err := h.service.ListRules(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// CreateRuleRequest is the request body for creating an escalation rule.
type CreateRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Enabled     *bool             `json:"enabled,omitempty"`
}

// CreateRule validates, stores and activates an escalation rule.
// Rules are enabled unless the request says otherwise.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	enabled := req.Enabled == nil || *req.Enabled

	rule, err := h.service.CreateRule(ctx, GetTenantID(ctx), &domain.EscalationRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Expression:  req.Expression,
		Bands:       req.Bands,
		Enabled:     enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

// DeleteRule disables an escalation rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.DeleteRule(ctx, GetTenantID(ctx), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReloadRules reloads the tenant's rules from the database into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.service.ReloadRules(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   count,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return false
	}
	return true
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assessment.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, assessment.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, assessment.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
