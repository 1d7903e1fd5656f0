package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/risktables"
)

// Settings returns the tenant's scoring settings, falling back to the
// configured default weights when the tenant has none.
func (s *Service) Settings(ctx context.Context, tenantID string) (*domain.RiskSettings, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	if cached, ok := cachedLookup[domain.RiskSettings](ctx, s, tenantID, domain.CacheKeySettings); ok {
		return cached, nil
	}

	settings := s.defaultSettings(tenantID)
	if s.repo != nil {
		stored, err := s.repo.GetRiskSettings(ctx, tenantID)
		switch {
		case err == nil:
			settings = stored
			if settings.Weights.IsZero() {
				settings.Weights = s.cfg.DefaultWeights
			}
		case errors.Is(err, ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to load risk settings: %w", err)
		}
	}

	s.fill(ctx, tenantID, domain.CacheKeySettings, settings)
	return settings, nil
}

func (s *Service) defaultSettings(tenantID string) *domain.RiskSettings {
	return &domain.RiskSettings{
		TenantID: tenantID,
		Weights:  s.cfg.DefaultWeights,
	}
}

// SaveSettings validates and stores the tenant's scoring settings.
// Country override keys are normalized to upper-case ISO codes.
func (s *Service) SaveSettings(ctx context.Context, tenantID string, settings *domain.RiskSettings) (*domain.RiskSettings, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", ErrInvalidInput)
	}
	if err := ValidateWeights(settings.Weights); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, ErrUnavailable
	}

	overrides, err := normalizeOverrides(settings.CountryOverrides)
	if err != nil {
		return nil, err
	}

	saved := &domain.RiskSettings{
		TenantID:         tenantID,
		Weights:          settings.Weights,
		CountryOverrides: overrides,
		UpdatedAt:        s.now().UTC(),
	}

	if err := s.repo.SaveRiskSettings(ctx, tenantID, saved); err != nil {
		return nil, fmt.Errorf("failed to save risk settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, tenantID, domain.CacheKeySettings); err != nil {
			s.sideEffectFailed(stepCache, "failed to evict cached settings", "tenant_id", tenantID, "error", err)
		}
	}

	slog.Info("risk settings saved",
		"tenant_id", tenantID,
		"weight_sum", saved.Weights.Sum(),
		"country_overrides", len(overrides),
	)

	return saved, nil
}

// ValidateWeights rejects negative, non-finite and all-zero weights.
func ValidateWeights(w domain.RiskWeights) error {
	for _, factor := range domain.FactorOrder {
		v := w.Get(factor)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight %s must be a non-negative number", ErrInvalidInput, factor)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidInput)
	}
	return nil
}

func normalizeOverrides(in map[string]int) (map[string]int, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make(map[string]int, len(in))
	for code, score := range in {
		c := risktables.NormalizeCountry(code)
		if c == "" {
			return nil, fmt.Errorf("%w: empty country code in overrides", ErrInvalidInput)
		}
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("%w: override for %s must be between 0 and 100", ErrInvalidInput, c)
		}
		out[c] = score
	}
	return out, nil
}
