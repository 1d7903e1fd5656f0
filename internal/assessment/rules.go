package assessment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/rules"
)

// DefaultRuleVersion is assigned to rules created without a version.
const DefaultRuleVersion = "1.0.0"

// ensureRules loads a tenant's stored rules into the engine the first time
// the tenant is assessed. Load failures leave the tenant without rules.
func (s *Service) ensureRules(ctx context.Context, tenantID string) {
	s.mu.Lock()
	loaded := s.rulesLoaded[tenantID]
	s.mu.Unlock()
	if loaded || s.repo == nil {
		return
	}

	if _, err := s.ReloadRules(ctx, tenantID); err != nil {
		slog.Error("failed to load escalation rules",
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

func (s *Service) markLoaded(tenantID string) {
	s.mu.Lock()
	s.rulesLoaded[tenantID] = true
	s.mu.Unlock()
}

// ListRules returns the rules currently active for a tenant.
func (s *Service) ListRules(ctx context.Context, tenantID string) ([]*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if s.engine == nil {
		return nil, nil
	}

	s.ensureRules(ctx, tenantID)
	return s.engine.GetLoadedRules(tenantID), nil
}

// CreateRule validates, stores and activates an escalation rule.
func (s *Service) CreateRule(ctx context.Context, tenantID string, rule *domain.EscalationRule) (*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule == nil || rule.ID == "" || rule.Name == "" || rule.Expression == "" {
		return nil, fmt.Errorf("%w: id, name, and expression are required", ErrInvalidInput)
	}
	if s.engine == nil {
		return nil, fmt.Errorf("rule engine not available")
	}

	r := *rule
	r.TenantID = tenantID
	if r.Version == "" {
		r.Version = DefaultRuleVersion
	}

	if err := s.engine.ValidateRule(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if s.repo != nil {
		if err := s.repo.SaveEscalationRule(ctx, tenantID, &r); err != nil {
			return nil, fmt.Errorf("failed to save rule: %w", err)
		}
		if _, err := s.ReloadRules(ctx, tenantID); err != nil {
			return nil, err
		}
	} else if r.Enabled {
		if err := s.engine.LoadRule(&r); err != nil {
			return nil, err
		}
	}

	slog.Info("escalation rule created",
		"tenant_id", tenantID,
		"rule_id", r.ID,
		"version", r.Version,
		"enabled", r.Enabled,
	)

	return &r, nil
}

// DeleteRule disables a stored rule and reloads the tenant's rules.
func (s *Service) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	if tenantID == "" || ruleID == "" {
		return fmt.Errorf("%w: tenantID and rule id are required", ErrInvalidInput)
	}
	if s.repo == nil {
		return ErrUnavailable
	}

	if err := s.repo.DeleteEscalationRule(ctx, tenantID, ruleID); err != nil {
		return err
	}

	if _, err := s.ReloadRules(ctx, tenantID); err != nil {
		return err
	}

	slog.Info("escalation rule deleted", "tenant_id", tenantID, "rule_id", ruleID)
	return nil
}

// ReloadRules replaces the tenant's loaded rules with the stored ones and
// returns how many are active.
func (s *Service) ReloadRules(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if s.repo == nil {
		return 0, ErrUnavailable
	}
	if s.engine == nil {
		return 0, fmt.Errorf("rule engine not available")
	}

	stored, err := s.repo.ListEscalationRules(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list rules: %w", err)
	}

	if err := s.engine.ReloadRules(tenantID, stored); err != nil {
		return 0, fmt.Errorf("failed to reload rules: %w", err)
	}
	s.markLoaded(tenantID)

	count := s.engine.RulesCount(tenantID)
	slog.Debug("escalation rules loaded", "tenant_id", tenantID, "count", count)
	return count, nil
}

// SeedDefaultRules stores and loads the built-in rules for a tenant that has
// no active rules. It returns the number of rules seeded.
func (s *Service) SeedDefaultRules(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if s.engine == nil {
		return 0, nil
	}

	defaults := rules.DefaultRules(tenantID)

	if s.repo == nil {
		if s.engine.RulesCount(tenantID) > 0 {
			return 0, nil
		}
		if err := s.engine.LoadRules(defaults); err != nil {
			return 0, err
		}
		return len(defaults), nil
	}

	existing, err := s.repo.ListEscalationRules(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list rules: %w", err)
	}
	if len(existing) > 0 {
		_, err := s.ReloadRules(ctx, tenantID)
		return 0, err
	}

	for _, rule := range defaults {
		if err := s.repo.SaveEscalationRule(ctx, tenantID, rule); err != nil {
			return 0, fmt.Errorf("failed to seed rule %s: %w", rule.ID, err)
		}
	}

	if _, err := s.ReloadRules(ctx, tenantID); err != nil {
		return 0, err
	}

	slog.Info("default escalation rules seeded", "tenant_id", tenantID, "count", len(defaults))
	return len(defaults), nil
}
