// Package rules provides the CEL-Go based escalation rule engine.
package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/heron/internal/domain"
)

// Engine evaluates organization-defined escalation rules over computed
// customer risk results. Rules are kept per tenant.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]map[string]*CompiledRule // tenantID -> ruleID -> rule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.EscalationRule
	Program cel.Program
}

// NewEngine creates a new escalation rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// Factor scores are ints so expressions read like "pep >= 90"
	env, err := cel.NewEnv(
		cel.Variable("customer", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("overall", cel.IntType),
		cel.Variable("level", cel.StringType),
		cel.Variable("country", cel.IntType),
		cel.Variable("industry", cel.IntType),
		cel.Variable("pep", cel.IntType),
		cel.Variable("products", cel.IntType),
		cel.Variable("volume", cel.IntType),
		cel.Variable("source_of_funds", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.EscalationRule) error {
	if cfg == nil {
		return fmt.Errorf("rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule for its tenant.
func (e *Engine) LoadRule(cfg *domain.EscalationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	tenant, ok := e.compiledRules[cfg.TenantID]
	if !ok {
		tenant = make(map[string]*CompiledRule)
		e.compiledRules[cfg.TenantID] = tenant
	}
	tenant[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules. Disabled rules are skipped.
func (e *Engine) LoadRules(configs []*domain.EscalationRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules replaces every rule of a tenant. Nothing changes if any rule
// fails to compile.
func (e *Engine) ReloadRules(tenantID string, configs []*domain.EscalationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules[tenantID] = newRules

	return nil
}

// EvaluateInput holds the scored customer for rule evaluation.
type EvaluateInput struct {
	TenantID   string
	CustomerID string
	Customer   domain.CustomerData
	Result     domain.RiskResult
}

// Evaluate runs every rule of the tenant in parallel. Flags are returned in
// rule ID order.
func (e *Engine) Evaluate(ctx context.Context, input *EvaluateInput) ([]domain.RuleFlag, error) {
	e.mu.RLock()
	loaded := e.compiledRules[input.TenantID]
	rules := make([]*CompiledRule, 0, len(loaded))
	for _, rule := range loaded {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Config.ID < rules[j].Config.ID })

	activation := buildActivation(input)

	flags := make([]domain.RuleFlag, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			flags[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return flags, nil
}

func buildActivation(input *EvaluateInput) map[string]any {
	c := input.Customer
	f := input.Result.Factors

	return map[string]any{
		"customer": map[string]any{
			"id":              input.CustomerID,
			"nationality":     c.Nationality,
			"country":         c.Country,
			"geo_focus":       c.GeoFocus.Values(),
			"industry":        c.Industry,
			"pep":             c.PEPStatus.IsPEP(),
			"products":        c.Products.Values(),
			"tx_volume":       c.TxVolume,
			"source_of_funds": c.SourceOfFunds,
		},
		"overall":         int64(input.Result.OverallScore),
		"level":           string(input.Result.RiskLevel),
		"country":         int64(f.Country),
		"industry":        int64(f.Industry),
		"pep":             int64(f.PEP),
		"products":        int64(f.Products),
		"volume":          int64(f.Volume),
		"source_of_funds": int64(f.SourceOfFunds),
	}
}

func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) domain.RuleFlag {
	start := time.Now()

	flag := domain.RuleFlag{RuleID: rule.Config.ID}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		flag.Outcome = domain.OutcomeError
		flag.Reason = fmt.Sprintf("evaluation error: %v", err)
		flag.ProcessMs = time.Since(start).Milliseconds()
		return flag
	}

	flag.Value = toValue(out)
	flag.Outcome, flag.Reason = matchBand(flag.Value, rule.Config.Bands)
	flag.ProcessMs = time.Since(start).Milliseconds()

	return flag
}

// toValue converts a CEL value to a number.
func toValue(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// matchBand finds the matching band for a value.
// Bands are evaluated in order: lower inclusive, upper exclusive,
// a nil upper means no bound.
func matchBand(value float64, bands []domain.RuleBand) (string, string) {
	for _, band := range bands {
		lower := 0.0
		if band.LowerLimit != nil {
			lower = *band.LowerLimit
		}
		if value < lower {
			continue
		}
		if band.UpperLimit == nil || value < *band.UpperLimit {
			return band.Outcome, band.Reason
		}
	}

	return domain.OutcomeNone, "no matching band"
}

// RulesCount returns the number of rules loaded for a tenant.
func (e *Engine) RulesCount(tenantID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules[tenantID])
}

// GetLoadedRules returns the rules currently loaded for a tenant, ordered by ID.
func (e *Engine) GetLoadedRules(tenantID string) []*domain.EscalationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.EscalationRule, 0, len(e.compiledRules[tenantID]))
	for _, compiled := range e.compiledRules[tenantID] {
		rules = append(rules, compiled.Config)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.EscalationRule) (*CompiledRule, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	for _, band := range cfg.Bands {
		switch band.Outcome {
		case domain.OutcomeNone, domain.OutcomeReview, domain.OutcomeEDD:
		default:
			return nil, fmt.Errorf("rule %s: unknown band outcome %q", cfg.ID, band.Outcome)
		}
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
