//go:build integration
// +build integration

// Package integration provides end-to-end tests against a running Heron server.
//
// These tests cover the scoring pipeline as seen over HTTP:
//
//	Customer profile → six factor scores → weighted overall → escalation flags
//	Organization aggregates → five category scores → weighted total → label
//
// Start the server with the built-in escalation rules seeded for the test
// tenant, then run the tests:
//
//	HERON_TENANTS=test-tenant go run ./cmd/heron
//	go test -tags=integration -v ./tests/integration/...
//
// The seeded rules are:
//
// | Rule ID           | Expression  | Outcome                              |
// |-------------------|-------------|--------------------------------------|
// | high-risk-country | country     | >= 51 review, >= 76 edd              |
// | overall-band      | overall     | >= 51 review, >= 76 edd              |
// | pep-edd           | pep >= 90   | true → edd                           |
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("HERON_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: "test-tenant",
	}
}

// Flag is one escalation rule outcome.
type Flag struct {
	RuleID  string `json:"ruleId"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// AssessmentResponse mirrors POST/GET /customers/{id}/risk.
type AssessmentResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Result     struct {
		OverallScore int    `json:"overallScore"`
		RiskLevel    string `json:"riskLevel"`
		Factors      map[string]int
	} `json:"result"`
	Flags       []Flag   `json:"flags"`
	RequiresEDD bool     `json:"requiresEdd"`
	Reasons     []string `json:"reasons"`
	Metadata    struct {
		TraceID       string `json:"traceId"`
		EngineVersion string `json:"engineVersion"`
	} `json:"metadata"`
}

// AuditResponse mirrors the audit score result.
type AuditResponse struct {
	Total int    `json:"total"`
	Label string `json:"label"`
	Color string `json:"color"`
}

func call(t *testing.T, config TestConfig, method, path string, body any, withTenant bool) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withTenant {
		req.Header.Set("X-Tenant-ID", config.TenantID)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, respBody
}

func mustDecode(t *testing.T, status int, body []byte, v any) {
	t.Helper()

	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(body))
	}
}

func uniqueCustomer(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestHighRiskCustomer_EDD(t *testing.T) {
	config := getTestConfig()
	customerID := uniqueCustomer("cust-high")

	customer := map[string]any{
		"nationality":     "IR",
		"industry":        "Krypto / Blockchain / DLT",
		"pep_status":      true,
		"products":        []string{"Crypto Trading"},
		"tx_volume":       "sehr hoch",
		"source_of_funds": "bar",
	}

	var result AssessmentResponse
	status, body := call(t, config, http.MethodPost, "/customers/"+customerID+"/risk", customer, true)
	mustDecode(t, status, body, &result)

	if result.Result.OverallScore != 85 {
		t.Errorf("Expected overall 85, got %d", result.Result.OverallScore)
	}
	if result.Result.RiskLevel != "high" {
		t.Errorf("Expected level high, got %s", result.Result.RiskLevel)
	}
	if !result.RequiresEDD {
		t.Error("Expected enhanced due diligence")
	}
	if len(result.Flags) != 3 {
		t.Errorf("Expected 3 seeded rule flags, got %+v", result.Flags)
	}
	if result.Metadata.EngineVersion == "" {
		t.Error("Expected engine version in metadata")
	}

	var latest AssessmentResponse
	status, body = call(t, config, http.MethodGet, "/customers/"+customerID+"/risk", nil, true)
	mustDecode(t, status, body, &latest)
	if latest.ID != result.ID {
		t.Errorf("Expected latest assessment %s, got %s", result.ID, latest.ID)
	}

	t.Logf("✓ High-risk customer: overall=%d level=%s flags=%d", result.Result.OverallScore, result.Result.RiskLevel, len(result.Flags))
}

func TestLowRiskCustomer_NoEscalation(t *testing.T) {
	config := getTestConfig()

	customer := map[string]any{
		"nationality":     "CH",
		"industry":        "IT / Software",
		"pep_status":      "nein",
		"products":        "Sparkonto",
		"tx_volume":       "gering",
		"source_of_funds": "Lohn",
	}

	var result AssessmentResponse
	status, body := call(t, config, http.MethodPost, "/customers/"+uniqueCustomer("cust-low")+"/risk", customer, true)
	mustDecode(t, status, body, &result)

	if result.Result.RiskLevel != "low" {
		t.Errorf("Expected level low, got %s (%d)", result.Result.RiskLevel, result.Result.OverallScore)
	}
	if result.RequiresEDD || len(result.Reasons) > 0 {
		t.Errorf("Expected no escalation, got reasons %v", result.Reasons)
	}
}

func TestStatelessRiskCalculation(t *testing.T) {
	config := getTestConfig()

	var result struct {
		OverallScore int `json:"overallScore"`
	}
	status, body := call(t, config, http.MethodPost, "/risk/calculate", map[string]any{
		"customer": map[string]any{"nationality": "DE"},
		"weights":  map[string]float64{"country": 1},
	}, false)
	mustDecode(t, status, body, &result)

	if result.OverallScore != 30 {
		t.Errorf("Expected unlisted-country score 30, got %d", result.OverallScore)
	}
}

func TestAuditReadiness(t *testing.T) {
	config := getTestConfig()

	t.Run("EmptyOrganization", func(t *testing.T) {
		// documents 0, profile 0, customers 25, actions 15, training 2.25
		var result AuditResponse
		status, body := call(t, config, http.MethodPost, "/audit/calculate", map[string]any{}, false)
		mustDecode(t, status, body, &result)

		if result.Total != 42 || result.Label != "Kritisch" {
			t.Errorf("Expected 42 and Kritisch, got %d %s", result.Total, result.Label)
		}
	})

	t.Run("EmptyOrganizationStored", func(t *testing.T) {
		var snap struct {
			ID     string        `json:"id"`
			Result AuditResponse `json:"result"`
		}
		status, body := call(t, config, http.MethodPost, "/audit/score", map[string]any{
			"openActionCount":    15,
			"overdueActionCount": 5,
			"lastDocUpdateDays":  365,
		}, true)
		mustDecode(t, status, body, &snap)

		if snap.Result.Label != "Kritisch" || snap.Result.Color != "#dc2626" {
			t.Errorf("Expected Kritisch/#dc2626, got %s/%s", snap.Result.Label, snap.Result.Color)
		}
	})
}

func TestMissingTenantHeader_Error(t *testing.T) {
	config := getTestConfig()

	status, _ := call(t, config, http.MethodPost, "/customers/c-1/risk", map[string]any{}, false)
	if status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", status)
	}
}
