package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

const highRiskJSON = `{
	"nationality": "IR",
	"industry": "Krypto / Blockchain / DLT",
	"pep_status": true,
	"products": ["Crypto Trading"],
	"tx_volume": "sehr hoch",
	"source_of_funds": "bar"
}`

func TestRiskCommand(t *testing.T) {
	t.Run("Table", func(t *testing.T) {
		out, err := run(t, highRiskJSON, "risk", "-")
		if err != nil {
			t.Fatalf("risk failed: %v", err)
		}
		if !strings.Contains(out, "Overall:  85 (high, Hoch)") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if !strings.Contains(out, "source_of_funds") {
			t.Errorf("expected breakdown rows:\n%s", out)
		}
	})

	t.Run("JSONWithOverride", func(t *testing.T) {
		out, err := run(t, `{"nationality":"IR"}`, "risk", "-", "--json", "-o", "ir=10")
		if err != nil {
			t.Fatalf("risk failed: %v", err)
		}

		var result domain.RiskResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if result.Factors.Country != 10 {
			t.Errorf("expected overridden country 10, got %d", result.Factors.Country)
		}
	})

	t.Run("WeightsFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weights.json")
		if err := os.WriteFile(path, []byte(`{"pep": 1}`), 0o600); err != nil {
			t.Fatal(err)
		}

		out, err := run(t, highRiskJSON, "risk", "-", "--weights", path, "--json")
		if err != nil {
			t.Fatalf("risk failed: %v", err)
		}
		var result domain.RiskResult
		json.Unmarshal([]byte(out), &result)
		if result.OverallScore != 90 {
			t.Errorf("expected PEP-only score 90, got %d", result.OverallScore)
		}
	})

	t.Run("BadOverride", func(t *testing.T) {
		if _, err := run(t, highRiskJSON, "risk", "-", "-o", "IR"); err == nil {
			t.Error("expected error for malformed override")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := run(t, "", "risk", filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestAuditCommand(t *testing.T) {
	in := `{"customers":[{"status":"active","next_review":"2026-05-01T00:00:00Z","has_kyc_doc":true}]}`

	before, err := run(t, in, "audit", "-", "--as-of", "2026-04-01", "--json")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	after, err := run(t, in, "audit", "-", "--as-of", "2026-06-01", "--json")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	var b, a domain.AuditScoreResult
	json.Unmarshal([]byte(before), &b)
	json.Unmarshal([]byte(after), &a)

	if b.Categories.Customers.Score <= a.Categories.Customers.Score {
		t.Errorf("expected overdue review to lower the customer score: %d vs %d",
			b.Categories.Customers.Score, a.Categories.Customers.Score)
	}

	if _, err := run(t, in, "audit", "-", "--as-of", "June"); err == nil {
		t.Error("expected error for invalid --as-of")
	}
}

func TestCountryCommand(t *testing.T) {
	out, err := run(t, "", "country", "ir", "CH")
	if err != nil {
		t.Fatalf("country failed: %v", err)
	}
	if !strings.Contains(out, "IR    90") || !strings.Contains(out, "CH    10") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTablesCommand(t *testing.T) {
	out, err := run(t, "", "tables", "products")
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	if !strings.Contains(out, "Crypto Trading") {
		t.Errorf("expected product table:\n%s", out)
	}

	if _, err := run(t, "", "tables", "countries"); err == nil {
		t.Error("expected error for unknown table")
	}
}
