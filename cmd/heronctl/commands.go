package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/risktables"
	"github.com/opensource-finance/heron/internal/scoring"
)

func riskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk [customer.json]",
		Short: "Score a customer profile (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var customer domain.CustomerData
			if err := readJSON(cmd, args[0], &customer); err != nil {
				return err
			}

			weights := domain.DefaultRiskWeights()
			if path, _ := cmd.Flags().GetString("weights"); path != "" {
				if err := readJSON(cmd, path, &weights); err != nil {
					return err
				}
			}

			overrideFlags, _ := cmd.Flags().GetStringSlice("override")
			overrides, err := parseOverrides(overrideFlags)
			if err != nil {
				return err
			}

			result := scoring.CalculateCustomerRisk(customer, weights, overrides)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			display := risktables.RiskDisplay(result.RiskLevel)
			fmt.Fprintf(out, "Overall:  %d (%s, %s)\n\n", result.OverallScore, result.RiskLevel, display.Label)
			fmt.Fprintf(out, "  %-16s %6s %6s %9s\n", "FACTOR", "SCORE", "WEIGHT", "WEIGHTED")
			for _, c := range result.Breakdown {
				fmt.Fprintf(out, "  %-16s %6d %6.1f %9.2f\n", c.Factor, c.Score, c.Weight, c.Weighted)
			}
			return nil
		},
	}

	cmd.Flags().String("weights", "", "JSON file with factor weights")
	cmd.Flags().StringSliceP("override", "o", nil, "Country score override, e.g. IR=70")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [input.json]",
		Short: "Score organization audit readiness (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in domain.AuditInput
			if err := readJSON(cmd, args[0], &in); err != nil {
				return err
			}

			now := time.Now
			if asOf, _ := cmd.Flags().GetString("as-of"); asOf != "" {
				t, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of date %q: %w", asOf, err)
				}
				now = func() time.Time { return t }
			}

			result := scoring.NewAuditScorer(scoring.WithClock(now)).Calculate(in)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:  %d (%s)\n\n", result.Total, result.Label)

			names := []string{
				domain.CategoryDocuments,
				domain.CategoryProfile,
				domain.CategoryCustomers,
				domain.CategoryActions,
				domain.CategoryTraining,
			}
			for i, c := range result.Categories.All() {
				fmt.Fprintf(out, "  %-10s %4d  x%.2f = %6.2f\n", names[i], c.Score, c.Weight, c.Weighted)
				for _, d := range c.Details {
					fmt.Fprintf(out, "      - %s\n", d)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("as-of", "", "Reference date for review deadlines (YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func countryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "country [code...]",
		Short: "Look up country risk scores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				code := risktables.NormalizeCountry(arg)
				score := risktables.CountryRisk(code, nil)
				fmt.Fprintf(out, "%-4s %3d  %-10s %s\n",
					code, score, risktables.CountryListOf(code, nil), risktables.Category(score))
			}
			return nil
		},
	}
}

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "tables [industries|products]",
		Short:     "Print a reference table",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"industries", "products"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := risktables.Industries()
			if args[0] == "products" {
				entries = risktables.Products()
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%3d  %-9s %s\n", e.Score, e.Category, e.Label)
			}
			return nil
		},
	}
}

// parseOverrides parses CODE=SCORE pairs.
func parseOverrides(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q, want CODE=SCORE", pair)
		}
		score, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid override score in %q: %w", pair, err)
		}
		out[risktables.NormalizeCountry(code)] = score
	}
	return out, nil
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
