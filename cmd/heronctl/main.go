// Command heronctl scores customers and audit readiness offline from JSON
// files, without a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "heronctl",
		Short:         "Heron - offline AML risk and audit readiness scoring",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(countryCmd())
	rootCmd.AddCommand(tablesCmd())

	return rootCmd
}
