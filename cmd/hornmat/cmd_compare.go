package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hornmat/internal/compare"
)

var compareAll bool

// compareCmd checks that one materialization is contained in another
var compareCmd = &cobra.Command{
	Use:   "compare [a] [b]",
	Short: "Report facts of A missing from B",
	Long: `Compares two exported materializations, N-Triples or SQLite, and lists
the facts of A that B lacks. Only class assertions are compared unless --all
is given. Exits non-zero when anything is missing.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func initCompareFlags() {
	compareCmd.Flags().BoolVar(&compareAll, "all", false, "Compare role assertions too")
}

func runCompare(cmd *cobra.Command, args []string) error {
	report, err := compare.CompareFiles(cmd.Context(), args[0], args[1], compare.Options{AllFacts: compareAll})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d facts, %s: %d facts\n", args[0], report.TotalA, args[1], report.TotalB)
	for _, f := range report.Missing {
		fmt.Fprintf(out, "missing %s\n", f)
	}
	if !report.Contained() {
		return fmt.Errorf("%d facts of %s are missing from %s", len(report.Missing), args[0], args[1])
	}
	fmt.Fprintln(out, "OK")
	return nil
}
