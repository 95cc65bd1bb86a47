package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hornmat/internal/compiler"
	"hornmat/internal/datalog"
	"hornmat/internal/ontology"
	"hornmat/internal/program"
)

var (
	compileOut string
	trimOut    string
)

// compileCmd writes the seed program without reasoning
var compileCmd = &cobra.Command{
	Use:   "compile [ontology]",
	Short: "Compile an ontology into Datalog rules and N-Triples facts",
	Long: `Writes rules.txt and facts.ttl, the program a materialization run is
seeded with. Deferred restrictions are listed but not fired.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

// trimCmd keeps the Horn-ALCHOIQ fragment of an ontology
var trimCmd = &cobra.Command{
	Use:   "trim [ontology]",
	Short: "Drop axioms outside Horn-ALCHOIQ",
	Long: `Checks every axiom on its own and writes those that compile back out
in functional syntax. Removed axioms are reported on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrim,
}

func initCompileFlags() {
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", ".", "Output directory")
	trimCmd.Flags().StringVarP(&trimOut, "out", "o", "", "Output file (stdout when empty)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	prog, err := compileOntology(args[0])
	if err != nil {
		return err
	}
	if err := os.MkdirAll(compileOut, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", compileOut, err)
	}

	rules, facts := prog.Flush()
	rulesPath := filepath.Join(compileOut, "rules.txt")
	factsPath := filepath.Join(compileOut, "facts.ttl")
	if err := writeFile(rulesPath, func(w io.Writer) error { return datalog.WriteRules(w, rules) }); err != nil {
		return err
	}
	if err := writeFile(factsPath, func(w io.Writer) error { return datalog.WriteFacts(w, facts) }); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d rules to %s\n", len(rules), rulesPath)
	fmt.Fprintf(out, "Wrote %d facts to %s\n", len(facts), factsPath)
	for _, kind := range []program.Deferred{program.Existential, program.Universal, program.AtMostOne} {
		fmt.Fprintf(out, "Deferred %s: %d\n", kind, len(prog.Pending(kind)))
	}
	if s := prog.Summary(); s != "" {
		fmt.Fprintf(out, "Axioms: %s\n", s)
	}
	return nil
}

func runTrim(cmd *cobra.Command, args []string) error {
	ont, err := ontology.Load(args[0])
	if err != nil {
		return err
	}
	kept, removed := compiler.Trim(ont.Axioms)
	for _, r := range removed {
		fmt.Fprintf(cmd.ErrOrStderr(), "removed %s: %v\n", r.Axiom, r.Reason)
	}

	trimmed := &ontology.Ontology{IRI: ont.IRI, Axioms: kept}
	if trimOut == "" {
		return ontology.Write(cmd.OutOrStdout(), trimmed)
	}
	if err := writeFile(trimOut, func(w io.Writer) error { return ontology.Write(w, trimmed) }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Kept %d axioms, removed %d, wrote %s\n", len(kept), len(removed), trimOut)
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
