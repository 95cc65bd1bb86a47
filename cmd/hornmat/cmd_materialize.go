package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hornmat/internal/compiler"
	"hornmat/internal/logging"
	"hornmat/internal/mangle"
	"hornmat/internal/materialize"
	"hornmat/internal/ontology"
	"hornmat/internal/program"
)

var (
	workDir      string
	aboxDir      string
	exportPath   string
	exportFormat string
	equality     string
	metricsFile  string
	threads      int
	maxRounds    int
	timeout      time.Duration
)

// materializeCmd runs the FIRE/REASON loop to a fixpoint
var materializeCmd = &cobra.Command{
	Use:   "materialize [ontology]",
	Short: "Materialize an ontology into the deductive store",
	Long: `Loads an OWL 2 functional-syntax ontology (following owl:imports),
compiles it into Datalog and runs FIRE/REASON rounds until the fact count
stops growing.

Every round writes an IterationN_<uuid>.txt rules file and an
IterationN_<uuid>.ttl facts file into the work directory.

Example:
  hornmat materialize univ.ofn --abox-dir data/ --export out.nt`,
	Args: cobra.ExactArgs(1),
	RunE: runMaterialize,
}

func initMaterializeFlags() {
	f := materializeCmd.Flags()
	f.StringVar(&workDir, "work-dir", "", "Directory for per-round rule and fact files")
	f.StringVar(&aboxDir, "abox-dir", "", "Directory of extra N-Triples or rule files imported after seeding")
	f.StringVar(&exportPath, "export", "", "Write the materialized facts to this file")
	f.StringVar(&exportFormat, "export-format", "", "Export format: ntriples or sqlite")
	f.StringVar(&equality, "equality", "", "Equality handling: axiomatize or off")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	f.IntVar(&threads, "threads", 0, "Parallel file parsing workers")
	f.IntVar(&maxRounds, "max-rounds", 0, "Fail after this many FIRE rounds (0 means unbounded)")
	f.DurationVar(&timeout, "timeout", 0, "Abort the run after this duration")
}

// applyMaterializeFlags layers explicitly set flags over the loaded config.
func applyMaterializeFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("work-dir") {
		cfg.Paths.WorkDir = workDir
	}
	if f.Changed("abox-dir") {
		cfg.Paths.ABoxDir = aboxDir
	}
	if f.Changed("export") {
		cfg.Paths.ExportPath = exportPath
	}
	if f.Changed("export-format") {
		cfg.Paths.ExportFormat = exportFormat
	}
	if f.Changed("equality") {
		cfg.Store.Equality = equality
	}
	if f.Changed("metrics-file") {
		cfg.Materialize.MetricsFile = metricsFile
	}
	if f.Changed("threads") {
		cfg.Store.Threads = threads
	}
	if f.Changed("max-rounds") {
		cfg.Materialize.MaxRounds = maxRounds
	}
	return cfg.Validate()
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	if err := applyMaterializeFlags(cmd); err != nil {
		return err
	}

	prog, err := compileOntology(args[0])
	if err != nil {
		return err
	}

	engine, err := mangle.NewEngine(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := materialize.NewDriver(prog, engine, cfg.DriverOptions()).Run(ctx)
	if err != nil {
		return fmt.Errorf("materialization failed: %w", err)
	}
	printResult(cmd.OutOrStdout(), prog, res)
	return nil
}

// compileOntology loads path with its imports and compiles the normalized axioms.
func compileOntology(path string) (*program.Program, error) {
	ont, err := ontology.Load(path)
	if err != nil {
		return nil, err
	}
	kinds := make([]string, 0, len(ont.Ignored))
	for k := range ont.Ignored {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		logging.OntologyDebug("ignored %d %s axioms", ont.Ignored[k], k)
	}
	return compiler.Compile(ontology.Normalize(ont.Axioms))
}

func printResult(w io.Writer, prog *program.Program, res *materialize.Result) {
	if summary := prog.Summary(); summary != "" {
		fmt.Fprintf(w, "Axioms:        %s\n", summary)
	}
	fmt.Fprintf(w, "Rounds:        %d\n", res.Rounds)
	fmt.Fprintf(w, "Facts:         %d (seeded %d)\n", res.Facts, res.InitialFacts)
	fmt.Fprintf(w, "Rules:         %d\n", res.Rules)
	fmt.Fprintf(w, "Witnesses:     %d\n", res.Witnesses)
	fmt.Fprintf(w, "Conjunctions:  %d\n", res.Conjunctions)
	fmt.Fprintf(w, "Files:         %d\n", len(res.Files))
	fmt.Fprintf(w, "Time:          %s (seed %s, reason %s, fire %s, export %s)\n",
		res.Total.Round(time.Millisecond),
		res.SeedDuration.Round(time.Millisecond),
		res.ReasonDuration.Round(time.Millisecond),
		res.FireDuration.Round(time.Millisecond),
		res.ExportDuration.Round(time.Millisecond))
	if res.Inconsistent {
		fmt.Fprintln(w, "WARNING: the ontology is inconsistent (owl:Nothing is non-empty)")
	}
}
