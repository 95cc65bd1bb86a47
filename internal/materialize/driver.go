// Package materialize drives the combined-approach loop: it seeds a
// deductive store with a compiled program, then alternates reasoning with
// firing the deferred restrictions until no new facts appear.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"hornmat/internal/datalog"
	"hornmat/internal/logging"
	"hornmat/internal/ontology"
	"hornmat/internal/program"
	"hornmat/internal/store"
)

// ErrRoundLimit is returned when the loop exceeds Options.MaxRounds.
var ErrRoundLimit = errors.New("materialization round limit exceeded")

// State is the driver's position in the loop.
type State int

const (
	StateIdle State = iota
	StateSeed
	StateReason
	StateFire
	StateConverged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeed:
		return "seed"
	case StateReason:
		return "reason"
	case StateFire:
		return "fire"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a run.
type Options struct {
	// WorkDir receives the per-iteration rule and fact files.
	WorkDir string
	// ABoxDir, if set, holds extra fact files imported after seeding.
	ABoxDir string
	// MaxRounds bounds the number of FIRE rounds; 0 means unlimited.
	MaxRounds    int
	ExportPath   string
	ExportFormat store.Format
	Metrics      *Metrics
	MetricsFile  string
}

// Result summarizes a run.
type Result struct {
	Rounds         int
	Facts          int64
	InitialFacts   int64
	Rules          int
	Witnesses      int
	Conjunctions   int
	Inconsistent   bool
	Files          []string
	SeedDuration   time.Duration
	ReasonDuration time.Duration
	FireDuration   time.Duration
	ExportDuration time.Duration
	Total          time.Duration
}

// Driver owns the program for the duration of a run.
type Driver struct {
	prog  *program.Program
	store store.DataStore
	opts  Options
	state State
	files []string

	reasonTotal time.Duration
	fireTotal   time.Duration
}

// NewDriver prepares a run of prog against ds.
func NewDriver(prog *program.Program, ds store.DataStore, opts Options) *Driver {
	if opts.ExportFormat == "" {
		opts.ExportFormat = store.NTriples
	}
	return &Driver{prog: prog, store: ds, opts: opts}
}

// State returns the current state.
func (d *Driver) State() State { return d.state }

func (d *Driver) enter(s State) {
	logging.MaterializeDebug("State %s -> %s", d.state, s)
	d.state = s
}

// Run executes SEED, REASON and FIRE rounds until the fact count stops
// growing, then optionally exports. Per-iteration files stay on disk.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	timer := logging.StartTimer(logging.CategoryMaterialize, "Run")
	start := time.Now()
	defer func() {
		timer.StopWithInfo()
		if err != nil {
			logging.Get(logging.CategoryMaterialize).Error("Materialization failed in %s: %v", d.state, err)
			d.enter(StateFailed)
		}
		d.writeMetrics()
	}()

	if d.opts.WorkDir == "" {
		d.opts.WorkDir = "."
	}
	if err := os.MkdirAll(d.opts.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	res = &Result{}
	witnessesBefore, conjunctionsBefore := d.prog.Synthetics.Len(), d.prog.Registry.Len()

	d.enter(StateSeed)
	seedStart := time.Now()
	if err := d.seed(ctx); err != nil {
		return nil, err
	}
	res.SeedDuration = time.Since(seedStart)

	d.enter(StateReason)
	count, err := d.reason(ctx)
	if err != nil {
		return nil, err
	}
	res.InitialFacts = count
	logging.Materialize("Seeded store: %d facts, %d rules", count, len(d.prog.Rules))

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.opts.MaxRounds > 0 && res.Rounds >= d.opts.MaxRounds {
			return nil, fmt.Errorf("%w: %d rounds", ErrRoundLimit, d.opts.MaxRounds)
		}
		res.Rounds++
		d.opts.Metrics.round()

		d.enter(StateFire)
		if err := d.fire(ctx, res.Rounds); err != nil {
			return nil, err
		}
		d.enter(StateReason)
		next, err := d.reason(ctx)
		if err != nil {
			return nil, err
		}
		logging.Materialize("Round %d: %d facts (+%d), %d witnesses", res.Rounds, next, next-count, d.prog.Synthetics.Len())
		if next == count {
			break
		}
		count = next
	}
	d.enter(StateConverged)

	res.Facts = count
	res.Rules = len(d.prog.Rules)
	res.Witnesses = d.prog.Synthetics.Len()
	res.Conjunctions = d.prog.Registry.Len()
	res.ReasonDuration = d.reasonTotal
	res.FireDuration = d.fireTotal
	res.Files = append([]string(nil), d.files...)
	d.opts.Metrics.created(res.Witnesses-witnessesBefore, res.Conjunctions-conjunctionsBefore)

	inconsistent, err := d.store.Ask(ctx, datalog.NewQuery(nil, []datalog.Atom{datalog.Unary(datalog.Nothing, datalog.Var("x"))}))
	if err != nil {
		return nil, err
	}
	res.Inconsistent = inconsistent
	if inconsistent {
		logging.MaterializeWarn("Knowledge base is inconsistent: %s is not empty", datalog.Nothing)
	}

	if d.opts.ExportPath != "" {
		exportStart := time.Now()
		if err := d.store.Export(ctx, d.opts.ExportPath, d.opts.ExportFormat); err != nil {
			return nil, err
		}
		res.ExportDuration = time.Since(exportStart)
	}
	res.Total = time.Since(start)
	return res, nil
}

func (d *Driver) seed(ctx context.Context) error {
	paths, err := d.writeIteration(0)
	if err != nil {
		return err
	}
	if err := d.store.ImportFiles(ctx, paths...); err != nil {
		return err
	}
	if d.opts.ABoxDir == "" {
		return nil
	}
	abox, err := listFiles(d.opts.ABoxDir)
	if err != nil {
		return err
	}
	logging.Materialize("Importing %d ABox files from %s", len(abox), d.opts.ABoxDir)
	return d.store.ImportFiles(ctx, abox...)
}

func (d *Driver) reason(ctx context.Context) (int64, error) {
	start := time.Now()
	if err := d.store.Reason(ctx); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	d.reasonTotal += elapsed
	count, err := d.store.CountFacts(ctx)
	if err != nil {
		return 0, err
	}
	d.opts.Metrics.observeReason(elapsed, count)
	return count, nil
}

// writeIteration writes the rules and facts added since the last iteration
// and returns the two paths, rules first.
func (d *Driver) writeIteration(n int) ([]string, error) {
	rules, facts := d.prog.Flush()
	base := filepath.Join(d.opts.WorkDir, fmt.Sprintf("Iteration%d_%s", n, uuid.NewString()))
	rulesPath, factsPath := base+".txt", base+".ttl"

	if err := writeWith(rulesPath, func(f *os.File) error { return datalog.WriteRules(f, rules) }); err != nil {
		return nil, err
	}
	d.files = append(d.files, rulesPath)
	if err := writeWith(factsPath, func(f *os.File) error { return datalog.WriteFacts(f, facts) }); err != nil {
		return nil, err
	}
	d.files = append(d.files, factsPath)
	logging.MaterializeDebug("Iteration %d: wrote %d rules, %d facts", n, len(rules), len(facts))
	return []string{rulesPath, factsPath}, nil
}

func writeWith(path string, fn func(*os.File) error) error {
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

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ABox dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (d *Driver) writeMetrics() {
	if d.opts.Metrics == nil || d.opts.MetricsFile == "" {
		return
	}
	if err := d.opts.Metrics.WriteFile(d.opts.MetricsFile); err != nil {
		logging.MaterializeWarn("Failed to write metrics to %s: %v", d.opts.MetricsFile, err)
	}
}

// =============================================================================
// FIRE
// =============================================================================

var (
	varX = datalog.Var("x")
	varY = datalog.Var("y")
	varZ = datalog.Var("z")
	varT = datalog.Var("t")
)

// fire runs one round over the pending restrictions, then writes and
// imports the round's rules and facts.
func (d *Driver) fire(ctx context.Context, round int) error {
	start := time.Now()
	defer func() { d.fireTotal += time.Since(start) }()

	if err := d.measure(program.Existential, func() error { return d.fireExistentials(ctx) }); err != nil {
		return err
	}
	if err := d.measure(program.Universal, func() error {
		for _, r := range d.prog.Pending(program.Universal) {
			if err := d.fireUniversal(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if err := d.measure(program.AtMostOne, func() error {
		for _, r := range d.prog.Pending(program.AtMostOne) {
			containing := d.prog.Registry.ContainingRole(r.Role)
			if err := d.fireAtMostMerge(ctx, r, containing); err != nil {
				return err
			}
			if err := d.fireAtMostFlip(ctx, r, containing); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	paths, err := d.writeIteration(round)
	if err != nil {
		return err
	}
	return d.store.ImportFiles(ctx, paths...)
}

func (d *Driver) measure(kind program.Deferred, fn func() error) error {
	before := len(d.prog.Rules)
	err := fn()
	d.opts.Metrics.emitted(kind.String(), len(d.prog.Rules)-before)
	return err
}

// fireExistentials applies C ⊑ ≥1 R.D: once C is non-empty, R(x,w) :- C(x)
// for the witness w of {D}. Fired restrictions leave the pending list.
func (d *Driver) fireExistentials(ctx context.Context) error {
	var keep []program.Restriction
	for _, r := range d.prog.Pending(program.Existential) {
		sub := r.SubAtoms(varX)
		fired := len(r.Sub) == 0
		if !fired {
			ok, err := d.store.Ask(ctx, datalog.NewQuery(nil, sub))
			if err != nil {
				return err
			}
			fired = ok
		}
		if !fired {
			keep = append(keep, r)
			continue
		}
		var classes []string
		if !r.FillerIsTop() {
			classes = []string{r.Filler}
		}
		w := d.prog.ObtainWitness(classes)
		d.prog.AddRule(datalog.NewRule(datalog.Binary(r.Role.Predicate(), varX, datalog.Const(w)), sub...))
	}
	d.prog.SetPending(program.Existential, keep)
	return nil
}

// fireUniversal applies C ⊑ ∀R.D to every witness reached from C through a
// conjunction SS containing R that is not yet in D: the witness for its
// conjunction extended by D becomes an SS-successor.
func (d *Driver) fireUniversal(ctx context.Context, r program.Restriction) error {
	if r.FillerIsTop() {
		return nil
	}
	for _, ss := range d.prog.Registry.ContainingRole(r.Role) {
		body := append([]datalog.Atom{
			datalog.Unary(datalog.Synthetic, varY),
			datalog.Binary(ss.Predicate(), varX, varY),
		}, r.SubAtoms(varX)...)
		ys, err := d.store.AnswerUnary(ctx, datalog.NewQuery([]string{"y"}, body, datalog.Unary(r.Filler, varY)))
		if err != nil {
			return err
		}
		for _, y := range ys {
			conj, ok := d.prog.Synthetics.ClassConjunction(y)
			if !ok {
				logging.MaterializeDebug("Skipping unknown synthetic individual %s", y)
				continue
			}
			w := d.prog.ObtainWitness(append(conj, r.Filler))
			ruleBody := append(r.SubAtoms(varX), datalog.Binary(ss.Predicate(), varX, datalog.Const(y)))
			d.prog.AddRule(datalog.NewRule(datalog.Binary(ss.Predicate(), varX, datalog.Const(w)), ruleBody...))
		}
	}
	return nil
}

// fireAtMostMerge applies part (4.2) of C ⊑ ≤1 R.D: two D-witnesses reached
// from the same C through RR and SS are replaced by the witness of their
// combined conjunction, reached through {RR ∪ SS}.
func (d *Driver) fireAtMostMerge(ctx context.Context, r program.Restriction, containing []ontology.Role) error {
	filler := func(t datalog.Term) datalog.Atom { return datalog.Unary(r.Filler, t) }
	for _, rr := range containing {
		for _, ss := range containing {
			body := []datalog.Atom{
				filler(varZ),
				datalog.Unary(datalog.Synthetic, varZ),
				datalog.Binary(rr.Predicate(), varX, varZ),
			}
			body = append(body, r.SubAtoms(varX)...)
			body = append(body,
				datalog.Binary(ss.Predicate(), varX, varT),
				filler(varT),
				datalog.Unary(datalog.Synthetic, varT),
			)
			pairs, err := d.store.AnswerBinary(ctx, datalog.NewQuery([]string{"z", "t"}, body))
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				continue
			}
			rs, err := d.union(rr, ss)
			if err != nil {
				return err
			}
			for _, p := range pairs {
				za, okZ := d.prog.Synthetics.ClassConjunction(p[0])
				tb, okT := d.prog.Synthetics.ClassConjunction(p[1])
				if !okZ || !okT {
					logging.MaterializeDebug("Skipping unknown synthetic pair %s, %s", p[0], p[1])
					continue
				}
				w := d.prog.ObtainWitness(append(za, tb...))
				z, t := datalog.Const(p[0]), datalog.Const(p[1])
				ruleBody := append(r.SubAtoms(varX),
					datalog.Binary(rr.Predicate(), varX, z), filler(z),
					datalog.Binary(ss.Predicate(), varX, t), filler(t),
				)
				d.prog.AddRule(datalog.NewRule(datalog.Binary(rs.Predicate(), varX, datalog.Const(w)), ruleBody...))
			}
		}
	}
	return nil
}

// fireAtMostFlip applies part (4.3) of C ⊑ ≤1 R.D: a D-predecessor y of C
// through RR⁻, when C also reaches a D-witness z through SS, is identified
// with z: y gets conj(z) and the edge {RR⁻ ∪ SS⁻}(y,x).
func (d *Driver) fireAtMostFlip(ctx context.Context, r program.Restriction, containing []ontology.Role) error {
	filler := func(t datalog.Term) datalog.Atom { return datalog.Unary(r.Filler, t) }
	for _, rr := range containing {
		rrInv := d.prog.Registry.InverseOf(rr)
		for _, ss := range containing {
			body := []datalog.Atom{
				datalog.Unary(datalog.Synthetic, varZ),
				filler(varZ),
				datalog.Binary(ss.Predicate(), varX, varZ),
			}
			body = append(body, r.SubAtoms(varX)...)
			body = append(body, datalog.Binary(rrInv.Predicate(), varY, varX), filler(varY))

			zs, err := d.store.AnswerUnary(ctx, datalog.NewQuery([]string{"z"}, body))
			if err != nil {
				return err
			}
			if len(zs) == 0 {
				continue
			}
			flipped, err := d.union(rrInv, d.prog.Registry.InverseOf(ss))
			if err != nil {
				return err
			}
			d.prog.AddRule(datalog.NewRule(datalog.Binary(flipped.Predicate(), varY, varX), body...))

			for _, z := range zs {
				conj, ok := d.prog.Synthetics.ClassConjunction(z)
				if !ok {
					logging.MaterializeDebug("Skipping unknown synthetic individual %s", z)
					continue
				}
				if len(conj) == 0 {
					continue
				}
				zc := datalog.Const(z)
				ruleBody := []datalog.Atom{filler(varY), datalog.Binary(rrInv.Predicate(), varY, varX)}
				ruleBody = append(ruleBody, r.SubAtoms(varX)...)
				ruleBody = append(ruleBody, datalog.Binary(ss.Predicate(), varX, zc), filler(zc))
				heads := make([]datalog.Atom, len(conj))
				for i, c := range conj {
					heads[i] = datalog.Unary(c, varY)
				}
				d.prog.AddRule(datalog.NewMultiRule(heads, ruleBody...))
			}
		}
	}
	return nil
}

// union returns the conjunction naming the union of the role sets named by
// a and b, registering it when new.
func (d *Driver) union(a, b ontology.Role) (ontology.Role, error) {
	sa, ok := d.prog.Registry.RoleSetFor(a)
	if !ok {
		return ontology.Role{}, fmt.Errorf("role conjunction %s is not registered", a)
	}
	sb, ok := d.prog.Registry.RoleSetFor(b)
	if !ok {
		return ontology.Role{}, fmt.Errorf("role conjunction %s is not registered", b)
	}
	return d.prog.ObtainConjunction(sa.Union(sb)), nil
}
