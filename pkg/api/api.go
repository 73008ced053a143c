// Package api provides the public entry point for running the def-use
// simplification pass over a whole program.
//
// This package is intended for programmatic use. For CLI usage, see
// cmd/netdefuse.
package api

import (
	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/config"
	"github.com/saruga/netir-defuse/internal/defs"
	"github.com/saruga/netir-defuse/internal/defuse"
	"github.com/saruga/netir-defuse/internal/diagnostic"
	"github.com/saruga/netir-defuse/internal/refmap"
	"github.com/saruga/netir-defuse/internal/storage"
	"github.com/saruga/netir-defuse/internal/typemap"
	"go.uber.org/zap"
)

// Options controls the pass's behavior.
type Options struct {
	// SuppressStackShiftWarnings preserves spec.md §9's open-question
	// behavior: push_front/pop_front reads of a stack's storage do not
	// trigger an uninitialized-use warning. DefaultOptions sets it to
	// true; the zero value of Options leaves it false.
	SuppressStackShiftWarnings bool

	// MissingReturnIsError controls whether ERR_INSUFFICIENT is
	// reported as an error (default) or downgraded to a warning.
	MissingReturnIsError bool

	// Logger receives structured tracing of entry into each analyzed
	// unit when non-nil. Nil disables tracing, matching
	// spec.md §5 ("no logging is required for correctness").
	Logger *zap.Logger
}

// DefaultOptions returns the pass's default behavior: push_front/pop_front
// warnings suppressed (spec.md §9's open question preserved as-is),
// ERR_INSUFFICIENT reported as an error, no tracing.
func DefaultOptions() Options {
	d := config.DefaultOptions()
	return Options{
		SuppressStackShiftWarnings: d.SuppressStackShiftWarnings,
		MissingReturnIsError:       d.MissingReturnIsError,
	}
}

func (o Options) toConfig() config.Options {
	return config.Options{
		SuppressStackShiftWarnings: o.SuppressStackShiftWarnings,
		MissingReturnIsError:       o.MissingReturnIsError,
	}
}

// Stats summarizes what the pass did, mirroring how the teacher's
// minifier.Stats reports dead-symbol counts alongside size deltas.
type Stats struct {
	// StatementsRemoved counts assignments and calls that were deleted
	// entirely (as opposed to rewritten into a bare call statement
	// that preserves a side effect).
	StatementsRemoved int

	// UnitsAnalyzed counts the parsers, controls, top-level actions,
	// and top-level functions the pass ran over.
	UnitsAnalyzed int
}

// Result is the outcome of running Simplify over a *ast.Program.
type Result struct {
	// Program is prog, rewritten in place.
	Program *ast.Program

	// Diagnostics are every warning/error the pass emitted, across
	// every unit analyzed, in analysis order.
	Diagnostics *diagnostic.DiagnosticList

	// Stats summarizes the rewrite.
	Stats Stats

	// Errs is non-nil only when an internal invariant was violated in
	// one of the units analyzed (see defuse.BugError); it maps each
	// failing unit's name to its error so callers can tell which one
	// failed. Partial results for the other units are
	// still valid.
	Errs map[string]error
}

// Simplify runs the def-use simplification pass over every parser,
// control, top-level action, and top-level function in prog,
// aggregating diagnostics and
// stats. It builds the StorageMap, ReferenceMap, TypeMap, and
// AllDefinitions collaborators internally (spec.md §6 treats these as
// externally supplied; this package is the concrete driver that
// supplies them for a standalone, runnable module).
func Simplify(prog *ast.Program, opts Options) Result {
	storageMap := storage.BuildStorageMap(prog)
	refMap := refmap.BuildReferenceMap(prog)
	typeMap := typemap.Infer(prog, storageMap)

	cfg := opts.toConfig()
	result := Result{
		Program:     prog,
		Diagnostics: diagnostic.NewDiagnosticList(),
		Errs:        map[string]error{},
	}

	run := func(name string, unit ast.Node, compute func(b *defs.Builder) *defs.Definitions) {
		builder := defs.NewBuilder(storageMap, opts.Logger)
		compute(builder)
		allDefs := builder.Definitions()

		rewritten, diags, err := defuse.Process(unit, allDefs, refMap, typeMap, opts.Logger, cfg)
		result.Stats.UnitsAnalyzed++
		if err != nil {
			result.Errs[name] = err
			return
		}
		for _, d := range diags.Items() {
			result.Diagnostics.Add(d)
		}
		result.Stats.StatementsRemoved += countEmptyStmts(rewritten)
	}

	for _, p := range prog.Parsers {
		p := p
		run(p.Name.Name, p, func(b *defs.Builder) *defs.Definitions { return b.ComputeParser(p) })
	}
	for _, c := range prog.Controls {
		c := c
		run(c.Name.Name, c, func(b *defs.Builder) *defs.Definitions { return b.ComputeControl(c) })
	}
	for _, a := range prog.Actions {
		a := a
		run(a.Name.Name, a, func(b *defs.Builder) *defs.Definitions { return b.ComputeAction(a) })
	}
	for _, fn := range prog.Functions {
		fn := fn
		run(fn.Name.Name, fn, func(b *defs.Builder) *defs.Definitions { return b.ComputeFunction(fn) })
	}

	if len(result.Errs) == 0 {
		result.Errs = nil
	}
	return result
}

// countEmptyStmts walks unit's statement tree, counting the EmptyStmt
// nodes RemoveUnused substituted for fully-dead assignments/calls.
func countEmptyStmts(unit ast.Node) int {
	switch u := unit.(type) {
	case *ast.ParserDecl:
		n := 0
		for _, s := range u.States {
			for _, c := range s.Components {
				n += countEmptyInStmt(c)
			}
		}
		return n
	case *ast.ControlDecl:
		return countEmptyInStmt(u.Body)
	case *ast.ActionDecl:
		return countEmptyInStmt(u.Body)
	case *ast.FunctionDecl:
		return countEmptyInStmt(u.Body)
	default:
		return 0
	}
}

func countEmptyInStmt(s ast.Stmt) int {
	switch n := s.(type) {
	case *ast.EmptyStmt:
		return 1
	case *ast.BlockStmt:
		total := 0
		for _, c := range n.Components {
			total += countEmptyInStmt(c)
		}
		return total
	case *ast.IfStmt:
		total := countEmptyInStmt(n.Then)
		if n.Else != nil {
			total += countEmptyInStmt(n.Else)
		}
		return total
	case *ast.SwitchStmt:
		total := 0
		for _, c := range n.Cases {
			if c.Body != nil {
				total += countEmptyInStmt(c.Body)
			}
		}
		return total
	default:
		return 0
	}
}
