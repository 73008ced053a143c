// Package defuse implements the def-use simplification pass: for one
// parser, control, action, function, or table at a time, it finds
// which writes are used by a later read (FindUses) and deletes the
// ones that are not (RemoveUnused), while warning about reads that may
// observe uninitialized storage.
package defuse

import (
	"fmt"

	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/config"
	"github.com/saruga/netir-defuse/internal/defs"
	"github.com/saruga/netir-defuse/internal/diagnostic"
	"github.com/saruga/netir-defuse/internal/refmap"
	"github.com/saruga/netir-defuse/internal/typemap"
	"go.uber.org/zap"
)

// Process runs the full def-use pass over unit, which must be a
// *ast.ParserDecl, *ast.ControlDecl, *ast.ActionDecl, *ast.FunctionDecl,
// or *ast.TableDecl whose Definitions were already computed into
// allDefs by defs.Builder. It returns unit rewritten in place with
// dead assignments removed, the diagnostics collected along the way,
// and a non-nil error only when an internal invariant was violated
// (a *BugError, or a panic from a collaborator such as typemap's
// failIfMissing path) — never for anything a user-facing diagnostic
// already covers. Callers that have no specific configuration should
// pass config.DefaultOptions(), not the zero value: Options' zero
// value turns off the push_front/pop_front warning suppression and
// downgrades ERR_INSUFFICIENT to a warning, which is not this pass's
// default behavior. For an *ast.ActionDecl unit, its Out/InOut
// parameters are checked against the Definitions after its body.
func Process(unit ast.Node, allDefs *defs.AllDefinitions, refMap *refmap.ReferenceMap, typeMap *typemap.TypeMap, log *zap.Logger, opts config.Options) (result ast.Node, diags *diagnostic.DiagnosticList, err error) {
	diags = diagnostic.NewDiagnosticList()
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(*BugError); ok {
				err = be
				return
			}
			err = fmt.Errorf("internal/defuse: %v", r)
		}
	}()

	f := newFindUses(allDefs, refMap, typeMap, diags, log, opts)
	switch n := unit.(type) {
	case *ast.ParserDecl:
		f.VisitParser(n)
	case *ast.ControlDecl:
		f.VisitControl(n)
	case *ast.ActionDecl:
		f.VisitAction(n)
		f.checkOutParameters(n.Name.Name, n.Parameters, f.allDefs.Get(f.currentPoint, true))
	case *ast.FunctionDecl:
		f.VisitFunction(n)
	case *ast.TableDecl:
		f.VisitTable(n)
	default:
		bugCheckNode(false, unit, "Process: unsupported unit kind %T", unit)
	}

	result = RemoveUnused(unit, f.hasUses)
	return result, diags, nil
}
