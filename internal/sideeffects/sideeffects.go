// Package sideeffects walks an expression tree looking for the calls
// that have an externally observable effect — as opposed to a purity
// analysis, which looks for expressions that provably don't.
package sideeffects

import "github.com/saruga/netir-defuse/internal/ast"

// alwaysPureBuiltins never have a side effect regardless of receiver.
var alwaysPureBuiltins = map[string]bool{
	"isValid": true,
}

// Analysis is the result of walking one expression: the call nodes it
// contains that have a side effect, and their count.
type Analysis struct {
	nodes []ast.Node
}

// NodeWithSideEffect returns the i'th side-effecting node found, or
// nil if i is out of range. RemoveUnused uses this to recover the
// single surviving call when an assignment's RHS has exactly one.
func (a *Analysis) NodeWithSideEffect(i int) ast.Node {
	if i < 0 || i >= len(a.nodes) {
		return nil
	}
	return a.nodes[i]
}

// SideEffectCount returns how many side-effecting nodes were found.
func (a *Analysis) SideEffectCount() int {
	if a == nil {
		return 0
	}
	return len(a.nodes)
}

// Analyze walks expr and everything reachable from it, returning the
// set of side-effecting call nodes found.
func Analyze(expr ast.Expr) *Analysis {
	a := &Analysis{}
	a.walk(expr)
	return a
}

func (a *Analysis) walk(expr ast.Expr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.CallExpr:
		if HasSideEffect(e) {
			a.nodes = append(a.nodes, e)
		}
		a.walk(e.Method)
		for _, arg := range e.Args {
			a.walk(arg)
		}
	case *ast.MemberExpr:
		a.walk(e.Expr)
	case *ast.ArrayIndexExpr:
		a.walk(e.Left)
		a.walk(e.Right)
	case *ast.SliceExpr:
		a.walk(e.E0)
	case *ast.MuxExpr:
		a.walk(e.Condition)
		a.walk(e.TrueExpr)
		a.walk(e.FalseExpr)
	case *ast.UnaryExpr:
		a.walk(e.Operand)
	case *ast.BinaryExpr:
		a.walk(e.Left)
		a.walk(e.Right)
	case *ast.PathExpression, *ast.LiteralExpr, *ast.TypeNameExpression:
		// leaves, nothing to walk
	}
}

// HasSideEffect reports whether a single call expression has a side
// effect. isValid is the only call treated as pure; every other call
// (actions, table and control applies, functions, extern methods, the
// other built-ins, and callees this package cannot name) counts as
// side-effecting.
func HasSideEffect(call *ast.CallExpr) bool {
	name, _ := methodName(call.Method)
	if alwaysPureBuiltins[name] {
		return false
	}
	return true
}

func methodName(callee ast.Expr) (string, ast.Expr) {
	switch e := callee.(type) {
	case *ast.MemberExpr:
		return e.Member, e.Expr
	case *ast.PathExpression:
		return e.Path.Name, nil
	default:
		return "", nil
	}
}
