package defuse

import (
	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/sideeffects"
)

// RemoveUnused rewrites unit bottom-up, deleting every assignment
// hasUses does not mark as live. An unused assignment whose
// right-hand side has no side-effecting call disappears entirely
// (becomes an EmptyStmt); one with exactly one side-effecting call is
// rewritten to a bare call statement, so the call still happens even
// though its result is discarded. More than one side-effecting call
// on an unused assignment's RHS is a bug: this IR's grammar admits at
// most one apply/action call per statement.
func RemoveUnused(unit ast.Node, hasUses *HasUses) ast.Node {
	switch u := unit.(type) {
	case *ast.ParserDecl:
		for _, s := range u.States {
			s.Components = removeUnusedStmts(s.Components, hasUses)
		}
	case *ast.ControlDecl:
		u.Body = removeUnusedStmt(u.Body, hasUses).(*ast.BlockStmt)
	case *ast.ActionDecl:
		u.Body = removeUnusedStmt(u.Body, hasUses).(*ast.BlockStmt)
	case *ast.FunctionDecl:
		u.Body = removeUnusedStmt(u.Body, hasUses).(*ast.BlockStmt)
	case *ast.TableDecl:
		// A table has no statement body of its own to rewrite; its
		// key expressions and action list are never dead code.
	default:
		bugCheckNode(false, unit, "RemoveUnused: unsupported unit kind %T", unit)
	}
	return unit
}

func removeUnusedStmts(stmts []ast.Stmt, hasUses *HasUses) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = removeUnusedStmt(s, hasUses)
	}
	return out
}

func removeUnusedStmt(s ast.Stmt, hasUses *HasUses) ast.Stmt {
	switch n := s.(type) {
	case *ast.BlockStmt:
		n.Components = removeUnusedStmts(n.Components, hasUses)
		return n

	case *ast.IfStmt:
		n.Then = removeUnusedStmt(n.Then, hasUses)
		if n.Else != nil {
			n.Else = removeUnusedStmt(n.Else, hasUses)
		}
		return n

	case *ast.SwitchStmt:
		for _, c := range n.Cases {
			if c.Body != nil {
				c.Body = removeUnusedStmt(c.Body, hasUses)
			}
		}
		return n

	case *ast.AssignStmt:
		return rewriteAssign(n, hasUses)

	case *ast.CallStmt:
		return rewriteCallStmt(n, hasUses)

	default:
		// ReturnStmt, ExitStmt, EmptyStmt: never rewritten, since they
		// write nothing hasUses tracks and carry no side effect of
		// their own to preserve.
		return s
	}
}

// rewriteCallStmt implements spec.md §4.3's MethodCallStatement case:
// a statement-level call survives if hasUses marks it live (an Out/InOut
// argument it writes is read later) or if the call itself has a side
// effect; otherwise it carries no observable outcome and is deleted.
func rewriteCallStmt(n *ast.CallStmt, hasUses *HasUses) ast.Stmt {
	if hasUses.Contains(n) {
		return n
	}
	if sideeffects.HasSideEffect(n.Call) {
		return n
	}
	return &ast.EmptyStmt{}
}

func rewriteAssign(n *ast.AssignStmt, hasUses *HasUses) ast.Stmt {
	if hasUses.Contains(n) {
		return n
	}

	se := sideeffects.Analyze(n.Right)
	switch se.SideEffectCount() {
	case 0:
		return &ast.EmptyStmt{}
	case 1:
		call, ok := se.NodeWithSideEffect(0).(*ast.CallExpr)
		bugCheckNode(ok, n, "RemoveUnused: side-effecting node is not a call expression")
		return &ast.CallStmt{Call: call}
	default:
		bugCheckNode(false, n, "RemoveUnused: unused assignment's RHS has %d side-effecting calls", se.SideEffectCount())
		return n
	}
}
