package main

import (
	"fmt"

	"github.com/saruga/netir-defuse/internal/ast"
)

// The four sample programs below are built directly as *ast.Program
// values rather than parsed from source text — this module's Non-goals
// exclude a surface grammar and pretty-printer, so a hand-built IR is
// the only way to drive the pass end-to-end from the CLI. Each mirrors
// one of the end-to-end scenarios the pass is expected to handle.

func bitType(width int) *ast.BaseType {
	return &ast.BaseType{Name: fmt.Sprintf("bit<%d>", width), Width: width}
}

// sampleDeadWrite builds "a = 1; a = 2; emit(a);" in a control body:
// the first assignment to `a` is dead, since the second overwrites it
// before anything reads it.
func sampleDeadWrite() *ast.Program {
	aRef := ast.Ref{Name: "a"}

	emit := &ast.ActionDecl{
		Name: ast.Ref{Name: "emit"},
		Parameters: &ast.ParameterList{Parameters: []*ast.Parameter{
			{Name: ast.Ref{Name: "x"}, Type: bitType(32), Direction: ast.DirIn},
		}},
		Body: &ast.BlockStmt{},
	}

	ctrl := &ast.ControlDecl{
		Name:   ast.Ref{Name: "DeadWriteDemo"},
		Locals: []ast.Declaration{&ast.VarDecl{Name: aRef, Typ: bitType(32)}},
		Body: &ast.BlockStmt{Components: []ast.Stmt{
			&ast.AssignStmt{Left: &ast.PathExpression{Path: aRef}, Right: &ast.LiteralExpr{Value: "1"}},
			&ast.AssignStmt{Left: &ast.PathExpression{Path: aRef}, Right: &ast.LiteralExpr{Value: "2"}},
			&ast.CallStmt{Call: &ast.CallExpr{
				Method: &ast.PathExpression{Path: emit.Name},
				Args:   []ast.Expr{&ast.PathExpression{Path: aRef}},
			}},
		}},
	}

	return &ast.Program{Controls: []*ast.ControlDecl{ctrl}, Actions: []*ast.ActionDecl{emit}}
}

// sampleSideEffectingDeadAssign builds "x = f();" with x otherwise
// unused and f a side-effecting top-level function: the assignment is
// rewritten to a bare call so f still runs.
func sampleSideEffectingDeadAssign() *ast.Program {
	xRef := ast.Ref{Name: "x"}
	fRef := ast.Ref{Name: "f"}

	f := &ast.FunctionDecl{
		Name:       fRef,
		ReturnType: bitType(32),
		Body: &ast.BlockStmt{Components: []ast.Stmt{
			&ast.ReturnStmt{Expression: &ast.LiteralExpr{Value: "1"}},
		}},
	}

	ctrl := &ast.ControlDecl{
		Name:   ast.Ref{Name: "SideEffectDemo"},
		Locals: []ast.Declaration{&ast.VarDecl{Name: xRef, Typ: bitType(32)}},
		Body: &ast.BlockStmt{Components: []ast.Stmt{
			&ast.AssignStmt{
				Left:  &ast.PathExpression{Path: xRef},
				Right: &ast.CallExpr{Method: &ast.PathExpression{Path: fRef}},
			},
		}},
	}

	return &ast.Program{Controls: []*ast.ControlDecl{ctrl}, Functions: []*ast.FunctionDecl{f}}
}

// sampleSliceOverwrite builds "a[7:4] = 0xA; a[7:0] = 0xBC; emit(a);":
// the second slice write fully covers the first, so the first is dead;
// the trailing emit(a) keeps the second (and the call itself) alive.
func sampleSliceOverwrite() *ast.Program {
	aRef := ast.Ref{Name: "a"}

	emit := &ast.ActionDecl{
		Name: ast.Ref{Name: "emit"},
		Parameters: &ast.ParameterList{Parameters: []*ast.Parameter{
			{Name: ast.Ref{Name: "x"}, Type: bitType(8), Direction: ast.DirIn},
		}},
		Body: &ast.BlockStmt{},
	}

	ctrl := &ast.ControlDecl{
		Name:   ast.Ref{Name: "SliceOverwriteDemo"},
		Locals: []ast.Declaration{&ast.VarDecl{Name: aRef, Typ: bitType(8)}},
		Body: &ast.BlockStmt{Components: []ast.Stmt{
			&ast.AssignStmt{
				Left:  &ast.SliceExpr{E0: &ast.PathExpression{Path: aRef}, High: 7, Low: 4},
				Right: &ast.LiteralExpr{Value: "0xA"},
			},
			&ast.AssignStmt{
				Left:  &ast.SliceExpr{E0: &ast.PathExpression{Path: aRef}, High: 7, Low: 0},
				Right: &ast.LiteralExpr{Value: "0xBC"},
			},
			&ast.CallStmt{Call: &ast.CallExpr{
				Method: &ast.PathExpression{Path: emit.Name},
				Args:   []ast.Expr{&ast.PathExpression{Path: aRef}},
			}},
		}},
	}

	return &ast.Program{Controls: []*ast.ControlDecl{ctrl}, Actions: []*ast.ActionDecl{emit}}
}

// sampleParserJoin builds a two-state parser where state A writes
// md.f and state B does not, both transitioning to accept: the join
// leaves md.f reachable from before-start along B's path, so the
// out-parameter check on md warns.
func sampleParserJoin() *ast.Program {
	mdType := &ast.StructType{Name: "Meta", Fields: []ast.Field{{Name: "f", Type: bitType(8)}}}
	mdRef := ast.Ref{Name: "md"}

	start := &ast.ParserState{
		Name:             "start",
		SelectExpression: &ast.LiteralExpr{Value: "0"},
		Next:             []string{"A", "B"},
	}
	stateA := &ast.ParserState{
		Name: "A",
		Components: []ast.Stmt{
			&ast.AssignStmt{
				Left:  &ast.MemberExpr{Expr: &ast.PathExpression{Path: mdRef}, Member: "f"},
				Right: &ast.LiteralExpr{Value: "1"},
			},
		},
		Next: []string{ast.StateAccept},
	}
	stateB := &ast.ParserState{Name: "B", Next: []string{ast.StateAccept}}

	parser := &ast.ParserDecl{
		Name: ast.Ref{Name: "JoinDemo"},
		ApplyParams: &ast.ParameterList{Parameters: []*ast.Parameter{
			{Name: mdRef, Type: mdType, Direction: ast.DirInOut},
		}},
		States:     []*ast.ParserState{start, stateA, stateB},
		EntryState: "start",
	}

	return &ast.Program{Parsers: []*ast.ParserDecl{parser}}
}
