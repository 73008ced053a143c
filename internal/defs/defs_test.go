package defs

import (
	"testing"

	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/point"
	"github.com/saruga/netir-defuse/internal/storage"
)

func declareVar(sm *storage.StorageMap, name string, typ ast.Type) (ast.Ref, storage.Storage) {
	ref := ast.Ref{Name: name}
	return ref, sm.Declare(ref, typ)
}

func TestUndeclaredLocationReachesFromBeforeStart(t *testing.T) {
	sm := storage.NewStorageMap()
	ref, st := declareVar(sm, "x", &ast.BaseType{Name: "bool"})
	_ = ref

	d := NewDefinitions()
	pts := d.PointsFor(storage.FromStorage(st))
	if !pts.ContainsBeforeStart() {
		t.Errorf("PointsFor on a never-written location did not contain BeforeStart")
	}
}

func TestComputeControlStraightLineAssignment(t *testing.T) {
	sm := storage.NewStorageMap()
	ref, st := declareVar(sm, "x", &ast.BaseType{Name: "bool"})

	assign := &ast.AssignStmt{Left: &ast.PathExpression{Path: ref}, Right: &ast.LiteralExpr{Value: "true"}}
	body := &ast.BlockStmt{Components: []ast.Stmt{assign}}
	control := &ast.ControlDecl{Name: ast.Ref{Name: "c"}, Body: body}

	b := NewBuilder(sm, nil)
	b.ComputeControl(control)

	after := b.Definitions().Get(point.BeforeStart.AtNode(assign), true)
	pts := after.PointsFor(storage.FromStorage(st))
	if pts.ContainsBeforeStart() {
		t.Errorf("after the assignment, x still reaches from BeforeStart")
	}
}

func TestJoinAfterIfBothBranchesWrite(t *testing.T) {
	sm := storage.NewStorageMap()
	ref, st := declareVar(sm, "x", &ast.BaseType{Name: "bool"})

	thenAssign := &ast.AssignStmt{Left: &ast.PathExpression{Path: ref}, Right: &ast.LiteralExpr{Value: "true"}}
	elseAssign := &ast.AssignStmt{Left: &ast.PathExpression{Path: ref}, Right: &ast.LiteralExpr{Value: "false"}}
	ifStmt := &ast.IfStmt{
		Condition: &ast.LiteralExpr{Value: "cond"},
		Then:      &ast.BlockStmt{Components: []ast.Stmt{thenAssign}},
		Else:      &ast.BlockStmt{Components: []ast.Stmt{elseAssign}},
	}
	control := &ast.ControlDecl{Name: ast.Ref{Name: "c"}, Body: &ast.BlockStmt{Components: []ast.Stmt{ifStmt}}}

	b := NewBuilder(sm, nil)
	b.ComputeControl(control)

	after := b.Definitions().Get(point.BeforeStart.AtNode(ifStmt), true)
	pts := after.PointsFor(storage.FromStorage(st))
	if pts.ContainsBeforeStart() {
		t.Errorf("after an if where both branches write x, x should not reach from BeforeStart")
	}
}

func TestJoinAfterIfOnlyOneBranchWritesLeavesBeforeStartReachable(t *testing.T) {
	sm := storage.NewStorageMap()
	ref, st := declareVar(sm, "x", &ast.BaseType{Name: "bool"})

	thenAssign := &ast.AssignStmt{Left: &ast.PathExpression{Path: ref}, Right: &ast.LiteralExpr{Value: "true"}}
	ifStmt := &ast.IfStmt{
		Condition: &ast.LiteralExpr{Value: "cond"},
		Then:      &ast.BlockStmt{Components: []ast.Stmt{thenAssign}},
	}
	control := &ast.ControlDecl{Name: ast.Ref{Name: "c"}, Body: &ast.BlockStmt{Components: []ast.Stmt{ifStmt}}}

	b := NewBuilder(sm, nil)
	b.ComputeControl(control)

	after := b.Definitions().Get(point.BeforeStart.AtNode(ifStmt), true)
	pts := after.PointsFor(storage.FromStorage(st))
	if !pts.ContainsBeforeStart() {
		t.Errorf("after an if where only one branch writes x, x should still reach from BeforeStart on the other path")
	}
}

func TestReturnMakesSubsequentPointsUnreachable(t *testing.T) {
	sm := storage.NewStorageMap()
	ret := &ast.ReturnStmt{}
	after := &ast.EmptyStmt{}
	body := &ast.BlockStmt{Components: []ast.Stmt{ret, after}}
	control := &ast.ControlDecl{Name: ast.Ref{Name: "c"}, Body: body}

	b := NewBuilder(sm, nil)
	b.ComputeControl(control)

	afterDefs := b.Definitions().Get(point.BeforeStart.AtNode(after), true)
	if !afterDefs.IsUnreachable() {
		t.Errorf("the statement following a return should be unreachable")
	}
}

func TestParserJoinAcceptReject(t *testing.T) {
	sm := storage.NewStorageMap()
	ref, st := declareVar(sm, "md", &ast.BaseType{Name: "bit<8>", Width: 8})

	assign := &ast.AssignStmt{Left: &ast.PathExpression{Path: ref}, Right: &ast.LiteralExpr{Value: "1"}}
	stateA := &ast.ParserState{Name: "start", Components: []ast.Stmt{assign}, Next: []string{ast.StateAccept}}
	parser := &ast.ParserDecl{
		Name:       ast.Ref{Name: "p"},
		States:     []*ast.ParserState{stateA},
		EntryState: "start",
	}

	b := NewBuilder(sm, nil)
	out := b.ComputeParser(parser)

	pts := out.PointsFor(storage.FromStorage(st))
	if pts.ContainsBeforeStart() {
		t.Errorf("md should be fully written on the only path to accept")
	}
}
