package typemap

import (
	"testing"

	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/storage"
)

func TestInferResolvesFieldAndStackMemberTypes(t *testing.T) {
	fieldType := &ast.BaseType{Name: "bit<8>", Width: 8}
	hdrType := &ast.HeaderType{Name: "H", Fields: []ast.Field{{Name: "x", Type: fieldType}}}
	stkType := &ast.StackType{ElemType: *hdrType, Capacity: 4}

	hRef := ast.Ref{Name: "h"}
	stkRef := ast.Ref{Name: "stk"}
	yRef := ast.Ref{Name: "y"}

	hFieldRead := &ast.MemberExpr{Expr: &ast.PathExpression{Path: hRef}, Member: "x"}
	stkNextRead := &ast.MemberExpr{Expr: &ast.PathExpression{Path: stkRef}, Member: "next"}

	ctrl := &ast.ControlDecl{
		Name: ast.Ref{Name: "InferDemo"},
		Locals: []ast.Declaration{
			&ast.VarDecl{Name: hRef, Typ: hdrType},
			&ast.VarDecl{Name: stkRef, Typ: stkType},
			&ast.VarDecl{Name: yRef, Typ: fieldType},
		},
		Body: &ast.BlockStmt{Components: []ast.Stmt{
			&ast.AssignStmt{Left: &ast.PathExpression{Path: yRef}, Right: hFieldRead},
			&ast.AssignStmt{Left: &ast.PathExpression{Path: yRef}, Right: stkNextRead},
		}},
	}
	prog := &ast.Program{Controls: []*ast.ControlDecl{ctrl}}

	sm := storage.NewStorageMap()
	sm.Declare(hRef, hdrType)
	sm.Declare(stkRef, stkType)
	sm.Declare(yRef, fieldType)

	tm := Infer(prog, sm)

	if got := tm.GetType(hFieldRead, true); got != ast.Type(fieldType) {
		t.Errorf("h.x: got %v, want %v", got, fieldType)
	}

	got := tm.GetType(stkNextRead, true)
	gotHeader, ok := got.(*ast.HeaderType)
	if !ok {
		t.Fatalf("stk.next: got %T, want *ast.HeaderType", got)
	}
	if gotHeader.Name != hdrType.Name {
		t.Errorf("stk.next: got header %q, want %q", gotHeader.Name, hdrType.Name)
	}
}

func TestInferIsValidCallReturnsBool(t *testing.T) {
	hdrType := &ast.HeaderType{Name: "H"}
	hRef := ast.Ref{Name: "h"}
	call := &ast.CallExpr{Method: &ast.MemberExpr{Expr: &ast.PathExpression{Path: hRef}, Member: "isValid"}}

	ctrl := &ast.ControlDecl{
		Name:   ast.Ref{Name: "ValidDemo"},
		Locals: []ast.Declaration{&ast.VarDecl{Name: hRef, Typ: hdrType}},
		Body: &ast.BlockStmt{Components: []ast.Stmt{
			&ast.IfStmt{Condition: call, Then: &ast.BlockStmt{}},
		}},
	}
	prog := &ast.Program{Controls: []*ast.ControlDecl{ctrl}}

	sm := storage.NewStorageMap()
	sm.Declare(hRef, hdrType)

	tm := Infer(prog, sm)

	got, ok := tm.GetType(call, true).(*ast.BaseType)
	if !ok || got.Name != "bool" {
		t.Errorf("h.isValid(): got %v, want bool", got)
	}
}
