package refmap

import (
	"testing"

	"github.com/saruga/netir-defuse/internal/ast"
)

func TestBuildReferenceMapResolvesTopLevelUnits(t *testing.T) {
	action := &ast.ActionDecl{Name: ast.Ref{Name: "emit"}, Body: &ast.BlockStmt{}}
	fn := &ast.FunctionDecl{Name: ast.Ref{Name: "f"}, Body: &ast.BlockStmt{}}
	ctrl := &ast.ControlDecl{Name: ast.Ref{Name: "MyControl"}, Body: &ast.BlockStmt{}}
	parser := &ast.ParserDecl{Name: ast.Ref{Name: "MyParser"}, EntryState: "start"}

	prog := &ast.Program{
		Parsers:   []*ast.ParserDecl{parser},
		Controls:  []*ast.ControlDecl{ctrl},
		Actions:   []*ast.ActionDecl{action},
		Functions: []*ast.FunctionDecl{fn},
	}

	m := BuildReferenceMap(prog)

	if got := m.GetDeclaration(ast.Ref{Name: "emit"}); got != ast.Declaration(action) {
		t.Errorf("GetDeclaration(emit): got %v, want %v", got, action)
	}
	if got := m.GetDeclaration(ast.Ref{Name: "f"}); got != ast.Declaration(fn) {
		t.Errorf("GetDeclaration(f): got %v, want %v", got, fn)
	}
	if got := m.GetDeclaration(ast.Ref{Name: "MyControl"}); got != ast.Declaration(ctrl) {
		t.Errorf("GetDeclaration(MyControl): got %v, want %v", got, ctrl)
	}
	if got := m.GetDeclaration(ast.Ref{Name: "MyParser"}); got != ast.Declaration(parser) {
		t.Errorf("GetDeclaration(MyParser): got %v, want %v", got, parser)
	}
}

func TestBuildReferenceMapResolvesControlLocalUnits(t *testing.T) {
	localAction := &ast.ActionDecl{Name: ast.Ref{Name: "drop"}, Body: &ast.BlockStmt{}}
	table := &ast.TableDecl{Name: ast.Ref{Name: "fwd"}}
	instance := &ast.Instance{Name: ast.Ref{Name: "counter"}, Initializer: &ast.FunctionDecl{Body: &ast.BlockStmt{}}}

	ctrl := &ast.ControlDecl{
		Name:   ast.Ref{Name: "Ingress"},
		Locals: []ast.Declaration{localAction, table, instance, &ast.VarDecl{Name: ast.Ref{Name: "tmp"}}},
		Body:   &ast.BlockStmt{},
	}
	prog := &ast.Program{Controls: []*ast.ControlDecl{ctrl}}

	m := BuildReferenceMap(prog)

	if got := m.GetDeclaration(ast.Ref{Name: "drop"}); got != ast.Declaration(localAction) {
		t.Errorf("GetDeclaration(drop): got %v, want %v", got, localAction)
	}
	if got := m.GetDeclaration(ast.Ref{Name: "fwd"}); got != ast.Declaration(table) {
		t.Errorf("GetDeclaration(fwd): got %v, want %v", got, table)
	}
	if got := m.GetDeclaration(ast.Ref{Name: "counter"}); got != ast.Declaration(instance) {
		t.Errorf("GetDeclaration(counter): got %v, want %v", got, instance)
	}
	// A plain local variable has no declaration identity a call could
	// resolve to.
	if got := m.GetDeclaration(ast.Ref{Name: "tmp"}); got != nil {
		t.Errorf("GetDeclaration(tmp): got %v, want nil", got)
	}
}

func TestGetDeclarationUnboundReturnsNil(t *testing.T) {
	m := NewReferenceMap()
	if got := m.GetDeclaration(ast.Ref{Name: "isValid"}); got != nil {
		t.Errorf("GetDeclaration(isValid): got %v, want nil (built-ins are never registered)", got)
	}
}
