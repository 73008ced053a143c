package typemap

import (
	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/storage"
)

// Infer walks prog once and records the resolved type of every
// expression it finds, concretizing the external TypeMap collaborator
// spec.md §6 treats as opaque. It stands in for the type-checking pass
// that would normally run upstream of this one (explicitly out of
// scope per spec.md §1's Non-goals), computing types bottom-up from
// each storage's declared type instead of from a surface grammar.
func Infer(prog *ast.Program, storageMap *storage.StorageMap) *TypeMap {
	m := NewTypeMap()
	w := &inferWalker{types: m, storage: storageMap}
	for _, p := range prog.Parsers {
		w.walkParser(p)
	}
	for _, c := range prog.Controls {
		w.walkControl(c)
	}
	for _, a := range prog.Actions {
		w.walkAction(a)
	}
	for _, fn := range prog.Functions {
		w.walkFunction(fn)
	}
	return m
}

type inferWalker struct {
	types   *TypeMap
	storage *storage.StorageMap
}

func (w *inferWalker) walkParser(p *ast.ParserDecl) {
	w.walkLocals(p.Locals)
	for _, s := range p.States {
		for _, stmt := range s.Components {
			w.walkStmt(stmt)
		}
		if s.SelectExpression != nil {
			w.walkExpr(s.SelectExpression)
		}
	}
}

func (w *inferWalker) walkControl(c *ast.ControlDecl) {
	w.walkLocals(c.Locals)
	w.walkStmt(c.Body)
}

func (w *inferWalker) walkAction(a *ast.ActionDecl) {
	w.walkStmt(a.Body)
}

func (w *inferWalker) walkFunction(f *ast.FunctionDecl) {
	w.walkStmt(f.Body)
}

func (w *inferWalker) walkLocals(locals []ast.Declaration) {
	for _, l := range locals {
		switch d := l.(type) {
		case *ast.Instance:
			if d.Initializer != nil {
				w.walkFunction(d.Initializer)
			}
		case *ast.ActionDecl:
			w.walkAction(d)
		case *ast.TableDecl:
			w.walkTable(d)
		}
	}
}

func (w *inferWalker) walkTable(t *ast.TableDecl) {
	for _, k := range t.Key {
		w.walkExpr(k)
	}
	for _, e := range t.ActionList {
		w.walkExpr(e.Call)
	}
}

func (w *inferWalker) walkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		w.walkExpr(n.Left)
		w.walkExpr(n.Right)
	case *ast.ReturnStmt:
		if n.Expression != nil {
			w.walkExpr(n.Expression)
		}
	case *ast.CallStmt:
		w.walkExpr(n.Call)
	case *ast.BlockStmt:
		for _, c := range n.Components {
			w.walkStmt(c)
		}
	case *ast.IfStmt:
		w.walkExpr(n.Condition)
		w.walkStmt(n.Then)
		if n.Else != nil {
			w.walkStmt(n.Else)
		}
	case *ast.SwitchStmt:
		w.walkExpr(n.Selector)
		for _, c := range n.Cases {
			if c.Body != nil {
				w.walkStmt(c.Body)
			}
		}
	}
}

// walkExpr computes and records expr's type, recursing into
// sub-expressions first so a parent projection (member/index/slice)
// can read its base's already-recorded type.
func (w *inferWalker) walkExpr(expr ast.Expr) ast.Type {
	if expr == nil {
		return nil
	}

	var t ast.Type
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		t = &ast.BaseType{Name: "bit<32>", Width: 32}

	case *ast.TypeNameExpression:
		t = &ast.BaseType{Name: e.TypeName}

	case *ast.PathExpression:
		if st, ok := w.storage.GetStorage(e.Path); ok {
			t = st.Type()
		} else {
			t = &ast.BaseType{Name: "bit<32>", Width: 32}
		}

	case *ast.MemberExpr:
		base := w.walkExpr(e.Expr)
		t = w.memberType(base, e.Member)

	case *ast.ArrayIndexExpr:
		base := w.walkExpr(e.Left)
		if _, ok := e.ConstIndex(); !ok {
			w.walkExpr(e.Right)
		}
		if st, ok := base.(*ast.StackType); ok {
			t = &st.ElemType
		} else {
			t = &ast.BaseType{Name: "bit<8>", Width: 8}
		}

	case *ast.SliceExpr:
		w.walkExpr(e.E0)
		width := e.High - e.Low + 1
		if width < 1 {
			width = 1
		}
		t = &ast.BaseType{Name: "bit<N>", Width: width}

	case *ast.MuxExpr:
		w.walkExpr(e.Condition)
		tt := w.walkExpr(e.TrueExpr)
		w.walkExpr(e.FalseExpr)
		t = tt

	case *ast.UnaryExpr:
		t = w.walkExpr(e.Operand)

	case *ast.BinaryExpr:
		t = w.walkExpr(e.Left)
		w.walkExpr(e.Right)

	case *ast.CallExpr:
		t = w.walkCall(e)

	default:
		t = &ast.BaseType{Name: "bit<32>", Width: 32}
	}

	w.types.Set(expr, t)
	return t
}

// memberType projects base's field type for name, falling back to a
// generic base type when base carries no such field (an extern or
// unresolved type, which this standalone module has no declaration
// for).
func (w *inferWalker) memberType(base ast.Type, name string) ast.Type {
	switch b := base.(type) {
	case *ast.StackType:
		switch name {
		case "next", "last":
			return &b.ElemType
		case "lastIndex":
			return &ast.BaseType{Name: "bit<32>", Width: 32}
		}
	case *ast.HeaderType:
		for _, f := range b.Fields {
			if f.Name == name {
				return f.Type
			}
		}
	case *ast.StructType:
		for _, f := range b.Fields {
			if f.Name == name {
				return f.Type
			}
		}
	}
	return &ast.BaseType{Name: "bit<8>", Width: 8}
}

// walkCall records types for the call's arguments and, when the callee
// is a member access, for its base expression (defuse.FindUses.visitCall
// reads that base for built-ins without visiting the method expression
// itself), and returns the call's own result type: bool for isValid,
// void for every other call.
func (w *inferWalker) walkCall(call *ast.CallExpr) ast.Type {
	if m, ok := call.Method.(*ast.MemberExpr); ok {
		w.walkExpr(m.Expr)
		if m.Member == "isValid" {
			for _, a := range call.Args {
				w.walkExpr(a)
			}
			return &ast.BaseType{Name: "bool"}
		}
	}
	for _, a := range call.Args {
		w.walkExpr(a)
	}
	return &ast.VoidType{}
}
