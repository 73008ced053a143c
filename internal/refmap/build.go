package refmap

import "github.com/saruga/netir-defuse/internal/ast"

// BuildReferenceMap walks prog, declaring every named unit a call or
// apply could resolve to: actions (top-level and control-local),
// tables, controls, parsers, top-level functions, and instances with
// virtual-method initializers. Local variables need no entry here —
// PathExpression resolution for a plain read/write goes through
// storage.StorageMap, never through this map.
func BuildReferenceMap(prog *ast.Program) *ReferenceMap {
	m := NewReferenceMap()
	for _, p := range prog.Parsers {
		m.Declare(p)
		declareLocals(m, p.Locals)
	}
	for _, c := range prog.Controls {
		m.Declare(c)
		declareLocals(m, c.Locals)
	}
	for _, a := range prog.Actions {
		m.Declare(a)
	}
	for _, fn := range prog.Functions {
		m.Declare(fn)
	}
	return m
}

func declareLocals(m *ReferenceMap, locals []ast.Declaration) {
	for _, l := range locals {
		switch d := l.(type) {
		case *ast.Instance:
			m.Declare(d)
		case *ast.ActionDecl:
			m.Declare(d)
		case *ast.TableDecl:
			m.Declare(d)
		case *ast.VarDecl:
			// no declaration identity a call could resolve to
		}
	}
}
