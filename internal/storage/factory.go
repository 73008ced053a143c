package storage

import "github.com/saruga/netir-defuse/internal/ast"

// BuildStorageMap walks prog once, declaring Storage for every
// variable, instance, and parameter it finds — the StorageFactory
// spec.md describes only as "looked up by declaration or parameter
// via the external StorageMap", concretized here so pkg/api can drive
// the pass over a whole program without a caller hand-declaring every
// local.
func BuildStorageMap(prog *ast.Program) *StorageMap {
	m := NewStorageMap()
	for _, p := range prog.Parsers {
		declareParams(m, p.ApplyParams)
		declareLocals(m, p.Locals)
	}
	for _, c := range prog.Controls {
		declareParams(m, c.ApplyParams)
		declareLocals(m, c.Locals)
	}
	for _, a := range prog.Actions {
		declareParams(m, a.Parameters)
	}
	for _, fn := range prog.Functions {
		declareParams(m, fn.Parameters)
	}
	return m
}

func declareParams(m *StorageMap, params *ast.ParameterList) {
	if params == nil {
		return
	}
	for _, p := range params.Parameters {
		m.Declare(p.Name, p.Type)
	}
}

func declareLocals(m *StorageMap, locals []ast.Declaration) {
	for _, l := range locals {
		switch d := l.(type) {
		case *ast.VarDecl:
			m.Declare(d.Name, d.Typ)
		case *ast.Instance:
			m.Declare(d.Name, d.Typ)
			if d.Initializer != nil {
				declareParams(m, d.Initializer.Parameters)
			}
		case *ast.ActionDecl:
			declareParams(m, d.Parameters)
		case *ast.TableDecl:
			// a table declares no storage of its own
		}
	}
}
