// Package typemap resolves expressions to their checked types,
// standing in for the type-checking pass that would normally run
// before this one.
package typemap

import "github.com/saruga/netir-defuse/internal/ast"

// TypeMap maps an expression's identity to its resolved Type.
type TypeMap struct {
	types map[ast.Expr]ast.Type
}

// NewTypeMap builds an empty TypeMap.
func NewTypeMap() *TypeMap {
	return &TypeMap{types: map[ast.Expr]ast.Type{}}
}

// Set records expr's type, overwriting any prior entry.
func (m *TypeMap) Set(expr ast.Expr, typ ast.Type) {
	m.types[expr] = typ
}

// GetType returns expr's resolved type. When failIfMissing is true and
// expr has no recorded type, GetType panics with a BugError-shaped
// message, mirroring the original's hard failure on an unresolved
// type — the caller is expected to recover this as an internal bug,
// not a user diagnostic.
func (m *TypeMap) GetType(expr ast.Expr, failIfMissing bool) ast.Type {
	t, ok := m.types[expr]
	if !ok {
		if failIfMissing {
			panic("typemap: no type recorded for expression")
		}
		return nil
	}
	return t
}

// TypeIsEmpty reports whether t carries no data: void, or a struct
// with zero fields.
func (m *TypeMap) TypeIsEmpty(t ast.Type) bool {
	switch v := t.(type) {
	case *ast.VoidType:
		return true
	case *ast.EmptyStructType:
		return true
	case *ast.StructType:
		return len(v.Fields) == 0
	default:
		return false
	}
}
