// Package refmap resolves path expressions to the declarations they
// name, standing in for the full symbol-resolution pass that a surface
// parser would normally perform upstream of this one.
package refmap

import "github.com/saruga/netir-defuse/internal/ast"

// ReferenceMap maps a declaration's Ref to the Declaration itself.
type ReferenceMap struct {
	decls map[ast.Ref]ast.Declaration
}

// NewReferenceMap builds an empty ReferenceMap.
func NewReferenceMap() *ReferenceMap {
	return &ReferenceMap{decls: map[ast.Ref]ast.Declaration{}}
}

// Declare registers d under its own name, so that GetDeclaration on a
// PathExpression referring to d resolves it.
func (m *ReferenceMap) Declare(d ast.Declaration) {
	m.decls[ast.Ref{Name: d.DeclName()}] = d
}

// GetDeclaration resolves ref, returning nil if ref is unbound (e.g. it
// names a built-in rather than a user declaration).
func (m *ReferenceMap) GetDeclaration(ref ast.Ref) ast.Declaration {
	return m.decls[ref]
}
