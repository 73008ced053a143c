// Package methodinst resolves a method-call expression to the kind of
// callable it invokes — a built-in, an action, a table apply, or an
// extern method — so that the def-use pass can decide how to treat
// the call without re-deriving that classification itself.
package methodinst

import (
	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/refmap"
	"github.com/saruga/netir-defuse/internal/typemap"
)

// Kind classifies a resolved MethodInstance.
type Kind int

const (
	KindUnknown Kind = iota
	KindBuiltIn
	KindActionCall
	KindFunctionCall
	KindApplyMethod
	KindExternMethod
)

// builtInNames is the table-driven dispatch of structurally-recognized
// built-in methods, keyed by method name.
var builtInNames = map[string]bool{
	"push_front": true,
	"pop_front":  true,
	"isValid":    true,
	"setValid":   true,
	"setInvalid": true,
}

// Substitution provides a call's arguments in parameter order and
// supports lookup by formal parameter.
type Substitution struct {
	params []*ast.Parameter
	args   []ast.Expr
}

// Lookup returns the actual argument bound to p, or nil if p is not a
// parameter of this call.
func (s *Substitution) Lookup(p *ast.Parameter) ast.Expr {
	for i, fp := range s.params {
		if fp == p {
			if i < len(s.args) {
				return s.args[i]
			}
			return nil
		}
	}
	return nil
}

// Parameters returns the formal parameter list in order.
func (s *Substitution) Parameters() []*ast.Parameter { return s.params }

// Args returns the actual argument expressions in order.
func (s *Substitution) Args() []ast.Expr { return s.args }

// MethodInstance is the resolved classification of a method call.
type MethodInstance struct {
	Kind Kind

	// BuiltIn fields.
	BuiltInName string
	AppliedTo   ast.Expr

	// ActionCall fields.
	Action *ast.ActionDecl

	// FunctionCall fields.
	Function *ast.FunctionDecl

	// ApplyMethod fields.
	Object      ast.Declaration
	IsTableApply bool

	// ExternMethod fields.
	Extern *ast.ExternMethodDecl

	Substitution *Substitution
}

// MayCall returns the declarations an ExternMethod instance may
// invoke; empty for every other kind.
func (mi *MethodInstance) MayCall() []ast.Declaration {
	if mi.Kind != KindExternMethod || mi.Extern == nil {
		return nil
	}
	return mi.Extern.MayCall()
}

// Resolve classifies call using refMap/typeMap to look through its
// callee expression.
func Resolve(call *ast.CallExpr, refMap *refmap.ReferenceMap, typeMap *typemap.TypeMap) *MethodInstance {
	name, base := calleeNameAndBase(call.Method)

	if builtInNames[name] {
		return &MethodInstance{
			Kind:        KindBuiltIn,
			BuiltInName: name,
			AppliedTo:   base,
		}
	}

	if path, ok := call.Method.(*ast.PathExpression); ok {
		if decl := refMap.GetDeclaration(path.Path); decl != nil {
			switch d := decl.(type) {
			case *ast.ActionDecl:
				return &MethodInstance{
					Kind:         KindActionCall,
					Action:       d,
					Substitution: substitutionFor(d.Parameters, call.Args),
				}
			case *ast.FunctionDecl:
				return &MethodInstance{
					Kind:         KindFunctionCall,
					Function:     d,
					Substitution: substitutionFor(d.Parameters, call.Args),
				}
			}
		}
	}

	if member, ok := call.Method.(*ast.MemberExpr); ok {
		if member.Member == "apply" {
			if path, ok := member.Expr.(*ast.PathExpression); ok {
				if decl := refMap.GetDeclaration(path.Path); decl != nil {
					_, isTable := decl.(*ast.TableDecl)
					var params *ast.ParameterList
					if ctrl, ok := decl.(*ast.ControlDecl); ok {
						params = ctrl.ApplyParams
					}
					return &MethodInstance{
						Kind:         KindApplyMethod,
						Object:       decl,
						IsTableApply: isTable,
						Substitution: substitutionFor(params, call.Args),
					}
				}
			}
		}
		if path, ok := member.Expr.(*ast.PathExpression); ok {
			if decl := refMap.GetDeclaration(path.Path); decl != nil {
				if inst, ok := decl.(*ast.Instance); ok && inst.Initializer != nil {
					// An extern method invoked on an instance whose
					// initializer body constitutes its virtual
					// methods; may_call resolves to that initializer.
					em := &ast.ExternMethodDecl{
						Name: ast.Ref{Name: member.Member},
						MayCallFn: func() []ast.Declaration {
							return []ast.Declaration{inst.Initializer}
						},
					}
					return &MethodInstance{
						Kind:         KindExternMethod,
						Extern:       em,
						Substitution: substitutionFor(em.Parameters, call.Args),
					}
				}
			}
		}
	}

	return &MethodInstance{Kind: KindUnknown}
}

func substitutionFor(params *ast.ParameterList, args []ast.Expr) *Substitution {
	if params == nil {
		return &Substitution{args: args}
	}
	return &Substitution{params: params.Parameters, args: args}
}

// calleeNameAndBase extracts the trailing method name and the base
// expression it's applied to from a possibly-chained member access,
// e.g. `stack.push_front(1)` -> ("push_front", stack).
func calleeNameAndBase(callee ast.Expr) (string, ast.Expr) {
	if m, ok := callee.(*ast.MemberExpr); ok {
		return m.Member, m.Expr
	}
	if p, ok := callee.(*ast.PathExpression); ok {
		return p.Path.Name, nil
	}
	return "", nil
}

// TableApplySolver detects member accesses on a table-apply result,
// i.e. `t.apply().hit` and `t.apply().action_run`, so that those
// accesses can be treated as carrying no independent read set of
// their own (the enclosing call already accounts for the table hit).
type TableApplySolver struct{}

// IsHit reports whether expr is the `.hit` selector of a table-apply
// result.
func (TableApplySolver) IsHit(expr ast.Expr) bool {
	m, ok := expr.(*ast.MemberExpr)
	if !ok {
		return false
	}
	return m.Member == "hit" && isTableApplyCall(m.Expr)
}

// IsActionRun reports whether expr is the `.action_run` selector of a
// table-apply result.
func (TableApplySolver) IsActionRun(expr ast.Expr) bool {
	m, ok := expr.(*ast.MemberExpr)
	if !ok {
		return false
	}
	return m.Member == "action_run" && isTableApplyCall(m.Expr)
}

func isTableApplyCall(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	m, ok := call.Method.(*ast.MemberExpr)
	if !ok {
		return false
	}
	return m.Member == "apply"
}
