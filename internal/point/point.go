// Package point implements program points: the positions in a parser
// or control body that definitions and uses are anchored to.
package point

import (
	"fmt"

	"github.com/saruga/netir-defuse/internal/ast"
)

// ProgramPoint identifies a position in the analyzed program: either
// the position anchored at the statement or parser state named Node,
// while inside Context (for a statement, the Definitions recorded for
// it are those holding right after it executes; for a parser state,
// those holding on entry to it), or one of two sentinels
// (before-start, unreachable).
//
// Context threads the call stack of actions/tables/virtual-methods a
// point is nested under, so that the same statement reached from two
// different callers is a different point.
type ProgramPoint struct {
	Context []ast.Node
	Node    ast.Node
}

// BeforeStart is the point that precedes execution of a parser's start
// state or a control's apply body.
var BeforeStart = ProgramPoint{}

// Unreachable marks a point from which no execution proceeds, e.g.
// after exit/return or down an infeasible branch.
var Unreachable = ProgramPoint{Node: ast.UnreachableMarker{}}

// IsBeforeStart reports whether p is the BeforeStart sentinel.
func (p ProgramPoint) IsBeforeStart() bool {
	return p.Node == nil && len(p.Context) == 0
}

// IsUnreachable reports whether p is the Unreachable sentinel.
func (p ProgramPoint) IsUnreachable() bool {
	_, ok := p.Node.(ast.UnreachableMarker)
	return ok
}

// AtNode returns a program point in the same context as p, but
// anchored to n.
func (p ProgramPoint) AtNode(n ast.Node) ProgramPoint {
	return ProgramPoint{Context: p.Context, Node: n}
}

// Pushed returns the program point n inside a callee entered from
// caller: caller is pushed onto p's context. The def-use pass itself
// never grows the context (see defuse.FindUses).
func (p ProgramPoint) Pushed(caller ast.Node, n ast.Node) ProgramPoint {
	ctx := make([]ast.Node, len(p.Context)+1)
	copy(ctx, p.Context)
	ctx[len(p.Context)] = caller
	return ProgramPoint{Context: ctx, Node: n}
}

func (p ProgramPoint) String() string {
	if p.IsBeforeStart() {
		return "<before-start>"
	}
	if p.IsUnreachable() {
		return "<unreachable>"
	}
	return fmt.Sprintf("%T@%d", p.Node, len(p.Context))
}

// Key returns a value usable as a map key for p; ast.Node values here
// are always pointers to concrete node structs, so identity comparison
// via the interface value itself is sound. The context is compared by
// the identity of each caller node, in order.
func (p ProgramPoint) Key() interface{} {
	type key struct {
		node ast.Node
		ctx  string
	}
	ctx := ""
	for _, c := range p.Context {
		ctx += fmt.Sprintf("%p;", c)
	}
	return key{node: p.Node, ctx: ctx}
}

// ProgramPoints is an ordered, de-duplicated collection of points,
// used as the reaching-point set attached to a Definitions entry.
type ProgramPoints struct {
	points []ProgramPoint
	seen   map[interface{}]bool
}

// NewProgramPoints builds a ProgramPoints set from the given points,
// discarding duplicates.
func NewProgramPoints(pts ...ProgramPoint) *ProgramPoints {
	s := &ProgramPoints{seen: map[interface{}]bool{}}
	for _, p := range pts {
		s.Add(p)
	}
	return s
}

// Add inserts p if not already present.
func (s *ProgramPoints) Add(p ProgramPoint) {
	if s.seen == nil {
		s.seen = map[interface{}]bool{}
	}
	k := p.Key()
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.points = append(s.points, p)
}

// Merge adds every point of other into s.
func (s *ProgramPoints) Merge(other *ProgramPoints) {
	if other == nil {
		return
	}
	for _, p := range other.points {
		s.Add(p)
	}
}

// ContainsBeforeStart reports whether the before-start sentinel is a
// member of s; FindUses treats this specially when deciding whether an
// out parameter may be uninitialized on entry.
func (s *ProgramPoints) ContainsBeforeStart() bool {
	if s == nil {
		return false
	}
	for _, p := range s.points {
		if p.IsBeforeStart() {
			return true
		}
	}
	return false
}

// Points returns the points in insertion order.
func (s *ProgramPoints) Points() []ProgramPoint {
	if s == nil {
		return nil
	}
	return s.points
}

// Len reports the number of distinct points in s.
func (s *ProgramPoints) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Empty reports whether s has no points.
func (s *ProgramPoints) Empty() bool { return s.Len() == 0 }
