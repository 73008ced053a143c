package point

import (
	"testing"

	"github.com/saruga/netir-defuse/internal/ast"
)

func TestBeforeStartSentinel(t *testing.T) {
	if !BeforeStart.IsBeforeStart() {
		t.Errorf("BeforeStart.IsBeforeStart() = false, want true")
	}
	if BeforeStart.IsUnreachable() {
		t.Errorf("BeforeStart.IsUnreachable() = true, want false")
	}
}

func TestUnreachableSentinel(t *testing.T) {
	if !Unreachable.IsUnreachable() {
		t.Errorf("Unreachable.IsUnreachable() = false, want true")
	}
	if Unreachable.IsBeforeStart() {
		t.Errorf("Unreachable.IsBeforeStart() = true, want false")
	}
}

func TestProgramPointsDedup(t *testing.T) {
	n := &ast.AssignStmt{}
	p1 := ProgramPoint{Node: n}
	p2 := ProgramPoint{Node: n}

	s := NewProgramPoints(p1, p2)
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after adding the same point twice", s.Len())
	}
}

func TestProgramPointsMergeAndContainsBeforeStart(t *testing.T) {
	a := NewProgramPoints(BeforeStart)
	b := NewProgramPoints(ProgramPoint{Node: &ast.ReturnStmt{}})

	a.Merge(b)
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after merge", a.Len())
	}
	if !a.ContainsBeforeStart() {
		t.Errorf("ContainsBeforeStart() = false, want true")
	}
	if b.ContainsBeforeStart() {
		t.Errorf("ContainsBeforeStart() on b = true, want false")
	}
}

func TestDistinctContextsAreDistinctPoints(t *testing.T) {
	n := &ast.AssignStmt{}
	caller := &ast.CallExpr{}
	p1 := ProgramPoint{Node: n}
	p2 := p1.Pushed(caller, n)

	s := NewProgramPoints(p1, p2)
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2 for points differing only in context", s.Len())
	}
}
