package defuse

import (
	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/point"
)

// SliceTracker is the scoped guard HasUses.Add consults while a
// slice-assignment's left-hand side is being visited: it recognizes
// reaching points whose last statement is itself an assignment to a
// slice fully covered by the one currently being written, since the
// wider write in progress overwrites it completely.
type SliceTracker struct {
	active    bool
	high, low int
}

// watchForOverwrites activates the tracker for the duration of the
// caller's slice-LHS sub-visit. Nested activation is an internal bug.
func (t *SliceTracker) watchForOverwrites(high, low int) {
	bugCheck(!t.active, "SliceTracker.watchForOverwrites called while already active")
	t.active = true
	t.high = high
	t.low = low
}

// doneWatching deactivates the tracker. It is always safe to call,
// matching the scoped-guard pattern's unconditional release on exit.
func (t *SliceTracker) doneWatching() {
	t.active = false
}

// overwrites reports whether p's last statement is an assignment to a
// slice whose bits are all covered by the slice currently being
// written (current.high >= prev.high && current.low <= prev.low).
func (t *SliceTracker) overwrites(p point.ProgramPoint) bool {
	if !t.active || p.IsBeforeStart() {
		return false
	}
	assign, ok := p.Node.(*ast.AssignStmt)
	if !ok {
		return false
	}
	prev, ok := assign.Left.(*ast.SliceExpr)
	if !ok {
		return false
	}
	return t.high >= prev.High && t.low <= prev.Low
}

// HasUses is the append-only set of statement nodes known to have at
// least one subsequent read of what they wrote. It is shared by
// pointer across every FindUses instance created for inter-procedural
// analysis, so that a use discovered deep in a callee still marks the
// caller's statement as live.
type HasUses struct {
	used    map[ast.Node]bool
	tracker SliceTracker
}

// NewHasUses builds an empty set with an inactive SliceTracker.
func NewHasUses() *HasUses {
	return &HasUses{used: map[ast.Node]bool{}}
}

// Add inserts the last node of every point in pts that the active
// SliceTracker does not filter out.
func (h *HasUses) Add(pts *point.ProgramPoints) {
	if pts == nil {
		return
	}
	for _, p := range pts.Points() {
		if h.tracker.overwrites(p) {
			continue
		}
		if p.IsBeforeStart() || p.IsUnreachable() || p.Node == nil {
			continue
		}
		h.used[p.Node] = true
	}
}

// Contains reports whether node is known to be used.
func (h *HasUses) Contains(node ast.Node) bool {
	return h.used[node]
}

// WatchForOverwrites activates the SliceTracker for the scope of the
// caller's slice-LHS sub-visit.
func (h *HasUses) WatchForOverwrites(high, low int) {
	h.tracker.watchForOverwrites(high, low)
}

// DoneWatching deactivates the SliceTracker.
func (h *HasUses) DoneWatching() {
	h.tracker.doneWatching()
}
