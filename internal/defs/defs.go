// Package defs implements the write-set builder: the external
// collaborator that precomputes, for every program point, which
// storage locations have been written and from which earlier points
// that write may still be live.
//
// The pass proper treats the output of this package as an opaque
// oracle; it never inspects the lattice's internal representation,
// only the Definitions/AllDefinitions query surface.
package defs

import (
	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/point"
	"github.com/saruga/netir-defuse/internal/storage"
	"go.uber.org/zap"
)

// Definitions is the reaching-writes lattice element attached to one
// program point: for each location, the set of points at which a
// write to that location (or an overlapping one) may have last
// occurred before this point.
type Definitions struct {
	byLocation map[string]*point.ProgramPoints
	unreach    bool
}

// NewDefinitions builds an empty Definitions value, equivalent to "no
// writes have reached here" (every location maps to before-start).
func NewDefinitions() *Definitions {
	return &Definitions{byLocation: map[string]*point.ProgramPoints{}}
}

// unreachableDefinitions returns a fresh Definitions for an unreachable
// point; the lattice element carries no location information once
// unreachable.
func unreachableDefinitions() *Definitions {
	return &Definitions{byLocation: map[string]*point.ProgramPoints{}, unreach: true}
}

// IsUnreachable reports whether the point this value is attached to
// can never execute.
func (d *Definitions) IsUnreachable() bool { return d != nil && d.unreach }

// PointsFor returns the set of points that may have last written any
// location in locset, reaching this Definitions. Locations never
// written default to BeforeStart.
func (d *Definitions) PointsFor(locset storage.LocationSet) *point.ProgramPoints {
	out := point.NewProgramPoints()
	if d == nil {
		out.Add(point.BeforeStart)
		return out
	}
	if d.unreach {
		return out
	}
	for _, loc := range locset.Locations() {
		for _, atom := range loc.Expand() {
			if pts, ok := d.byLocation[atom.String()]; ok {
				out.Merge(pts)
			} else {
				out.Add(point.BeforeStart)
			}
		}
	}
	return out
}

// Join merges d with other, the reaching-writes lattice join used at
// control-flow merge points (if/switch branches, parser state joins).
// A location's reaching points after the join are the union of its
// reaching points on each incoming path; a location absent from one
// path still reaches from BeforeStart along that path.
func (d *Definitions) Join(other *Definitions) *Definitions {
	switch {
	case d == nil || d.unreach:
		if other == nil {
			return unreachableDefinitions()
		}
		return other.clone()
	case other == nil || other.unreach:
		return d.clone()
	}

	out := d.clone()
	for loc, pts := range other.byLocation {
		if existing, ok := out.byLocation[loc]; ok {
			existing.Merge(pts)
		} else {
			merged := point.NewProgramPoints(point.BeforeStart)
			merged.Merge(pts)
			out.byLocation[loc] = merged
		}
	}
	for loc, pts := range out.byLocation {
		if _, ok := other.byLocation[loc]; !ok {
			pts.Add(point.BeforeStart)
		}
	}
	return out
}

func (d *Definitions) clone() *Definitions {
	out := &Definitions{byLocation: make(map[string]*point.ProgramPoints, len(d.byLocation)), unreach: d.unreach}
	for k, v := range d.byLocation {
		out.byLocation[k] = point.NewProgramPoints(v.Points()...)
	}
	return out
}

// recordWrite returns a new Definitions identical to d except that
// every location in locset now reaches solely from at.
func (d *Definitions) recordWrite(locset storage.LocationSet, at point.ProgramPoint) *Definitions {
	out := d.clone()
	for _, loc := range locset.Locations() {
		for _, atom := range loc.Expand() {
			out.byLocation[atom.String()] = point.NewProgramPoints(at)
		}
	}
	return out
}

// AllDefinitions is the map from program point to the Definitions
// holding immediately after that point.
type AllDefinitions struct {
	after   map[interface{}]*Definitions
	storage *storage.StorageMap
}

// NewAllDefinitions builds an empty AllDefinitions table over sm. The
// pass carries no separate reference to the storage map it was built
// from, so internal/defuse reaches it through this accessor instead of
// a second constructor argument.
func NewAllDefinitions(sm *storage.StorageMap) *AllDefinitions {
	return &AllDefinitions{after: map[interface{}]*Definitions{}, storage: sm}
}

// StorageMap returns the storage map this table's locations were
// declared against.
func (a *AllDefinitions) StorageMap() *storage.StorageMap { return a.storage }

// Get returns the Definitions holding immediately after p. The exact
// flag is accepted for interface parity with the spec; this
// implementation always performs an exact lookup, defaulting to an
// empty Definitions for points never recorded (e.g. statements in
// never-analyzed dead branches).
func (a *AllDefinitions) Get(p point.ProgramPoint, exact bool) *Definitions {
	if p.IsUnreachable() {
		return unreachableDefinitions()
	}
	if d, ok := a.after[p.Key()]; ok {
		return d
	}
	return NewDefinitions()
}

// set records the Definitions holding after p.
func (a *AllDefinitions) set(p point.ProgramPoint, d *Definitions) {
	a.after[p.Key()] = d
}

// Builder computes write-sets over a parser, control, action, or
// function body and populates an AllDefinitions table. It never
// performs fixpoint iteration: the IR has no loop statements, and a
// parser's state graph is treated as a DAG by visiting each state
// exactly once in the order topoStates returns and joining into it the
// Definitions of every predecessor visited before it. Along a back edge
// of a cyclic state graph the later state's writes are not joined into
// the earlier state; no component diagnoses such cycles.
type Builder struct {
	storage *storage.StorageMap
	all     *AllDefinitions
	log     *zap.Logger
}

// NewBuilder creates a write-set builder over sm, recording results in
// a fresh AllDefinitions table. log may be nil to disable tracing.
func NewBuilder(sm *storage.StorageMap, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{storage: sm, all: NewAllDefinitions(sm), log: log}
}

// Definitions returns the AllDefinitions table populated by Compute*.
func (b *Builder) Definitions() *AllDefinitions { return b.all }

// ComputeControl computes write-sets for a control's apply body and
// returns the Definitions holding after it. That value is also
// recorded at point.BeforeStart.AtNode(c.Body), where
// FindUses.VisitControl looks it up to run checkOutParameters.
func (b *Builder) ComputeControl(c *ast.ControlDecl) *Definitions {
	b.log.Debug("computing write-set for control", zap.String("control", c.Name.Name))
	cur := NewDefinitions()
	start := point.BeforeStart
	b.all.set(start, cur)
	out := b.walkStmt(c.Body, start.AtNode(c.Body), cur)
	b.all.set(start.AtNode(c), out)
	return out
}

// ComputeParser computes write-sets for a parser's state graph,
// joining the Definitions reaching its accept and reject states. The
// joined value is returned and recorded at point.BeforeStart.AtNode(p),
// where FindUses.VisitParser looks it up to run checkOutParameters.
func (b *Builder) ComputeParser(p *ast.ParserDecl) *Definitions {
	b.log.Debug("computing write-set for parser", zap.String("parser", p.Name.Name))
	start := point.BeforeStart
	entry := NewDefinitions()
	b.all.set(start, entry)

	order := b.topoStates(p)
	reachingState := map[string]*Definitions{p.EntryState: entry}
	for _, s := range order {
		in := reachingState[s.Name]
		if in == nil {
			in = unreachableDefinitions()
		}
		statePoint := point.ProgramPoint{Node: s}
		b.all.set(statePoint, in)
		out := b.walkStmts(s.Components, statePoint, in)
		for _, next := range s.Next {
			merged := out
			if existing, ok := reachingState[next]; ok {
				merged = existing.Join(out)
			}
			reachingState[next] = merged
		}
	}

	accept := reachingState[ast.StateAccept]
	reject := reachingState[ast.StateReject]
	if accept == nil {
		accept = unreachableDefinitions()
	}
	if reject == nil {
		reject = unreachableDefinitions()
	}
	joined := accept.Join(reject)
	b.all.set(start.AtNode(p), joined)
	return joined
}

// ComputeAction computes write-sets for an action's body, rooted at
// before-start like a control's apply body. Actions are analyzed once,
// independent of any particular call site: FindUses's inter-procedural
// recursion queries this same table regardless of which statement
// called the action, so its own internal flow is call-site-agnostic.
func (b *Builder) ComputeAction(a *ast.ActionDecl) *Definitions {
	b.log.Debug("computing write-set for action", zap.String("action", a.Name.Name))
	cur := NewDefinitions()
	start := point.BeforeStart
	b.all.set(start, cur)
	out := b.walkStmt(a.Body, start.AtNode(a.Body), cur)
	b.all.set(start.AtNode(a), out)
	return out
}

// ComputeFunction computes write-sets for a function's body, rooted at
// before-start for the same reason as ComputeAction.
func (b *Builder) ComputeFunction(f *ast.FunctionDecl) *Definitions {
	b.log.Debug("computing write-set for function", zap.String("function", f.Name.Name))
	cur := NewDefinitions()
	start := point.BeforeStart
	b.all.set(start, cur)
	out := b.walkStmt(f.Body, start.AtNode(f.Body), cur)
	b.all.set(start.AtNode(f), out)
	return out
}

// topoStates returns a parser's states in reverse postorder of a
// depth-first walk from the entry state, so the entry state comes
// first and, in an acyclic state graph, every state follows all of its
// predecessors reachable from the entry. States unreachable from the
// entry follow in declaration order (still analyzed, just
// conservatively).
func (b *Builder) topoStates(p *ast.ParserDecl) []*ast.ParserState {
	order := make([]*ast.ParserState, 0, len(p.States))
	var post []*ast.ParserState
	seen := map[string]bool{}
	var push func(name string)
	push = func(name string) {
		if seen[name] || name == ast.StateAccept || name == ast.StateReject {
			return
		}
		seen[name] = true
		s := p.StateByName(name)
		if s == nil {
			return
		}
		for _, n := range s.Next {
			push(n)
		}
		post = append(post, s)
	}
	push(p.EntryState)
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for _, s := range p.States {
		if !seen[s.Name] {
			seen[s.Name] = true
			order = append(order, s)
		}
	}
	return order
}

func (b *Builder) walkStmts(stmts []ast.Stmt, at point.ProgramPoint, in *Definitions) *Definitions {
	cur := in
	for _, s := range stmts {
		cur = b.walkStmt(s, at.AtNode(s), cur)
	}
	return cur
}

// walkStmt records, for the point anchored at s, the Definitions
// holding immediately after s executes, and returns that same value so
// the caller can thread it on as the incoming value for s's successor.
func (b *Builder) walkStmt(s ast.Stmt, at point.ProgramPoint, in *Definitions) *Definitions {
	if in.IsUnreachable() {
		b.all.set(at, in)
		return in
	}

	var out *Definitions
	switch n := s.(type) {
	case *ast.AssignStmt:
		locset := b.writtenLocations(n.Left)
		out = in.recordWrite(locset, at)

	case *ast.BlockStmt:
		out = b.walkStmts(n.Components, at, in)

	case *ast.IfStmt:
		thenOut := b.walkStmt(n.Then, at.AtNode(n.Then), in)
		var elseOut *Definitions
		if n.Else != nil {
			elseOut = b.walkStmt(n.Else, at.AtNode(n.Else), in)
		} else {
			elseOut = in
		}
		out = thenOut.Join(elseOut)

	case *ast.SwitchStmt:
		var joined *Definitions
		for _, c := range n.Cases {
			var cOut *Definitions
			if c.Body != nil {
				cOut = b.walkStmt(c.Body, at.AtNode(c.Body), in)
			} else {
				cOut = in
			}
			if joined == nil {
				joined = cOut
			} else {
				joined = joined.Join(cOut)
			}
		}
		if joined == nil {
			joined = in
		}
		out = joined

	case *ast.ReturnStmt, *ast.ExitStmt:
		out = unreachableDefinitions()

	case *ast.CallStmt, *ast.EmptyStmt:
		out = in

	default:
		out = in
	}

	b.all.set(at, out)
	return out
}

// writtenLocations computes the LocationSet written by an assignment's
// LHS through whole/field/lastIndex/constant-index projections. It
// records no validity-bit projection, and an index that is not a
// constant, like a slice, is treated as writing its whole base.
func (b *Builder) writtenLocations(lhs ast.Expr) storage.LocationSet {
	switch e := lhs.(type) {
	case *ast.PathExpression:
		if st, ok := b.storage.GetStorage(e.Path); ok {
			return storage.FromStorage(st)
		}
		return storage.Empty

	case *ast.MemberExpr:
		base := b.writtenLocations(e.Expr)
		switch e.Member {
		case "lastIndex":
			return base.GetArrayLastIndex()
		default:
			return base.GetField(e.Member)
		}

	case *ast.ArrayIndexExpr:
		base := b.writtenLocations(e.Left)
		if i, ok := e.ConstIndex(); ok {
			return base.GetIndex(i)
		}
		return base

	case *ast.SliceExpr:
		return b.writtenLocations(e.E0)

	default:
		return storage.Empty
	}
}
