package defuse

import (
	"fmt"

	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/config"
	"github.com/saruga/netir-defuse/internal/defs"
	"github.com/saruga/netir-defuse/internal/diagnostic"
	"github.com/saruga/netir-defuse/internal/methodinst"
	"github.com/saruga/netir-defuse/internal/point"
	"github.com/saruga/netir-defuse/internal/refmap"
	"github.com/saruga/netir-defuse/internal/storage"
	"github.com/saruga/netir-defuse/internal/typemap"
	"go.uber.org/zap"
)

// FindUses is the flow-sensitive, context-sensitive, inter-procedural
// visitor that discovers which assignments and statement-level calls
// produce values later read, and warns about reads of possibly
// uninitialized storage. A fresh instance is constructed for every
// inter-procedural callee (see fork), sharing hasUses and allDefs by
// pointer with every other instance analyzing the same unit.
//
// context, the ProgramPoint naming the current call site, is carried
// as a field for parity with the distilled spec, but this
// implementation never grows it past point.BeforeStart: internal/defs's
// write-set builder computes each action/function's Definitions once,
// call-site independently, rooted at before-start (see ComputeAction,
// ComputeFunction). A context grown via point.ProgramPoint.Pushed would
// carry a longer Context slice than any key the builder ever populated,
// so every AllDefinitions lookup would silently miss. Keeping context
// at before-start everywhere keeps every lookup, at any recursion
// depth, aligned with what the builder actually computed.
type FindUses struct {
	refMap  *refmap.ReferenceMap
	typeMap *typemap.TypeMap
	storage *storage.StorageMap
	allDefs *defs.AllDefinitions
	hasUses *HasUses
	diags   *diagnostic.DiagnosticList
	log     *zap.Logger
	solver  methodinst.TableApplySolver
	opts    config.Options

	context       point.ProgramPoint
	currentPoint  point.ProgramPoint
	readLocations map[ast.Expr]storage.LocationSet

	lhs bool
}

func newFindUses(allDefs *defs.AllDefinitions, refMap *refmap.ReferenceMap, typeMap *typemap.TypeMap, diags *diagnostic.DiagnosticList, log *zap.Logger, opts config.Options) *FindUses {
	if log == nil {
		log = zap.NewNop()
	}
	return &FindUses{
		refMap:        refMap,
		typeMap:       typeMap,
		storage:       allDefs.StorageMap(),
		allDefs:       allDefs,
		hasUses:       NewHasUses(),
		diags:         diags,
		log:           log,
		opts:          opts,
		readLocations: map[ast.Expr]storage.LocationSet{},
	}
}

// fork builds a child visitor for inter-procedural recursion: it
// shares hasUses, allDefs, and the read-only collaborators by pointer,
// but starts with independent lhs/currentPoint state and
// its own readLocations cache, matching a fresh re-entry into the
// callee's IR the way the original constructs a new visitor instance
// per call.
func (f *FindUses) fork() *FindUses {
	return &FindUses{
		refMap:        f.refMap,
		typeMap:       f.typeMap,
		storage:       f.storage,
		allDefs:       f.allDefs,
		hasUses:       f.hasUses,
		diags:         f.diags,
		log:           f.log,
		opts:          f.opts,
		readLocations: map[ast.Expr]storage.LocationSet{},
	}
}

// setReads records the LocationSet read directly by expr (excluding
// reads performed by its sub-expressions, which are recorded against
// those sub-expressions instead, per I1).
func (f *FindUses) setReads(expr ast.Expr, loc storage.LocationSet) {
	f.readLocations[expr] = loc
}

// getReads returns the LocationSet previously recorded for expr via
// setReads. It is a bug to ask for an expression's reads before it has
// been visited.
func (f *FindUses) getReads(expr ast.Expr) storage.LocationSet {
	if expr == nil {
		return storage.Empty
	}
	loc, ok := f.readLocations[expr]
	bugCheckNode(ok, expr, "no location set known for expression")
	return loc
}

// registerUses checks expr's recorded read set against the reaching
// definitions at currentPoint, optionally warning when it may reach
// from before-start, and records the reaching points in hasUses.
//
// final is false when expr is a non-final sub-expression of its
// immediate parent (the base of a Member, or the left child of an
// ArrayIndex) — the call is then a no-op, since the
// enclosing expression will report on its behalf with a location set
// already projected through the member/index.
func (f *FindUses) registerUses(expr ast.Expr, report bool, final bool) {
	if !final {
		return
	}
	d := f.allDefs.Get(f.currentPoint, true)
	if d.IsUnreachable() {
		return
	}
	read := f.getReads(expr)
	if read.IsEmpty() {
		return
	}
	points := d.PointsFor(read)
	if report && !f.lhs && points.ContainsBeforeStart() {
		typ := f.typeMap.GetType(expr, true)
		message := fmt.Sprintf("%s may not be completely initialized", exprName(expr))
		if _, isBase := typ.(*ast.BaseType); isBase {
			message = fmt.Sprintf("%s may be uninitialized", exprName(expr))
		}
		f.diags.AddWarning(diagnostic.CodeUninitializedUse, exprName(expr), message)
	}
	f.hasUses.Add(points)
}

// exprName renders expr as a short label for diagnostics, without
// attempting to reproduce full surface syntax (pretty-printing a
// surface grammar is out of scope).
func exprName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.PathExpression:
		return e.Path.Name
	case *ast.MemberExpr:
		return exprName(e.Expr) + "." + e.Member
	case *ast.ArrayIndexExpr:
		return exprName(e.Left) + "[]"
	case *ast.SliceExpr:
		return exprName(e.E0)
	default:
		return "<expr>"
	}
}

// visitExpr dispatches on expr's concrete kind, computing and
// recording its direct read set (setReads) and, for most kinds,
// registering that read against the reaching definitions
// (registerUses). final carries whether expr is a final read relative
// to its immediate parent; callers visiting the base of a Member or
// the left child of an ArrayIndex pass false.
func (f *FindUses) visitExpr(expr ast.Expr, final bool) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		f.setReads(expr, storage.Empty)

	case *ast.TypeNameExpression:
		f.setReads(expr, storage.Empty)

	case *ast.PathExpression:
		f.visitPathExpression(e, final)

	case *ast.MemberExpr:
		f.visitMember(e, final)

	case *ast.ArrayIndexExpr:
		f.visitArrayIndex(e, final)

	case *ast.SliceExpr:
		f.visitSlice(e, final)

	case *ast.MuxExpr:
		bugCheckNode(!f.lhs, expr, "unexpected operation on LHS")
		f.visitExpr(e.Condition, true)
		f.visitExpr(e.TrueExpr, true)
		f.visitExpr(e.FalseExpr, true)
		f.setReads(expr, storage.Empty)
		f.registerUses(expr, true, final)

	case *ast.UnaryExpr:
		bugCheckNode(!f.lhs, expr, "unexpected operation on LHS")
		f.visitExpr(e.Operand, true)
		f.setReads(expr, storage.Empty)
		f.registerUses(expr, true, final)

	case *ast.BinaryExpr:
		bugCheckNode(!f.lhs, expr, "unexpected operation on LHS")
		f.visitExpr(e.Left, true)
		f.visitExpr(e.Right, true)
		f.setReads(expr, storage.Empty)
		f.registerUses(expr, true, final)

	case *ast.CallExpr:
		f.visitCall(e, final)

	default:
		bugCheckNode(false, expr, "unhandled expression kind %T", expr)
	}
}

func (f *FindUses) visitPathExpression(e *ast.PathExpression, final bool) {
	if f.lhs {
		f.setReads(e, storage.Empty)
		return
	}
	var result storage.LocationSet
	if st, ok := f.storage.GetStorage(e.Path); ok {
		result = storage.FromStorage(st)
	} else {
		result = storage.Empty
	}
	f.setReads(e, result)
	f.registerUses(e, true, final)
}

func (f *FindUses) visitMember(e *ast.MemberExpr, final bool) {
	f.visitExpr(e.Expr, false)

	if _, ok := e.Expr.(*ast.TypeNameExpression); ok {
		// An enum-constant-like access on a named type: no storage.
		f.setReads(e, storage.Empty)
		f.registerUses(e, true, final)
		return
	}
	if f.solver.IsHit(e) || f.solver.IsActionRun(e) {
		// The enclosing call already accounts for the table hit.
		return
	}

	base := f.getReads(e.Expr)
	baseType := f.typeMap.GetType(e.Expr, true)
	if _, isStack := baseType.(*ast.StackType); isStack {
		switch e.Member {
		case "next":
			f.setReads(e, base)
			f.registerUses(e, false, final)
			if !f.lhs {
				f.diags.AddWarning(diagnostic.CodeUninitializedStackNext, exprName(e),
					fmt.Sprintf("%s: reading uninitialized value", exprName(e)))
			}
			return
		case "last":
			f.setReads(e, base)
			f.registerUses(e, false, final)
			return
		case "lastIndex":
			f.setReads(e, base.GetArrayLastIndex())
			f.registerUses(e, false, final)
			return
		}
	}

	f.setReads(e, base.GetField(e.Member))
	f.registerUses(e, true, final)
}

func (f *FindUses) visitArrayIndex(e *ast.ArrayIndexExpr, final bool) {
	if i, ok := e.ConstIndex(); ok {
		if f.lhs {
			f.setReads(e, storage.Empty)
		} else {
			f.visitExpr(e.Left, false)
			base := f.getReads(e.Left)
			f.setReads(e, base.GetIndex(i))
		}
	} else {
		// A non-constant index is modeled as a read/write of the
		// whole array, on either side of an assignment.
		save := f.lhs
		f.lhs = false
		f.visitExpr(e.Right, true)
		f.visitExpr(e.Left, false)
		base := f.getReads(e.Left)
		f.lhs = save
		f.setReads(e, base)
	}
	f.registerUses(e, true, final)
}

func (f *FindUses) visitSlice(e *ast.SliceExpr, final bool) {
	if f.lhs {
		f.hasUses.WatchForOverwrites(e.High, e.Low)
	}
	save := f.lhs
	f.lhs = false // slicing reads the unmodified bits, even on the LHS.
	f.visitExpr(e.E0, true)
	base := f.getReads(e.E0)
	f.setReads(e, base)
	f.registerUses(e, true, final)
	f.lhs = save
	f.hasUses.DoneWatching()
}

// checkHeaderFieldWrite walks the LHS structure of an assignment from
// parent down to its base, deriving parent's LocationSet. expr stays
// fixed at the original top-level LHS throughout the recursion: at
// every level where parent's type is a header and expr is a strict
// sub-expression of parent (writing a field rather than the whole
// header), it records a read of that header's validity bit against
// expr, overwriting whatever read set the ordinary traversal had
// already computed for it.
func (f *FindUses) checkHeaderFieldWrite(expr, parent ast.Expr) storage.LocationSet {
	var loc storage.LocationSet
	switch p := parent.(type) {
	case *ast.MemberExpr:
		loc = f.checkHeaderFieldWrite(expr, p.Expr)
		loc = loc.GetField(p.Member)
	case *ast.ArrayIndexExpr:
		loc = f.checkHeaderFieldWrite(expr, p.Left)
		if i, ok := p.ConstIndex(); ok {
			loc = loc.GetIndex(i)
		}
	case *ast.PathExpression:
		if st, ok := f.storage.GetStorage(p.Path); ok {
			loc = storage.FromStorage(st)
		} else {
			loc = storage.Empty
		}
	case *ast.SliceExpr:
		loc = f.checkHeaderFieldWrite(expr, p.E0)
	default:
		bugCheckNode(false, parent, "unexpected expression on LHS")
	}

	typ := f.typeMap.GetType(parent, true)
	if _, isHeader := typ.(*ast.HeaderType); isHeader {
		if expr != parent {
			loc = loc.GetValidField()
			f.setReads(expr, loc)
			f.registerUses(expr, true, true)
		}
	}
	return loc
}

// visitCall dispatches a call expression to the built-in or general
// handling path. The call's own Method expression (the callee name or
// member-access chain selecting it) is never visited on its own: for a
// bare action/table/extern name it resolves to no storage either way,
// and for a `t.apply`/`ext.method` member the original treats a
// method-typed member as handled entirely by its enclosing call.
// Skipping it sidesteps needing a callable type in this module's type
// system while producing the same (empty) contribution to reads.
func (f *FindUses) visitCall(call *ast.CallExpr, final bool) {
	mi := methodinst.Resolve(call, f.refMap, f.typeMap)
	if mi.Kind == methodinst.KindBuiltIn {
		f.visitBuiltinCall(call, mi)
		return
	}
	f.visitGeneralCall(call, mi)
}

func (f *FindUses) visitBuiltinCall(call *ast.CallExpr, mi *methodinst.MethodInstance) {
	// The original reaches bim->appliedTo's read set as a side effect
	// of visiting the call's method-access chain; since that chain
	// visit is skipped here, visit the base explicitly, as a non-final
	// sub-expression of the (skipped) member access.
	f.visitExpr(mi.AppliedTo, false)
	base := f.getReads(mi.AppliedTo)

	switch mi.BuiltInName {
	case "push_front", "pop_front":
		f.setReads(call, base)
		f.registerUses(call, !f.opts.SuppressStackShiftWarnings, true)
	case "isValid":
		f.setReads(call, base.GetValidField())
		f.registerUses(call, true, true)
	default: // setValid, setInvalid
		f.setReads(call, storage.Empty)
		f.registerUses(call, true, true)
	}
}

// visitGeneralCall handles an action call, table/control apply, or
// extern method call: copy-in reads for every non-Out argument happen
// before recursing into the callee(s), copy-out writes for every
// Out/InOut argument happen after, and the call expression itself
// contributes no read set of its own.
func (f *FindUses) visitGeneralCall(call *ast.CallExpr, mi *methodinst.MethodInstance) {
	if mi.Substitution == nil {
		for _, a := range call.Args {
			f.visitExpr(a, true)
		}
		f.setReads(call, storage.Empty)
		return
	}

	params := mi.Substitution.Parameters()
	args := mi.Substitution.Args()
	directionOf := func(i int) ast.Direction {
		if i < len(params) && params[i] != nil {
			return params[i].Direction
		}
		return ast.DirIn
	}

	for i, a := range args {
		if directionOf(i) != ast.DirOut {
			f.visitExpr(a, true)
		}
	}

	callees := f.calleesOf(mi)
	if len(callees) > 0 {
		f.log.Debug("recursing into callees", zap.Int("count", len(callees)))
		for _, callee := range callees {
			f.visitCallee(callee)
		}
	}

	for i, a := range args {
		if d := directionOf(i); d == ast.DirOut || d == ast.DirInOut {
			save := f.lhs
			f.lhs = true
			f.visitExpr(a, true)
			f.lhs = save
		}
	}

	f.setReads(call, storage.Empty)
}

// calleesOf determines which declarations a resolved call may recurse
// into. A control's own apply (ApplyMethod with IsTableApply false) and
// a function call are both intentionally left unsummarized: the
// original excludes them from inter-procedural recursion, treating
// their effect as fully captured by the surrounding copy-in/copy-out
// argument handling. A function's own body is instead analyzed
// proactively, once, as a virtual method (see visitVirtualMethods) or
// directly as its own top-level Process unit — never by walking into it
// from a call site.
func (f *FindUses) calleesOf(mi *methodinst.MethodInstance) []ast.Declaration {
	switch mi.Kind {
	case methodinst.KindActionCall:
		if mi.Action == nil {
			return nil
		}
		return []ast.Declaration{mi.Action}
	case methodinst.KindFunctionCall:
		return nil
	case methodinst.KindApplyMethod:
		if !mi.IsTableApply {
			return nil
		}
		if t, ok := mi.Object.(*ast.TableDecl); ok {
			return []ast.Declaration{t}
		}
		return nil
	case methodinst.KindExternMethod:
		return mi.MayCall()
	default:
		return nil
	}
}

// visitCallee forks a child FindUses and applies it to decl. Actions
// and functions root the child at point.BeforeStart, matching
// ComputeAction/ComputeFunction's call-site-independent precomputation.
// Tables are different: the write-set builder never computes any
// Definitions for a TableDecl's Key/ActionList nodes, so the child must
// inherit the call site's own currentPoint, against which its key
// expressions' reads are resolved directly.
func (f *FindUses) visitCallee(decl ast.Declaration) {
	callSite := f.currentPoint
	child := f.fork()
	switch d := decl.(type) {
	case *ast.ActionDecl:
		child.VisitAction(d)
	case *ast.FunctionDecl:
		child.VisitFunction(d)
	case *ast.TableDecl:
		child.currentPoint = callSite
		child.VisitTable(d)
	default:
		bugCheckNode(false, decl, "unexpected callee kind %T", decl)
	}
}

// visitStmt dispatches on s's concrete kind. Reachability is never
// tracked as a field on FindUses: it is read directly off the write-set
// builder's own Definitions at currentPoint, since the builder already
// folds return/exit and branch-join unreachability into every point it
// populated, and duplicating that computation here risks drifting from
// it.
func (f *FindUses) visitStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	if !f.allDefs.Get(f.currentPoint, true).IsUnreachable() {
		switch n := s.(type) {
		case *ast.AssignStmt:
			f.lhs = true
			f.visitExpr(n.Left, true)
			f.checkHeaderFieldWrite(n.Left, n.Left)
			f.lhs = false
			f.visitExpr(n.Right, true)

		case *ast.ReturnStmt:
			if n.Expression != nil {
				f.visitExpr(n.Expression, true)
			}

		case *ast.ExitStmt:
			// no reads; the write-set builder already marks every
			// point after this one unreachable.

		case *ast.CallStmt:
			f.visitExpr(n.Call, true)

		case *ast.BlockStmt:
			for _, c := range n.Components {
				f.visitStmt(c)
			}

		case *ast.IfStmt:
			f.visitExpr(n.Condition, true)
			saveCurrent := f.currentPoint
			f.visitStmt(n.Then)
			if n.Else != nil {
				f.currentPoint = saveCurrent
				f.visitStmt(n.Else)
			}

		case *ast.SwitchStmt:
			f.visitExpr(n.Selector, true)
			saveCurrent := f.currentPoint
			for _, c := range n.Cases {
				if c.Body != nil {
					f.currentPoint = saveCurrent
					f.visitStmt(c.Body)
				}
			}

		case *ast.EmptyStmt:
			// nothing to do

		default:
			bugCheckNode(false, s, "unhandled statement kind %T", s)
		}
	}
	f.currentPoint = f.context.AtNode(s)
}

// visitVirtualMethods analyzes the initializer body of every local
// instance as a virtual method, before the enclosing unit's own body is
// visited, matching the original's proactive analysis of constructor
// arguments that are themselves extern implementations.
func (f *FindUses) visitVirtualMethods(locals []ast.Declaration) {
	for _, l := range locals {
		inst, ok := l.(*ast.Instance)
		if !ok || inst.Initializer == nil {
			continue
		}
		child := f.fork()
		child.VisitFunction(inst.Initializer)
	}
}

// checkOutParameters records uses of every Out/InOut apply parameter's
// whole storage unconditionally, then separately warns when any part of
// the parameter's storage other than header validity bits may still
// reach from before-start, i.e. was never written along some path
// through the unit. At most one warning is emitted per parameter.
func (f *FindUses) checkOutParameters(blockName string, params *ast.ParameterList, d *defs.Definitions) {
	if params == nil {
		return
	}
	for _, p := range params.Parameters {
		if p.Direction != ast.DirOut && p.Direction != ast.DirInOut {
			continue
		}
		st, ok := f.storage.GetStorage(p.Name)
		if !ok {
			continue
		}
		whole := storage.FromStorage(st)
		f.hasUses.Add(d.PointsFor(whole))

		if f.typeMap.TypeIsEmpty(st.Type()) {
			continue
		}
		// Expand before RemoveHeaders: for a composite parameter (a
		// struct of headers, the canonical "out headers hdr" shape),
		// the validity bits RemoveHeaders needs to drop only appear
		// once the whole-object location is unfolded into its
		// constituent fields — filtering first would let the
		// still-whole struct location straight through, and PointsFor
		// would then re-expand it into never-written $valid locations
		// on its own, and the parameter would be reported even with
		// every field written.
		checked := whole.Expand().RemoveHeaders()
		points := d.PointsFor(checked)
		if points.ContainsBeforeStart() {
			f.diags.AddWarning(diagnostic.CodeUninitializedOutParam, p.Name.Name,
				fmt.Sprintf("out parameter '%s' may be uninitialized when '%s' terminates", p.Name.Name, blockName))
		}
	}
}

// VisitParser analyzes a parser's states, including its locals'
// virtual methods, then checks its apply parameters against the
// write-set builder's already-joined accept/reject Definitions.
func (f *FindUses) VisitParser(p *ast.ParserDecl) {
	f.log.Debug("analyzing parser", zap.String("parser", p.Name.Name))
	f.visitVirtualMethods(p.Locals)
	for _, s := range p.States {
		f.visitState(s)
	}
	out := f.allDefs.Get(f.context.AtNode(p), true)
	f.checkOutParameters(p.Name.Name, p.ApplyParams, out)
}

func (f *FindUses) visitState(s *ast.ParserState) {
	f.currentPoint = point.ProgramPoint{Node: s}
	for _, stmt := range s.Components {
		f.visitStmt(stmt)
	}
	if s.SelectExpression != nil {
		f.visitExpr(s.SelectExpression, true)
	}
}

// VisitControl analyzes a control's apply body, including its locals'
// virtual methods, then checks its apply parameters.
func (f *FindUses) VisitControl(c *ast.ControlDecl) {
	f.log.Debug("analyzing control", zap.String("control", c.Name.Name))
	f.visitVirtualMethods(c.Locals)
	f.visitStmt(c.Body)
	out := f.allDefs.Get(f.currentPoint, true)
	f.checkOutParameters(c.Name.Name, c.ApplyParams, out)
}

// VisitAction analyzes an action's body. It does not check the action's
// Out/InOut parameters itself: Process does that when the action is the
// unit being analyzed, and an action visited from a call site leaves
// them unchecked.
func (f *FindUses) VisitAction(a *ast.ActionDecl) {
	f.log.Debug("analyzing action", zap.String("action", a.Name.Name))
	f.visitStmt(a.Body)
}

// VisitFunction analyzes a function's (or virtual method's) body,
// warns if a non-void function may fall through without returning on
// some path, then checks its Out/InOut parameters.
func (f *FindUses) VisitFunction(fn *ast.FunctionDecl) {
	f.log.Debug("analyzing function", zap.String("function", fn.Name.Name))
	f.visitStmt(fn.Body)

	if _, isVoid := fn.ReturnType.(*ast.VoidType); !isVoid && fn.ReturnType != nil {
		if !f.allDefs.Get(f.currentPoint, true).IsUnreachable() {
			msg := fmt.Sprintf("function '%s' does not return a value on all paths", fn.Name.Name)
			if f.opts.MissingReturnIsError {
				f.diags.AddError(diagnostic.CodeMissingReturn, fn.Name.Name, msg)
			} else {
				f.diags.AddWarning(diagnostic.CodeMissingReturn, fn.Name.Name, msg)
			}
		}
	}

	out := f.allDefs.Get(f.currentPoint, true)
	f.checkOutParameters(fn.Name.Name, fn.Parameters, out)
}

// VisitTable analyzes a table's key expressions and action-list calls.
// Unlike a parser/control/action/function, a table has no Definitions
// of its own in the write-set builder's table: its reads resolve
// against whatever currentPoint the caller set (the call site's point,
// for an inter-procedural visit; point.BeforeStart for a table analyzed
// directly as a top-level Process unit, which is conservative but
// matches there being no preceding control-flow to reach definitions
// from).
func (f *FindUses) VisitTable(t *ast.TableDecl) {
	f.log.Debug("analyzing table", zap.String("table", t.Name.Name))
	for _, k := range t.Key {
		f.visitExpr(k, true)
	}
	for _, entry := range t.ActionList {
		f.visitExpr(entry.Call, true)
	}
}
