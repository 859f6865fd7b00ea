// Package rowengine drives one query's plan end to end: it wires a
// query.QuerySpec's path references into a match.Matcher, evaluates each
// committed row's columns, probes the optional join index, accumulates
// pivot partitions and aggregate groups, and finally sorts/limits/emits
// the finished rows in output-column order.
package rowengine

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/match"
	"github.com/rowql/rowql/query"
)

// Driver opens one input stream and feeds every event it produces to
// emit, matching the shape input.Open already returns.
type Driver func(emit func(match.Event)) error

// Engine is one query's runtime state.
type Engine struct {
	spec *query.QuerySpec

	mainMatcher *match.Matcher
	ic          *engineCtx

	join *joinIndex

	pivot *pivotState

	groups     map[string]*group
	groupOrder []string

	buffer []expr.Row

	// matchedCount and outputCount are read concurrently by cli's progress
	// redraw goroutine while Run's goroutine keeps mutating them, so both
	// sides go through atomic ops rather than a mutex.
	matchedCount atomic.Int64
	outputCount  atomic.Int64
	stopped      bool

	// Emit is called once per finished row, in spec.OutputColumns() order.
	// Set by the caller (cli) before Run.
	Emit func(row []rowql.Value)
}

// New builds an Engine for spec. The caller still needs to call
// BuildJoinIndex (if spec.JoinPath != "") before Run.
func New(spec *query.QuerySpec) *Engine {
	e := &Engine{
		spec:   spec,
		groups: make(map[string]*group),
	}
	e.mainMatcher = match.NewMatcher(spec.MainRefs.All())
	e.mainMatcher.SetRootCutoff(spec.RootCutoff)
	e.mainMatcher.SetCaseFold(!spec.CaseSensitive)
	e.ic = &engineCtx{m: e.mainMatcher}
	if spec.Pivot != nil {
		e.pivot = newPivotState(spec)
		e.mainMatcher.SetDepthObserver(func(d int) { e.pivot.observeDepth(e, d) })
	}
	return e
}

// engineCtx adapts a match.Matcher (plus a running row counter) to
// expr.ImmediateContext. Every row this matcher commits fires from a
// start-tag event (see match.Matcher.maybeEmit), so IsNodeStart is
// always true and IsNodeEnd always false here; nodeend() has no way to
// observe a true value under this matcher's commit rule.
type engineCtx struct {
	m         *match.Matcher
	rowNum    int
	pivotPath string
}

func (c *engineCtx) CurrentPath() string       { return c.m.Path() }
func (c *engineCtx) CurrentDepth() int         { return c.m.Depth() }
func (c *engineCtx) CurrentNodeNum() int       { return c.m.NodeNum() }
func (c *engineCtx) CurrentNodeName() string   { return c.m.NodeName() }
func (c *engineCtx) IsNodeStart() bool         { return true }
func (c *engineCtx) IsNodeEnd() bool           { return false }
func (c *engineCtx) CurrentLineNum() int       { return c.m.LineNum() }
func (c *engineCtx) CurrentRowNum() int        { return c.rowNum }
func (c *engineCtx) CurrentPivotPath() string  { return c.pivotPath }
func (c *engineCtx) Attribute(name string) (string, bool) { return c.m.Attribute(name) }

// Run drives spec's plan over main (and, if a join was declared, over
// join through BuildJoinIndex having already been called) and invokes
// Emit once per finished output row.
func (e *Engine) Run(main Driver) error {
	if e.spec.JoinPath != "" && e.join == nil {
		return fmt.Errorf("rowengine: join declared but index not built")
	}
	if err := e.mainPass(main); err != nil {
		return err
	}
	e.storedValuesPass()
	return nil
}

// BuildJoinIndex streams the join-side input through a dedicated
// matcher and buckets it by the first detected where[A==B] join
// equality key. Only the first JoinKeys entry drives the index;
// multi-key composite joins are not exercised by any concrete query and
// are left as a documented simplification.
func (e *Engine) BuildJoinIndex(join Driver) error {
	if len(e.spec.JoinKeys) == 0 {
		return nil
	}
	idx, err := buildJoinIndex(e.spec, join)
	if err != nil {
		return err
	}
	e.join = idx
	return nil
}

func (e *Engine) mainPass(open Driver) error {
	e.mainMatcher.Reset()
	e.mainMatcher.OnRow(e.onMainRow)
	emit := func(ev match.Event) {
		if e.stopped {
			return
		}
		e.mainMatcher.Feed(ev)
		if e.mainMatcher.RootStopped() {
			e.stopped = true
		}
	}
	if err := open(emit); err != nil {
		return err
	}
	if e.pivot != nil {
		e.pivot.flush(e)
	}
	return nil
}

// onMainRow fires synchronously from within match.Matcher.Feed whenever
// a row's paths are all matched (or a Sync path short-circuits), while
// every matched Ref's value is still valid — ResetMatch happens right
// after this callback returns.
func (e *Engine) onMainRow() {
	if e.stopped {
		return
	}
	matched := e.matchedCount.Add(1)
	e.ic.rowNum = int(matched)
	if e.spec.FirstN > 0 && matched > int64(e.spec.FirstN) {
		e.stopped = true
		return
	}

	row, err := e.evalNonAggregateColumns()
	if err != nil {
		return
	}

	if e.pivot != nil {
		e.pivot.accumulate(e, row)
		return
	}
	e.dispatchCandidate(row)
}

// evalNonAggregateColumns evaluates every Output column that is not
// itself (or does not contain) an aggregate; aggregate columns are left
// at their zero value here and filled in during the stored-values pass.
func (e *Engine) evalNonAggregateColumns() (expr.Row, error) {
	row := e.spec.ZeroRow()
	for _, c := range e.spec.Columns {
		if !c.Flags.Has(query.ColOutput) || c.Flags.Has(query.ColAggregate) {
			continue
		}
		v, err := expr.Eval(c.Root, row, e.ic)
		if err != nil {
			return nil, err
		}
		row[c.Slot] = v
	}
	return row, nil
}

// dispatchCandidate probes the join index (if any) and routes every
// resulting candidate row through the filter and storage stages.
func (e *Engine) dispatchCandidate(row expr.Row) {
	if e.join == nil {
		e.storeOneCandidate(row, false)
		return
	}
	key, err := expr.Eval(e.join.mainKeyExpr, row, e.ic)
	if err != nil {
		return
	}
	bucket := e.join.buckets[key.AsString()]
	if len(bucket) == 0 {
		if !e.spec.JoinOuter {
			return
		}
		e.join.applyEmpty()
		e.storeOneCandidate(row, true)
		return
	}
	for _, rec := range bucket {
		e.join.apply(rec)
		e.storeOneCandidate(row, false)
	}
}

// storeOneCandidate re-evaluates join-scope-dependent output columns
// (now that the join refs carry a probed value), applies the where
// filter, and routes the surviving row into streaming emission, the
// sort buffer, or an aggregate/distinct group.
func (e *Engine) storeOneCandidate(row expr.Row, emptyOuterJoin bool) {
	for _, c := range e.spec.Columns {
		if !c.Flags.Has(query.ColOutput) || c.Flags.Has(query.ColAggregate) {
			continue
		}
		if !usesJoinScope(c.Root) {
			continue
		}
		v, err := expr.Eval(c.Root, row, e.ic)
		if err == nil {
			row[c.Slot] = v
		}
	}
	for _, jc := range e.spec.JoinColumns {
		v, err := expr.Eval(jc.Root, row, e.ic)
		if err == nil && jc.Slot >= 0 && jc.Slot < len(row) {
			row[jc.Slot] = v
		}
	}

	for _, w := range e.spec.Where {
		if emptyOuterJoin && w.Flags.Has(expr.FlagJoinEqualityWhere) {
			continue
		}
		v, err := expr.Eval(w, row, e.ic)
		if err != nil || !v.AsBoolean() {
			return
		}
	}

	if hasGrouping(e.spec) {
		e.storeGrouped(row)
		return
	}
	if len(e.spec.SortKeys) > 0 {
		e.buffer = append(e.buffer, row)
		return
	}
	// no sort/group stage buffers this row for finish() to cap, so
	// top(n) has to be enforced here directly against rows already
	// streamed out.
	if e.spec.TopN > 0 && e.outputCount.Load() >= int64(e.spec.TopN) {
		e.stopped = true
		return
	}
	e.emitFinal(row)
}

func usesJoinScope(e *expr.Expr) bool {
	found := false
	expr.Walk(e, func(n *expr.Expr) {
		if n.Flags.Has(expr.FlagHasJoinPathRef) {
			found = true
		}
	})
	return found
}

func hasGrouping(spec *query.QuerySpec) bool {
	if spec.Distinct {
		return true
	}
	for _, c := range spec.Columns {
		if c.Flags.Has(query.ColAggregate) {
			return true
		}
	}
	return false
}

// storedValuesPass runs after the main pass has finished: it projects
// aggregate results into their owning groups, orders whatever rows are
// pending (grouped or plain sort-buffered), applies top(N), and emits.
func (e *Engine) storedValuesPass() {
	if hasGrouping(e.spec) {
		e.projectGroupResults()
		rows := make([]expr.Row, 0, len(e.groupOrder))
		for _, key := range e.groupOrder {
			rows = append(rows, e.groups[key].row)
		}
		e.finish(rows)
		return
	}
	e.finish(e.buffer)
}

func (e *Engine) finish(rows []expr.Row) {
	if len(e.spec.SortKeys) > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return e.less(rows[i], rows[j]) })
	}
	if e.spec.TopN > 0 && len(rows) > e.spec.TopN {
		rows = rows[:e.spec.TopN]
	}
	for _, row := range rows {
		e.emitFinal(row)
	}
}

func (e *Engine) less(a, b expr.Row) bool {
	for _, k := range e.spec.SortKeys {
		va, _ := expr.Eval(k.Expr, a, e.ic)
		vb, _ := expr.Eval(k.Expr, b, e.ic)
		c := va.Compare(vb)
		if c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

func (e *Engine) emitFinal(row expr.Row) {
	e.outputCount.Add(1)
	if e.Emit == nil {
		return
	}
	out := make([]rowql.Value, 0, len(e.spec.Columns))
	for _, c := range e.spec.OutputColumns() {
		out = append(out, row[c.Slot])
	}
	e.Emit(out)
}

// MatchedCount returns the number of rows the matcher committed, before
// join multiplication or filtering — the "N matched" figure of the
// stats line. Safe to call concurrently with Run, for progress reporting.
func (e *Engine) MatchedCount() int { return int(e.matchedCount.Load()) }

// OutputCount returns the number of rows actually emitted. Safe to call
// concurrently with Run, for progress reporting.
func (e *Engine) OutputCount() int { return int(e.outputCount.Load()) }
