package rowengine

import (
	"strings"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/operator"
	"github.com/rowql/rowql/query"
)

// group is one distinct/aggregate bucket: the row that will eventually
// be emitted (non-aggregate columns already filled in from the first
// row seen for this key) plus one Aggregator per aggregate column,
// keyed by the node's AggIndex so composed aggregate expressions with
// more than one aggregate node update independently.
type group struct {
	row  expr.Row
	aggs map[int]expr.Aggregator
}

// groupKey concatenates every non-aggregate output column's value;
// distinct-only queries group on every output column since none are
// aggregates.
func groupKey(spec *query.QuerySpec, row expr.Row) string {
	var sb strings.Builder
	for _, c := range spec.Columns {
		if !c.Flags.Has(query.ColOutput) || c.Flags.Has(query.ColAggregate) {
			continue
		}
		sb.WriteString(row[c.Slot].AsString())
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

// storeGrouped finds or creates row's group and folds it into every
// aggregate column's accumulator.
func (e *Engine) storeGrouped(row expr.Row) {
	key := groupKey(e.spec, row)
	g, ok := e.groups[key]
	if !ok {
		g = &group{row: row, aggs: make(map[int]expr.Aggregator)}
		e.groups[key] = g
		e.groupOrder = append(e.groupOrder, key)
	}
	e.updateAggregates(g, row)
}

// updateAggregates walks every aggregate output column's expression
// tree and consumes row's values into whichever aggregator owns each
// aggregate node, creating it on first use. Two-argument aggregates
// (cov/corr) are driven via PairAggregator instead of Consume.
func (e *Engine) updateAggregates(g *group, row expr.Row) {
	for _, c := range e.spec.Columns {
		if !c.Flags.Has(query.ColAggregate) {
			continue
		}
		expr.Walk(c.Root, func(n *expr.Expr) {
			if n.Kind != expr.KindOperator || !n.Op.Flags.Has(operator.FlagAggregate) {
				return
			}
			agg, ok := g.aggs[n.AggIndex]
			if !ok {
				agg = expr.NewAggregator(n.Op.AggKind)
				g.aggs[n.AggIndex] = agg
			}
			consumeInto(agg, n, row, e.ic)
		})
	}
}

// consumeInto feeds one row's values into agg. A PairAggregator (cov,
// corr) reads both of the node's children as reals directly; every
// other aggregate reads its single child through the normal Eval path
// (count() with no argument consumes an unconditional "seen" marker).
func consumeInto(agg expr.Aggregator, n *expr.Expr, row expr.Row, ic expr.ImmediateContext) {
	if pa, ok := agg.(expr.PairAggregator); ok && len(n.Children) == 2 {
		x, errX := expr.Eval(n.Children[0], row, ic)
		y, errY := expr.Eval(n.Children[1], row, ic)
		if errX == nil && errY == nil {
			pa.ConsumePair(x.AsReal(), y.AsReal())
		}
		return
	}
	if len(n.Children) == 0 {
		agg.Consume(rowql.NewInteger(1))
		return
	}
	v, err := expr.Eval(n.Children[0], row, ic)
	if err != nil {
		return
	}
	agg.Consume(v)
}

// projectGroupResults evaluates every aggregate column's root
// expression once per group, having first written each aggregate
// node's finished Result into its cached slot via SetCachedAggregate so
// Eval's KindOperator/FlagAggregate branch reads it instead of the
// zero-value default used during the main pass.
func (e *Engine) projectGroupResults() {
	for _, g := range e.groups {
		for _, c := range e.spec.Columns {
			if !c.Flags.Has(query.ColAggregate) {
				continue
			}
			expr.Walk(c.Root, func(n *expr.Expr) {
				if n.Kind != expr.KindOperator || !n.Op.Flags.Has(operator.FlagAggregate) {
					return
				}
				if agg, ok := g.aggs[n.AggIndex]; ok {
					expr.SetCachedAggregate(n, agg.Result())
				} else {
					expr.SetCachedAggregate(n, rowql.NewReal(0))
				}
			})
			v, err := expr.Eval(c.Root, g.row, e.ic)
			if err == nil {
				g.row[c.Slot] = v
			}
		}
	}
}
