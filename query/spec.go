package query

import (
	"github.com/rowql/rowql"
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/pathref"
)

// ColumnFlag records what role a column plays.
type ColumnFlag uint32

const (
	ColOutput ColumnFlag = 1 << iota
	ColFilter
	ColAggregate
	ColJoined
	ColIndexed
	ColPivotResult
)

func (f ColumnFlag) Has(bit ColumnFlag) bool { return f&bit != 0 }

// Column is {name, root expression, flags, positional index, value-slot
// index}.
type Column struct {
	Name  string
	Root  *expr.Expr
	Flags ColumnFlag
	Index int
	Slot  int

	// JoinEqualityExpr is set on an Indexed column when a where[A==B]
	// predicate identified the opposite-side expression as this
	// column's join equality key.
	JoinEqualityExpr *expr.Expr
}

// JoinKeyPair is one where[A==B] equality the row engine uses to build
// and probe the join index: MainExpr is evaluated against the main row,
// JoinExpr against a join-scope row, and matching values bucket
// together. Recorded independent of whether a declared column's root
// happens to equal the join-side expression (see Column.JoinEqualityExpr
// for that narrower, column-marking case).
type JoinKeyPair struct {
	MainExpr *expr.Expr
	JoinExpr *expr.Expr
}

// SortKey is one element of a sort(...) directive.
type SortKey struct {
	Expr       *expr.Expr
	Descending bool
}

// PivotSpec is the parsed pivot(names, values[, jagged]) directive.
type PivotSpec struct {
	NamesExpr  *expr.Expr
	ValuesExpr *expr.Expr
	Jagged     bool
}

// QuerySpec is the parsed, type-inferred, validated query plan.
type QuerySpec struct {
	Columns []*Column

	MainRefs *pathref.Registry
	JoinRefs *pathref.Registry

	InPath    string
	JoinPath  string
	JoinOuter bool

	InHeader   bool
	JoinHeader bool
	OutHeader  bool

	RootCutoff int

	CaseSensitive bool

	FirstN int // 0 means unset
	TopN   int // 0 means unset

	Distinct bool
	SortKeys []SortKey
	Pivot    *PivotSpec
	Where    []*expr.Expr
	SyncSpec []string

	Help bool

	// JoinColumns holds the columns hoisted into the synthesized join
	// sub-query during post-processing.
	JoinColumns []*Column

	// JoinKeys holds every where[A==B] join equality detected during
	// post-processing, in declaration order.
	JoinKeys []JoinKeyPair
}

func NewQuerySpec() *QuerySpec {
	return &QuerySpec{
		MainRefs:   pathref.NewRegistry(),
		JoinRefs:   pathref.NewRegistry(),
		InHeader:   true,
		JoinHeader: true,
		OutHeader:  true,
	}
}

// OutputColumns returns the columns that produce CSV fields, in
// declaration order.
func (q *QuerySpec) OutputColumns() []*Column {
	var out []*Column
	for _, c := range q.Columns {
		if c.Flags.Has(ColOutput) {
			out = append(out, c)
		}
	}
	return out
}

// IsStreaming reports whether the query needs no buffering: no distinct,
// no sort, no aggregate.
func (q *QuerySpec) IsStreaming() bool {
	if q.Distinct || len(q.SortKeys) > 0 {
		return false
	}
	for _, c := range q.Columns {
		if c.Flags.Has(ColAggregate) {
			return false
		}
	}
	return true
}

// NeedsGatherDataPass reports whether a pre-computed-facts pass is
// required: currently, jagged pivot column discovery.
func (q *QuerySpec) NeedsGatherDataPass() bool {
	return q.Pivot != nil && q.Pivot.Jagged
}

// SlotCount returns the number of row value slots needed: one per
// Output-or-Aggregate column.
func (q *QuerySpec) SlotCount() int {
	n := 0
	for _, c := range q.Columns {
		if c.Flags.Has(ColOutput) || c.Flags.Has(ColAggregate) {
			n++
		}
	}
	return n
}

// ZeroRow allocates a row sized for this spec's slots.
func (q *QuerySpec) ZeroRow() expr.Row {
	row := make(expr.Row, q.SlotCount())
	for i := range row {
		row[i] = rowql.UnknownValue
	}
	return row
}
