// Package expr implements the expression tree: operator nodes referencing
// child expressions, a path reference, a column slot, or a literal value.
// The tree is a DAG — a column or path cited from more than one place
// shares the same *Expr.
package expr

import (
	"github.com/rowql/rowql"
	"github.com/rowql/rowql/operator"
	"github.com/rowql/rowql/pathref"
)

// Kind distinguishes the four leaf/interior shapes a node can take.
type Kind int

const (
	KindOperator Kind = iota
	KindPathRef
	KindColumnRef
	KindLiteral
)

// Flag tracks structural facts set during post-processing, consumed by
// the row engine's join/aggregate-composition validation.
type Flag uint32

const (
	FlagHasAggregate Flag = 1 << iota
	FlagHasInputPathRef
	FlagHasJoinPathRef
	FlagJoinEqualityWhere
	FlagVisited
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Expr is one node of the expression tree.
type Expr struct {
	Kind Kind

	Op       operator.Meta
	Children []*Expr

	PathRef *pathref.Ref

	// ColumnSlot indexes into the row's value vector when Kind ==
	// KindColumnRef; it is assigned by the query package once every
	// column has a final position.
	ColumnSlot int

	Literal rowql.Value

	Type  rowql.Type
	Flags Flag

	// AggIndex is the per-row aggregate-state slot this node owns when
	// Op.Flags has FlagAggregate; set by the query package at parse
	// time, since aggregates are cloned per use.
	AggIndex int

	// UnquotedArgs holds raw argument tokens for operators flagged
	// FlagUnquotedArg (attribute name, pivot column spec, directive
	// file paths) that the parser did not turn into sub-expressions.
	UnquotedArgs []string

	cached rowql.Value
}

func NewLiteral(v rowql.Value) *Expr {
	return &Expr{Kind: KindLiteral, Literal: v, Type: v.Type()}
}

func NewPathRef(ref *pathref.Ref) *Expr {
	flag := FlagHasInputPathRef
	if ref.Scope == pathref.Join {
		flag = FlagHasJoinPathRef
	}
	return &Expr{Kind: KindPathRef, PathRef: ref, Type: rowql.String, Flags: flag}
}

func NewColumnRef(slot int, t rowql.Type) *Expr {
	return &Expr{Kind: KindColumnRef, ColumnSlot: slot, Type: t}
}

func NewOperator(op operator.Meta, children ...*Expr) *Expr {
	e := &Expr{Kind: KindOperator, Op: op, Children: children, Type: op.ResultType}
	for _, c := range children {
		e.Flags |= c.Flags & (FlagHasAggregate | FlagHasInputPathRef | FlagHasJoinPathRef)
	}
	if op.Flags.Has(operator.FlagAggregate) {
		e.Flags |= FlagHasAggregate
	}
	return e
}

// Walk calls f on every node reachable from e exactly once, honoring the
// DAG structure via the Visited flag (cleared again after the walk).
func Walk(e *Expr, f func(*Expr)) {
	walk(e, f)
	clearVisited(e)
}

func walk(e *Expr, f func(*Expr)) {
	if e == nil || e.Flags.Has(FlagVisited) {
		return
	}
	e.Flags |= FlagVisited
	f(e)
	for _, c := range e.Children {
		walk(c, f)
	}
}

func clearVisited(e *Expr) {
	if e == nil || !e.Flags.Has(FlagVisited) {
		return
	}
	e.Flags &^= FlagVisited
	for _, c := range e.Children {
		clearVisited(c)
	}
}

// SetCachedAggregate stores an aggregate node's projected result so the
// next Eval of an expression containing it reads that value instead of
// re-running the (never-implemented-here) live aggregate path. The row
// engine calls this once per group per aggregate node before evaluating
// a column's root expression during the stored-values pass.
func SetCachedAggregate(e *Expr, v rowql.Value) { e.cached = v }

// ContainsAggregate reports whether any node in the subtree rooted at e
// is, or depends on, an aggregate operator.
func ContainsAggregate(e *Expr) bool { return e.Flags.Has(FlagHasAggregate) }

// IsPureJoinSubexpr reports whether e depends only on join-scope path
// references (used by the hoisting pass in the query package).
func IsPureJoinSubexpr(e *Expr) bool {
	return e.Flags.Has(FlagHasJoinPathRef) && !e.Flags.Has(FlagHasInputPathRef) && !e.Flags.Has(FlagHasAggregate)
}
