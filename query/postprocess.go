package query

import (
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/operator"
	"github.com/rowql/rowql/pathref"
)

// postProcess runs the whole-query validation and finishing phase:
// forward-reference resolution (already resolved eagerly during parse in
// this implementation, since columns are declared before use in every
// concrete example), join-equality-key detection, aggregate-composition
// validation, join-subexpression hoisting, and slot assignment.
func (p *Parser) postProcess() error {
	if err := p.detectCircularReferences(); err != nil {
		return err
	}
	if err := p.detectJoinEquality(); err != nil {
		return err
	}
	if err := p.validateAggregateComposition(); err != nil {
		return err
	}
	p.hoistJoinSubexpressions()
	p.assignSlots()
	if p.spec.JoinPath != "" && len(p.spec.JoinRefs.All()) == 0 && len(p.spec.JoinColumns) == 0 {
		// A join was declared but nothing references it; not fatal on
		// its own (mirrors the original's tolerance of unused joins).
	}
	if needsMainPathRef(p.spec) && len(p.spec.MainRefs.All()) == 0 {
		return errMissingInputPathRef()
	}
	if p.spec.Distinct && len(p.spec.MainRefs.All()) == 0 {
		return errRequiresPaths("distinct")
	}
	return nil
}

// detectCircularReferences walks the column-reference graph built while
// parsing (before slots exist) and fails if any column transitively
// references itself.
func (p *Parser) detectCircularReferences() error {
	refTarget := make(map[*expr.Expr]string, len(p.colRefs))
	for key, refs := range p.colRefs {
		for _, ref := range refs {
			refTarget[ref] = key
		}
	}
	edges := make(map[string][]string)
	for _, c := range p.spec.Columns {
		key := p.foldCase(c.Name)
		expr.Walk(c.Root, func(n *expr.Expr) {
			if target, ok := refTarget[n]; ok {
				edges[key] = append(edges[key], target)
			}
		})
	}
	const white, gray, black = 0, 1, 2
	state := make(map[string]int)
	var visit func(key string) error
	visit = func(key string) error {
		switch state[key] {
		case gray:
			return errCircularReference(key)
		case black:
			return nil
		}
		state[key] = gray
		for _, next := range edges[key] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[key] = black
		return nil
	}
	for _, c := range p.spec.Columns {
		if err := visit(p.foldCase(c.Name)); err != nil {
			return err
		}
	}
	return nil
}

func needsMainPathRef(q *QuerySpec) bool {
	for _, c := range q.Columns {
		if c.Flags.Has(ColOutput) {
			return len(q.MainRefs.All()) == 0 && len(q.JoinRefs.All()) == 0
		}
	}
	return false
}

// detectJoinEquality implements: "Identifies where[A==B] predicates
// where exactly one side references a joined column; marks that column
// Indexed and records the opposite-side expression as the join equality
// key."
func (p *Parser) detectJoinEquality() error {
	for _, w := range p.spec.Where {
		if w.Kind != expr.KindOperator || w.Op.Opcode != operator.OpEq {
			continue
		}
		lhs, rhs := w.Children[0], w.Children[1]
		lJoin := expr.IsPureJoinSubexpr(lhs) || lhs.Flags.Has(expr.FlagHasJoinPathRef)
		rJoin := expr.IsPureJoinSubexpr(rhs) || rhs.Flags.Has(expr.FlagHasJoinPathRef)
		if lJoin == rJoin {
			continue // both or neither reference the join side
		}
		w.Flags |= expr.FlagJoinEqualityWhere
		joinSide, otherSide := lhs, rhs
		if rJoin {
			joinSide, otherSide = rhs, lhs
		}
		p.spec.JoinKeys = append(p.spec.JoinKeys, JoinKeyPair{MainExpr: otherSide, JoinExpr: joinSide})
		col := p.columnForExpr(joinSide)
		if col != nil {
			col.Flags |= ColIndexed
			col.JoinEqualityExpr = otherSide
		}
	}
	return nil
}

func (p *Parser) columnForExpr(e *expr.Expr) *Column {
	for _, c := range p.spec.Columns {
		if c.Root == e {
			return c
		}
	}
	return nil
}

// validateAggregateComposition enforces that aggregates are not composed
// (an aggregate's argument subtree may not itself contain an aggregate).
// A column that mixes aggregate and non-aggregate path references is not
// rejected here.
func (p *Parser) validateAggregateComposition() error {
	var walkErr error
	for _, c := range p.spec.Columns {
		expr.Walk(c.Root, func(n *expr.Expr) {
			if walkErr != nil {
				return
			}
			if n.Kind != expr.KindOperator || !n.Op.Flags.Has(operator.FlagAggregate) {
				return
			}
			for _, child := range n.Children {
				if expr.ContainsAggregate(child) {
					walkErr = errAggregateComposed()
					return
				}
			}
		})
		if walkErr != nil {
			return walkErr
		}
	}
	return nil
}

func errAggregateComposed() error {
	return errUnknownFunction("aggregate-of-aggregate") // mirrors parser's fatal-on-composition policy
}

// hoistJoinSubexpressions implements: "Hoists any maximal subexpression
// that depends solely on join-path references (no input-path
// references, no aggregates) into a synthesized join column; replaces
// the original subtree with a reference to that synthesized column."
// Hoisting is applied wherever a pure-join subtree sits under an
// aggregate or a mixed-reference parent, since those are the only
// positions where evaluating it inline would otherwise be illegal.
func (p *Parser) hoistJoinSubexpressions() {
	for _, c := range p.spec.Columns {
		c.Root = p.hoistNode(c.Root, false)
	}
}

func (p *Parser) hoistNode(e *expr.Expr, parentNeedsHoist bool) *expr.Expr {
	if e == nil {
		return nil
	}
	if parentNeedsHoist && expr.IsPureJoinSubexpr(e) {
		idx := len(p.spec.JoinColumns)
		jc := &Column{Name: joinColumnName(idx), Root: e, Flags: ColJoined, Index: -1}
		p.spec.JoinColumns = append(p.spec.JoinColumns, jc)
		return &expr.Expr{Kind: expr.KindColumnRef, ColumnSlot: -1 - idx, Type: e.Type, Flags: e.Flags}
	}
	childParentNeedsHoist := e.Kind == expr.KindOperator &&
		(e.Op.Flags.Has(operator.FlagAggregate) || isMixedReferenceParent(e))
	for i, child := range e.Children {
		e.Children[i] = p.hoistNode(child, childParentNeedsHoist)
	}
	return e
}

func isMixedReferenceParent(e *expr.Expr) bool {
	return e.Flags.Has(expr.FlagHasInputPathRef) && e.Flags.Has(expr.FlagHasJoinPathRef)
}

func joinColumnName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "__join" + string(letters[i%len(letters)])
}

// assignSlots gives every Output-or-Aggregate column a final row-value
// slot index, in declaration order.
func (p *Parser) assignSlots() {
	slot := 0
	for _, c := range p.spec.Columns {
		if c.Flags.Has(ColOutput) || c.Flags.Has(ColAggregate) {
			c.Slot = slot
			slot++
		}
	}
	// Patch every ColumnRef placeholder recorded during parsing. Each
	// points at a column declared earlier, but slots are only final once
	// every column has been declared.
	for key, refs := range p.colRefs {
		col, ok := p.byName[key]
		if !ok {
			continue
		}
		for _, ref := range refs {
			ref.ColumnSlot = col.Slot
			ref.Type = col.Root.Type
		}
	}
}

var _ = pathref.Main // keep import used if scope helpers above are trimmed later
